// Command keygen prints fresh secrets for the .env file: a JWT signing
// secret and an API key for the conversion service.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/docmark/internal/common"
)

const secretBytes = 32

func main() {
	if err := run(os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(w io.Writer) error {
	secret, err := common.MakeRandHexString(secretBytes)
	if err != nil {
		return err
	}
	apiKey, err := common.MakeRandBase64String(secretBytes)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "JWT_SECRET="+secret)
	fmt.Fprintln(w, "API_KEY="+apiKey)
	return nil
}
