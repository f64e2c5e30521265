// Package filex has helpers for naming stored originals and presenting them
// back to browsers.
package filex

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StorageKey builds an object key of the form prefix/yyyy/m/d/<uuid><ext>,
// keeping the extension of originalName so downloads stay recognizable.
func StorageKey(prefix, originalName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(originalName))
	return fmt.Sprintf("%s/%d/%d/%d/%s%s", prefix, now.Year(), now.Month(), now.Day(), uuid.New(), ext)
}

// ContentDisposition returns an attachment header value that survives
// non-ASCII file names (RFC 5987).
func ContentDisposition(name string) string {
	return "attachment; filename*=UTF-8''" + strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}

// IsImage reports whether contentType is an image/* media type.
func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "image/")
}

// CopyName is the display name given to a duplicated document.
func CopyName(name string) string {
	return "Copy - " + name
}
