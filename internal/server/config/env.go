package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/docmark/internal/flagx"
	"github.com/joho/godotenv"
)

// lookupEnv is a test seam for os.LookupEnv.
var lookupEnv = os.LookupEnv

// parseEnv loads the dotenv file (path from -env, default ".env") into the
// process environment without overriding variables that are already set,
// then copies recognized variables into config.
//
// A missing dotenv file is not an error; an unreadable one panics, as do
// malformed numeric values.
//
// Recognized variables:
//
//	PORT, JWT_SECRET, SESSION_TOKEN_TTL, RESET_TOKEN_TTL, SERVER_URL,
//	DATABASE_DSN, ADMIN_EMAIL, ADMIN_PASSWORD, ADMIN_NAME, API_URL, API_KEY,
//	OPENAI_API_KEY, OPENAI_MODEL, OPENAI_BASE_URL, MAX_UPLOAD_SIZE,
//	MAX_UPLOAD_FILES, S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION,
//	S3_BASE_ENDPOINT, REDIS_ADDR, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW,
//	TRUSTED_PROXIES (comma separated), CLEANUP_SCHEDULE, LOG_LEVEL
func parseEnv(config *Config) {
	config.EnvFile = flagx.EnvFileFlag(config.EnvFile)

	if err := godotenv.Load(config.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if v, ok := lookupEnv("PORT"); ok && v != "" {
		if strings.Contains(v, ":") {
			config.EndpointAddrHTTP = v
		} else {
			config.EndpointAddrHTTP = ":" + v
		}
	}

	envString("JWT_SECRET", &config.SecretKey)
	envDuration("SESSION_TOKEN_TTL", &config.SessionTokenValidityDuration)
	envDuration("RESET_TOKEN_TTL", &config.ResetTokenValidityDuration)
	envString("SERVER_URL", &config.ServerURL)
	envString("DATABASE_DSN", &config.DatabaseDSN)
	envString("ADMIN_EMAIL", &config.AdminEmail)
	envString("ADMIN_PASSWORD", &config.AdminPassword)
	envString("ADMIN_NAME", &config.AdminName)
	envString("API_URL", &config.ConverterURL)
	envString("API_KEY", &config.ConverterAPIKey)
	envString("OPENAI_API_KEY", &config.OpenAIAPIKey)
	envString("OPENAI_MODEL", &config.OpenAIModel)
	envString("OPENAI_BASE_URL", &config.OpenAIBaseURL)

	if v, ok := lookupEnv("MAX_UPLOAD_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		config.MaxUploadSize = n
	}
	envInt("MAX_UPLOAD_FILES", &config.MaxUploadFiles)

	envString("S3_ROOT_USER", &config.S3RootUser)
	envString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString("S3_BUCKET", &config.S3Bucket)
	envString("S3_REGION", &config.S3Region)
	envString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)

	envString("REDIS_ADDR", &config.RedisAddr)
	envInt("RATE_LIMIT_REQUESTS", &config.RateLimitRequests)
	envDuration("RATE_LIMIT_WINDOW", &config.RateLimitWindow)
	envList("TRUSTED_PROXIES", &config.TrustedProxies)

	envString("CLEANUP_SCHEDULE", &config.CleanupSchedule)
	envString("LOG_LEVEL", &config.LogLevel)
}

func envString(name string, dst *string) {
	if v, ok := lookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func envList(name string, dst *[]string) {
	v, ok := lookupEnv(name)
	if !ok || v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func envInt(name string, dst *int) {
	if v, ok := lookupEnv(name); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		*dst = n
	}
}

func envDuration(name string, dst *time.Duration) {
	if v, ok := lookupEnv(name); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		*dst = d
	}
}
