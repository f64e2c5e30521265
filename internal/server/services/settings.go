package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/logging"
	"github.com/dmitrijs2005/docmark/internal/server/config"
	"github.com/joho/godotenv"
)

const envServerURL = "SERVER_URL"

// hiddenSettings are never returned by Settings.
var hiddenSettings = map[string]struct{}{
	"JWT_SECRET":       {},
	"DATABASE_DSN":     {},
	"MONGODB_URI":      {},
	"ADMIN_PASSWORD":   {},
	"API_KEY":          {},
	"OPENAI_API_KEY":   {},
	"S3_ROOT_PASSWORD": {},
}

// SettingsService exposes the dotenv file to admins and owns the live server
// URL. It is the only mutable server-wide state.
type SettingsService struct {
	mu        sync.RWMutex
	serverURL string
	envFile   string
	logger    logging.Logger
}

func NewSettingsService(cfg *config.Config, logger logging.Logger) *SettingsService {
	return &SettingsService{
		serverURL: strings.TrimRight(cfg.ServerURL, "/"),
		envFile:   cfg.EnvFile,
		logger:    logger.With("module", "settings"),
	}
}

func (s *SettingsService) ServerURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverURL
}

// Settings returns the dotenv entries without secrets. A missing file yields
// common.ErrorNotFound.
func (s *SettingsService) Settings(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	env, err := godotenv.Read(s.envFile)
	s.mu.RUnlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error reading %s: %w", s.envFile, err)
	}

	for k := range env {
		if _, hidden := hiddenSettings[k]; hidden {
			delete(env, k)
		}
	}
	return env, nil
}

// SetServerURL persists SERVER_URL to the dotenv file, creating it if needed,
// and switches the live value.
func (s *SettingsService) SetServerURL(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("%w: SERVER_URL is required", common.ErrorValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := godotenv.Read(s.envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading %s: %w", s.envFile, err)
		}
		env = map[string]string{}
	}
	env[envServerURL] = url

	if err := godotenv.Write(env, s.envFile); err != nil {
		return fmt.Errorf("error writing %s: %w", s.envFile, err)
	}
	s.serverURL = strings.TrimRight(url, "/")

	s.logger.Info(ctx, "server url changed", "server_url", url)
	return nil
}
