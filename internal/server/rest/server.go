// Package rest exposes the docmark services as an HTTP+JSON API on gin.
package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/docmark/internal/logging"
	"github.com/dmitrijs2005/docmark/internal/server/mailer"
	"github.com/dmitrijs2005/docmark/internal/server/models"
	"github.com/dmitrijs2005/docmark/internal/server/openaiclient"
	"github.com/dmitrijs2005/docmark/internal/server/ratelimit"
	"github.com/dmitrijs2005/docmark/internal/server/services"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"
)

type UserAPI interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	VerifyEmail(ctx context.Context, token string) (*models.User, error)
	Approve(ctx context.Context, id string) (*models.User, error)
	ManualVerify(ctx context.Context, id string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	ListUsers(ctx context.Context) ([]*models.User, error)
	ChangeRole(ctx context.Context, id, role string) (*models.User, error)
	DeleteUser(ctx context.Context, actorID, id string) error
	DeleteUsers(ctx context.Context, actorID string, ids []string) (int64, error)
}

type DocumentAPI interface {
	List(ctx context.Context, actor *models.User) ([]*models.Document, error)
	ListWithAuthors(ctx context.Context) ([]*models.Document, error)
	ListMine(ctx context.Context, actor *models.User) ([]*models.Document, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.Document, error)
	Download(ctx context.Context, actor *models.User, id string) (*models.Document, io.ReadCloser, error)
	Duplicate(ctx context.Context, actor *models.User, id string) (*models.Document, error)
	Upload(ctx context.Context, actor *models.User, files []services.Upload, opts services.OpenAIOptions) ([]*models.Document, error)
	ConvertURL(ctx context.Context, actor *models.User, target string) (*models.Document, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	DeleteMany(ctx context.Context, actor *models.User, ids []string) (*services.BulkDeleteResult, error)
}

type ApiKeyAPI interface {
	List(ctx context.Context) ([]*models.ApiKey, error)
	Get(ctx context.Context, id string) (*models.ApiKey, error)
	Active(ctx context.Context, service string) (*models.ApiKey, error)
	Create(ctx context.Context, key *models.ApiKey) (*models.ApiKey, error)
	Update(ctx context.Context, key *models.ApiKey) (*models.ApiKey, error)
	Toggle(ctx context.Context, id string) (*models.ApiKey, error)
	Delete(ctx context.Context, id string) error
}

type SmtpAPI interface {
	List(ctx context.Context) ([]*models.SmtpConfig, error)
	Active(ctx context.Context) (*models.SmtpConfig, error)
	Create(ctx context.Context, cfg *models.SmtpConfig, actorID string) (*models.SmtpConfig, error)
	Update(ctx context.Context, id string, p *services.SmtpPatch) (*models.SmtpConfig, error)
	Toggle(ctx context.Context, id string) (*models.SmtpConfig, error)
	Delete(ctx context.Context, id string) error
	TestActive(ctx context.Context, to string) (*mailer.Info, error)
	Test(ctx context.Context, cfg *models.SmtpConfig, to string) (*mailer.Info, error)
}

type SettingsAPI interface {
	ServerURL() string
	Settings(ctx context.Context) (map[string]string, error)
	SetServerURL(ctx context.Context, url string) error
}

type OpenAIAPI interface {
	OCR(ctx context.Context, key, model, contentType string, image []byte) (*openaiclient.OCRResult, error)
	Models(ctx context.Context, key string) ([]openai.Model, error)
	Test(ctx context.Context, key, model string) (*openai.ChatCompletionResponse, error)
}

// Deps are the collaborators behind the routes. Limiter may be nil.
// Forwarding headers are honoured only from TrustedProxies.
type Deps struct {
	Users          UserAPI
	Documents      DocumentAPI
	ApiKeys        ApiKeyAPI
	Smtp           SmtpAPI
	Settings       SettingsAPI
	OpenAI         OpenAIAPI
	Limiter        ratelimit.Limiter
	MaxUploadSize  int64
	MaxUploadFiles int
	TrustedProxies []string
}

type HTTPServer struct {
	address string
	logger  logging.Logger
	deps    Deps
	engine  *gin.Engine
}

func NewHTTPServer(address string, l logging.Logger, deps Deps) (*HTTPServer, error) {
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.Nop{}
	}
	s := &HTTPServer{
		address: address,
		logger:  l.With("module", "http_server"),
		deps:    deps,
	}
	engine, err := s.routes()
	if err != nil {
		return nil, err
	}
	s.engine = engine
	return s, nil
}

// Handler returns the router, mainly for httptest.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) routes() (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(s.deps.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	r.Use(gin.Recovery(), s.accessLog())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`/download$`})))

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	session := s.authRequired()
	admin := requireAdmin()

	a := api.Group("/auth")
	a.POST("/register", s.rateLimit(), s.register)
	a.GET("/verify/:token", s.verifyEmail)
	a.POST("/login", s.rateLimit(), s.login)
	a.POST("/forgot-password", s.rateLimit(), s.forgotPassword)
	a.POST("/reset-password/:token", s.rateLimit(), s.resetPassword)
	a.GET("/me", session, s.me)

	users := a.Group("/users", session, admin)
	users.GET("", s.listUsers)
	users.PUT("/:id/approve", s.approveUser)
	users.PUT("/:id/verify", s.verifyUser)
	users.PUT("/:id/role", s.changeRole)
	users.DELETE("/:id", s.deleteUser)
	users.DELETE("", s.deleteUsers)

	docs := api.Group("/documents", session)
	docs.GET("", s.listDocuments)
	docs.GET("/all", admin, s.listAllDocuments)
	docs.GET("/my", s.listMyDocuments)
	docs.POST("/upload", s.uploadDocuments)
	docs.POST("/convert-url", s.convertURL)
	docs.DELETE("", s.deleteDocuments)
	docs.GET("/:id", s.getDocument)
	docs.GET("/:id/download", s.downloadDocument)
	docs.POST("/:id/duplicate", s.duplicateDocument)
	docs.DELETE("/:id", s.deleteDocument)

	keys := api.Group("/api-keys", session)
	keys.GET("/active/:service", s.activeApiKey)
	keys.GET("", admin, s.listApiKeys)
	keys.GET("/:id", admin, s.getApiKey)
	keys.POST("", admin, s.createApiKey)
	keys.PUT("/:id", admin, s.updateApiKey)
	keys.PATCH("/:id/toggle", admin, s.toggleApiKey)
	keys.DELETE("/:id", admin, s.deleteApiKey)

	smtp := api.Group("/smtp", session, admin)
	smtp.GET("", s.listSmtp)
	smtp.GET("/active", s.activeSmtp)
	smtp.POST("", s.createSmtp)
	smtp.POST("/test-active", s.testActiveSmtp)
	smtp.POST("/test", s.testSmtp)
	smtp.PUT("/:id", s.updateSmtp)
	smtp.PATCH("/:id/toggle", s.toggleSmtp)
	smtp.DELETE("/:id", s.deleteSmtp)

	settings := api.Group("/settings", session, admin)
	settings.GET("", s.getSettings)
	settings.PUT("", s.putSettings)

	oa := api.Group("/openai", session)
	oa.POST("/ocr", s.openAIOCR)
	oa.POST("/models", s.openAIModels)
	oa.POST("/test", s.openAITest)

	return r, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
