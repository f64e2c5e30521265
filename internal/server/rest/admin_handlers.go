package rest

import (
	"net/http"

	"github.com/dmitrijs2005/docmark/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) listApiKeys(c *gin.Context) {
	keys, err := s.deps.ApiKeys.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, keys)
}

func (s *HTTPServer) getApiKey(c *gin.Context) {
	k, err := s.deps.ApiKeys.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, k)
}

func (s *HTTPServer) activeApiKey(c *gin.Context) {
	k, err := s.deps.ApiKeys.Active(c.Request.Context(), c.Param("service"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, k)
}

func (s *HTTPServer) createApiKey(c *gin.Context) {
	var req apiKeyRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	k, err := s.deps.ApiKeys.Create(c.Request.Context(), req.model(""))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, k)
}

func (s *HTTPServer) updateApiKey(c *gin.Context) {
	var req apiKeyRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	k, err := s.deps.ApiKeys.Update(c.Request.Context(), req.model(c.Param("id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, k)
}

func (s *HTTPServer) toggleApiKey(c *gin.Context) {
	k, err := s.deps.ApiKeys.Toggle(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, k)
}

func (s *HTTPServer) deleteApiKey(c *gin.Context) {
	if err := s.deps.ApiKeys.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "API key deleted"})
}

func (s *HTTPServer) listSmtp(c *gin.Context) {
	cfgs, err := s.deps.Smtp.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfgs)
}

func (s *HTTPServer) activeSmtp(c *gin.Context) {
	cfg, err := s.deps.Smtp.Active(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *HTTPServer) createSmtp(c *gin.Context) {
	var req smtpRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	cfg, err := s.deps.Smtp.Create(c.Request.Context(), req.config(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (s *HTTPServer) updateSmtp(c *gin.Context) {
	var req smtpPatchRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	patch := &services.SmtpPatch{
		Host:      req.Host,
		Port:      req.Port,
		Secure:    req.Secure,
		FromEmail: req.FromEmail,
		FromName:  req.FromName,
		IsActive:  req.IsActive,
	}
	if req.Auth != nil {
		patch.AuthUser, patch.AuthPass = &req.Auth.User, &req.Auth.Pass
	}

	cfg, err := s.deps.Smtp.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *HTTPServer) toggleSmtp(c *gin.Context) {
	cfg, err := s.deps.Smtp.Toggle(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *HTTPServer) deleteSmtp(c *gin.Context) {
	if err := s.deps.Smtp.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "SMTP configuration deleted"})
}

func (s *HTTPServer) testActiveSmtp(c *gin.Context) {
	var req testEmailRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	info, err := s.deps.Smtp.TestActive(c.Request.Context(), req.TestEmail)
	if err != nil {
		s.smtpTestFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test email sent", "info": info})
}

func (s *HTTPServer) testSmtp(c *gin.Context) {
	var req smtpTestRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	info, err := s.deps.Smtp.Test(c.Request.Context(), req.config(), req.TestEmail)
	if err != nil {
		s.smtpTestFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test email sent", "info": info})
}

// smtpTestFailed reports the SMTP error text, which is what an admin needs
// to fix the configuration.
func (s *HTTPServer) smtpTestFailed(c *gin.Context, err error) {
	status, _ := errorStatus(err)
	if status != http.StatusInternalServerError {
		s.respondError(c, err)
		return
	}
	s.logger.Error(c.Request.Context(), "smtp test failed", "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to send test email: " + err.Error()})
}

func (s *HTTPServer) getSettings(c *gin.Context) {
	settings, err := s.deps.Settings.Settings(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *HTTPServer) putSettings(c *gin.Context) {
	var req settingsRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.deps.Settings.SetServerURL(c.Request.Context(), req.ServerURL); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated", "SERVER_URL": s.deps.Settings.ServerURL()})
}
