package rest

import (
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/server/openaiclient"
	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) openAIOCR(c *gin.Context) {
	var req openAIKeyRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		s.respondError(c, fmt.Errorf("%w: image is required", common.ErrorValidation))
		return
	}
	if fh.Size > s.deps.MaxUploadSize {
		s.respondError(c, fmt.Errorf("%w: image exceeds the %d byte limit", common.ErrorValidation, s.deps.MaxUploadSize))
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer f.Close()

	image, err := io.ReadAll(f)
	if err != nil {
		s.respondError(c, err)
		return
	}

	res, err := s.deps.OpenAI.OCR(c.Request.Context(), req.Key, req.Model, fh.Header.Get("Content-Type"), image)
	if err != nil {
		s.upstreamFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *HTTPServer) openAIModels(c *gin.Context) {
	var req openAIKeyRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	models, err := s.deps.OpenAI.Models(c.Request.Context(), req.Key)
	if err != nil {
		s.upstreamFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": models})
}

func (s *HTTPServer) openAITest(c *gin.Context) {
	var req openAIKeyRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	if req.Model == "" {
		req.Model = openaiclient.DefaultTestModel
	}

	resp, err := s.deps.OpenAI.Test(c.Request.Context(), req.Key, req.Model)
	if err != nil {
		s.upstreamFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) upstreamFailed(c *gin.Context, err error) {
	s.logger.Error(c.Request.Context(), "openai request failed", "path", c.FullPath(), "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": openaiclient.UpstreamMessage(err)})
}
