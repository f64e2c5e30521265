package rest

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/filex"
	"github.com/dmitrijs2005/docmark/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) listDocuments(c *gin.Context) {
	docs, err := s.deps.Documents.List(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (s *HTTPServer) listAllDocuments(c *gin.Context) {
	docs, err := s.deps.Documents.ListWithAuthors(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (s *HTTPServer) listMyDocuments(c *gin.Context) {
	docs, err := s.deps.Documents.ListMine(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (s *HTTPServer) getDocument(c *gin.Context) {
	doc, err := s.deps.Documents.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *HTTPServer) downloadDocument(c *gin.Context) {
	doc, body, err := s.deps.Documents.Download(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer body.Close()

	extra := map[string]string{"Content-Disposition": filex.ContentDisposition(doc.OriginalName)}
	c.DataFromReader(http.StatusOK, -1, doc.ContentType, body, extra)
}

func (s *HTTPServer) duplicateDocument(c *gin.Context) {
	doc, err := s.deps.Documents.Duplicate(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (s *HTTPServer) uploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", common.ErrorValidation, err))
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		s.respondError(c, fmt.Errorf("%w: no files uploaded", common.ErrorValidation))
		return
	}
	if len(files) > s.deps.MaxUploadFiles {
		s.respondError(c, fmt.Errorf("%w: at most %d files per upload", common.ErrorValidation, s.deps.MaxUploadFiles))
		return
	}

	uploads := make([]services.Upload, 0, len(files))
	for _, fh := range files {
		if fh.Size > s.deps.MaxUploadSize {
			s.respondError(c, fmt.Errorf("%w: %s exceeds the %d byte limit", common.ErrorValidation, fh.Filename, s.deps.MaxUploadSize))
			return
		}
		uploads = append(uploads, uploadFromHeader(fh))
	}

	var opts openAIKeyRequest
	_ = c.ShouldBind(&opts)

	docs, err := s.deps.Documents.Upload(c.Request.Context(), currentUser(c), uploads,
		services.OpenAIOptions{Key: opts.Key, Model: opts.Model})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, docs)
}

func uploadFromHeader(fh *multipart.FileHeader) services.Upload {
	return services.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open:        func() (io.ReadCloser, error) { return fh.Open() },
	}
}

func (s *HTTPServer) convertURL(c *gin.Context) {
	var req convertURLRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	doc, err := s.deps.Documents.ConvertURL(c.Request.Context(), currentUser(c), req.URL)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (s *HTTPServer) deleteDocument(c *gin.Context) {
	if err := s.deps.Documents.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}

func (s *HTTPServer) deleteDocuments(c *gin.Context) {
	var req idsRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	res, err := s.deps.Documents.DeleteMany(c.Request.Context(), currentUser(c), req.IDs)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%d document(s) deleted, %d failed", res.Success, res.Failed),
		"results": res,
	})
}
