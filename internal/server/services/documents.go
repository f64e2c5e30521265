package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/filex"
	"github.com/dmitrijs2005/docmark/internal/logging"
	"github.com/dmitrijs2005/docmark/internal/server/config"
	"github.com/dmitrijs2005/docmark/internal/server/converter"
	"github.com/dmitrijs2005/docmark/internal/server/models"
	"github.com/dmitrijs2005/docmark/internal/server/openaiclient"
	"github.com/dmitrijs2005/docmark/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docmark/internal/server/storage"
)

// documentsPrefix is the object key prefix of stored originals.
const documentsPrefix = "documents"

const markdownContentType = "text/markdown; charset=utf-8"

// Converter turns files and remote pages into markdown.
type Converter interface {
	ConvertFile(ctx context.Context, name, contentType string, r io.Reader, opts converter.Options) (*converter.Result, error)
	ConvertURL(ctx context.Context, target string, opts converter.Options) (*converter.Result, error)
}

// OCR extracts markdown from an image.
type OCR interface {
	OCR(ctx context.Context, key, model, contentType string, image []byte) (*openaiclient.OCRResult, error)
}

// ActiveKeys yields the active API key of a service or common.ErrorNotFound.
type ActiveKeys interface {
	Active(ctx context.Context, service string) (*models.ApiKey, error)
}

// Upload is one file of an upload request. Open may be called more than once.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// OpenAIOptions carries the per-request OpenAI credentials. Empty fields fall
// back to the active "openai" API key, then to the server configuration.
type OpenAIOptions struct {
	Key   string
	Model string
}

// BulkDeleteResult reports a multi-document delete.
type BulkDeleteResult struct {
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Errors  []BulkDeleteError `json:"errors"`
}

type BulkDeleteError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	converter   Converter
	ocr         OCR
	keys        ActiveKeys
	openAIKey   string
	openAIModel string
	logger      logging.Logger
	now         func() time.Time
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore, conv Converter,
	ocr OCR, keys ActiveKeys, cfg *config.Config, logger logging.Logger) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: m,
		store:       store,
		converter:   conv,
		ocr:         ocr,
		keys:        keys,
		openAIKey:   cfg.OpenAIAPIKey,
		openAIModel: cfg.OpenAIModel,
		logger:      logger.With("module", "documents"),
		now:         time.Now,
	}
}

// List returns every document to admins and the caller's own to users.
func (s *DocumentService) List(ctx context.Context, actor *models.User) ([]*models.Document, error) {
	if isAdmin(actor) {
		return s.repomanager.Documents(s.db).ListAll(ctx)
	}
	return s.ListMine(ctx, actor)
}

// ListWithAuthors returns every document with its author attached.
func (s *DocumentService) ListWithAuthors(ctx context.Context) ([]*models.Document, error) {
	return s.repomanager.Documents(s.db).ListWithAuthors(ctx)
}

func (s *DocumentService) ListMine(ctx context.Context, actor *models.User) ([]*models.Document, error) {
	return s.repomanager.Documents(s.db).ListByAuthor(ctx, actor.ID)
}

// Get returns a document the actor may see: admins see all, users their own.
func (s *DocumentService) Get(ctx context.Context, actor *models.User, id string) (*models.Document, error) {
	doc, err := s.repomanager.Documents(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin(actor) && !doc.OwnedBy(actor.ID) {
		return nil, common.ErrorForbidden
	}
	return doc, nil
}

// Download opens the stored original. The caller closes the reader.
func (s *DocumentService) Download(ctx context.Context, actor *models.User, id string) (*models.Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.store.Get(ctx, doc.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return doc, body, nil
}

// Duplicate copies the original and the record. The copy belongs to the actor.
func (s *DocumentService) Duplicate(ctx context.Context, actor *models.User, id string) (*models.Document, error) {
	src, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	key := filex.StorageKey(documentsPrefix, src.FileName, s.now())
	copied := true
	if err := s.store.Copy(ctx, src.StorageKey, key); err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		s.logger.Warn(ctx, "original missing, duplicating record only", "id", src.ID)
		copied = false
	}

	dup := *src
	dup.ID = ""
	dup.Author = nil
	dup.AuthorID = &actor.ID
	dup.OriginalName = filex.CopyName(src.OriginalName)
	dup.FileName = path.Base(key)
	dup.StorageKey = key

	out, err := s.repomanager.Documents(s.db).Create(ctx, &dup)
	if err != nil {
		if copied {
			s.removeObject(ctx, key)
		}
		return nil, err
	}

	s.logger.Info(ctx, "document duplicated", "id", out.ID, "source", src.ID)
	return out, nil
}

// Upload converts and stores each file in turn. Images go to OCR when an
// OpenAI key is available and fall back to the converter if OCR fails.
func (s *DocumentService) Upload(ctx context.Context, actor *models.User, files []Upload, opts OpenAIOptions) ([]*models.Document, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files provided", common.ErrorValidation)
	}
	opts = s.resolveOpenAI(ctx, opts)

	docs := make([]*models.Document, 0, len(files))
	for _, f := range files {
		doc, err := s.uploadOne(ctx, actor, f, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *DocumentService) uploadOne(ctx context.Context, actor *models.User, f Upload, opts OpenAIOptions) (*models.Document, error) {
	doc := &models.Document{
		AuthorID:     &actor.ID,
		OriginalName: f.Name,
		FileSize:     f.Size,
		ContentType:  f.ContentType,
	}

	converted := false
	if filex.IsImage(f.ContentType) && opts.Key != "" {
		converted = s.tryOCR(ctx, f, opts, doc)
	}
	if !converted {
		if err := s.convertFile(ctx, f, opts, doc); err != nil {
			return nil, err
		}
	}

	now := s.now()
	doc.StorageKey = filex.StorageKey(documentsPrefix, f.Name, now)
	doc.FileName = path.Base(doc.StorageKey)

	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	err = s.store.Put(ctx, doc.StorageKey, rc, f.Size, f.ContentType)
	rc.Close()
	if err != nil {
		return nil, err
	}

	out, err := s.repomanager.Documents(s.db).Create(ctx, doc)
	if err != nil {
		s.removeObject(ctx, doc.StorageKey)
		return nil, err
	}

	s.logger.Info(ctx, "document converted", "id", out.ID, "method", out.ConversionMethod)
	return out, nil
}

func (s *DocumentService) tryOCR(ctx context.Context, f Upload, opts OpenAIOptions, doc *models.Document) bool {
	rc, err := f.Open()
	if err != nil {
		s.logger.Warn(ctx, "ocr skipped", "name", f.Name, "error", err)
		return false
	}
	image, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		s.logger.Warn(ctx, "ocr skipped", "name", f.Name, "error", err)
		return false
	}

	start := s.now()
	res, err := s.ocr.OCR(ctx, opts.Key, opts.Model, f.ContentType, image)
	if err != nil {
		s.logger.Warn(ctx, "ocr failed, falling back to converter", "name", f.Name, "error", err)
		return false
	}

	doc.MarkdownContent = res.Text
	doc.ConversionMethod = models.ConversionMethodOpenAIOCR
	doc.ProcessingTime = s.now().Sub(start).Seconds()
	return true
}

func (s *DocumentService) convertFile(ctx context.Context, f Upload, opts OpenAIOptions, doc *models.Document) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	res, err := s.converter.ConvertFile(ctx, f.Name, f.ContentType, rc,
		converter.Options{OpenAIKey: opts.Key, OpenAIModel: opts.Model})
	if err != nil {
		return err
	}

	doc.MarkdownContent = res.Markdown
	doc.ConversionMethod = res.Metadata.ConversionMethod
	doc.ProcessingTime = res.Metadata.ProcessingTime
	doc.OriginalURL = res.Metadata.OriginalURL
	if res.Metadata.ContentType != "" {
		doc.ContentType = res.Metadata.ContentType
	}
	return nil
}

// ConvertURL converts a remote page. The markdown itself is kept as the
// stored original.
func (s *DocumentService) ConvertURL(ctx context.Context, actor *models.User, target string) (*models.Document, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: url is required", common.ErrorValidation)
	}
	opts := s.resolveOpenAI(ctx, OpenAIOptions{})

	res, err := s.converter.ConvertURL(ctx, target, converter.Options{OpenAIKey: opts.Key, OpenAIModel: opts.Model})
	if err != nil {
		return nil, err
	}

	now := s.now()
	doc := &models.Document{
		AuthorID:         &actor.ID,
		OriginalName:     target,
		FileName:         fmt.Sprintf("url-%d.md", now.Unix()),
		FileSize:         res.Metadata.FileSize,
		ContentType:      res.Metadata.ContentType,
		MarkdownContent:  res.Markdown,
		ConversionMethod: res.Metadata.ConversionMethod,
		ProcessingTime:   res.Metadata.ProcessingTime,
		OriginalURL:      &target,
	}
	doc.StorageKey = filex.StorageKey(documentsPrefix, doc.FileName, now)

	body := []byte(res.Markdown)
	if err := s.store.Put(ctx, doc.StorageKey, bytes.NewReader(body), int64(len(body)), markdownContentType); err != nil {
		return nil, err
	}

	out, err := s.repomanager.Documents(s.db).Create(ctx, doc)
	if err != nil {
		s.removeObject(ctx, doc.StorageKey)
		return nil, err
	}

	s.logger.Info(ctx, "url converted", "id", out.ID)
	return out, nil
}

// Delete removes the original and the record.
func (s *DocumentService) Delete(ctx context.Context, actor *models.User, id string) error {
	doc, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.deleteDocument(ctx, doc); err != nil {
		return err
	}
	s.logger.Info(ctx, "document deleted", "id", id, "by", actor.ID)
	return nil
}

// DeleteMany removes several documents and reports each failure. Users are
// limited to their own documents; if none of ids is theirs the call is
// forbidden.
func (s *DocumentService) DeleteMany(ctx context.Context, actor *models.User, ids []string) (*BulkDeleteResult, error) {
	if len(ids) == 0 {
		return nil, common.ErrNoIDs
	}
	repo := s.repomanager.Documents(s.db)

	if !isAdmin(actor) {
		owned, err := repo.FilterOwned(ctx, ids, actor.ID)
		if err != nil {
			return nil, err
		}
		if len(owned) == 0 {
			return nil, common.ErrorForbidden
		}
		ids = owned
	}

	res := &BulkDeleteResult{Errors: []BulkDeleteError{}}
	for _, id := range ids {
		doc, err := repo.GetByID(ctx, id)
		if err == nil {
			err = s.deleteDocument(ctx, doc)
		}
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, BulkDeleteError{ID: id, Message: bulkMessage(err)})
			continue
		}
		res.Success++
	}

	s.logger.Info(ctx, "documents deleted", "success", res.Success, "failed", res.Failed, "by", actor.ID)
	return res, nil
}

func (s *DocumentService) deleteDocument(ctx context.Context, doc *models.Document) error {
	if err := s.store.Delete(ctx, doc.StorageKey); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return s.repomanager.Documents(s.db).Delete(ctx, doc.ID)
}

// resolveOpenAI fills opts from the active "openai" key, then the config.
func (s *DocumentService) resolveOpenAI(ctx context.Context, opts OpenAIOptions) OpenAIOptions {
	if opts.Key == "" {
		if k, err := s.keys.Active(ctx, models.ServiceOpenAI); err == nil {
			opts.Key = k.Key
			if opts.Model == "" {
				opts.Model = k.Model
			}
		} else if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "active openai key lookup failed", "error", err)
		}
	}
	if opts.Key == "" {
		opts.Key = s.openAIKey
	}
	if opts.Model == "" {
		opts.Model = s.openAIModel
	}
	return opts
}

func (s *DocumentService) removeObject(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Error(ctx, "orphan object left behind", "key", key, "error", err)
	}
}

func bulkMessage(err error) string {
	if errors.Is(err, common.ErrorNotFound) {
		return "document not found"
	}
	return err.Error()
}

func isAdmin(u *models.User) bool {
	return u != nil && u.Role == common.RoleAdmin
}
