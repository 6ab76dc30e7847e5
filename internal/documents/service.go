package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"summary-backend/internal/extract"
	"summary-backend/internal/shared/apperr"
	"summary-backend/internal/shared/storage/object"
	"summary-backend/internal/shared/telemetry"
	"summary-backend/internal/validation"
)

const previewChars = 200

// ErrStoreNotConfigured is returned by every operation when no repository
// was wired at startup.
var ErrStoreNotConfigured = apperr.New(apperr.ErrNotConfigured, "document store is not configured")

// ErrOriginalNotFound means the document exists but has no stored original.
var ErrOriginalNotFound = apperr.New(apperr.ErrNotFound, "original file not found")

// FileUpload is a binary upload.
type FileUpload struct {
	Name     string
	Size     int64
	MimeType string
	Data     []byte
}

// TextUpload is pasted text. Empty Filename and FileType take defaults.
type TextUpload struct {
	Filename string
	FileType string
	RawText  string
}

// UploadInput carries exactly one of File or Text.
type UploadInput struct {
	File *FileUpload
	Text *TextUpload
}

// UploadResult is the stored document plus a short preview of its text.
type UploadResult struct {
	Document    Document
	TextPreview string
}

// DocumentView is a document with its summary, if one exists.
type DocumentView struct {
	Document Document
	Summary  *Summary
}

// Service contains business logic for documents.
type Service struct {
	Repo      Repo
	Store     object.ObjectStore
	Validator *validation.Validator
	// BackupTimeout bounds the best-effort copy of original bytes.
	BackupTimeout time.Duration

	now func() time.Time
}

// NewService constructs a Service. repo may be nil, in which case every call
// fails with ErrStoreNotConfigured. store may be nil to disable backups.
func NewService(repo Repo, store object.ObjectStore, v *validation.Validator, backupTimeout time.Duration) *Service {
	if v == nil {
		v = validation.New(validation.DefaultLimits())
	}
	if backupTimeout <= 0 {
		backupTimeout = 15 * time.Second
	}
	return &Service{Repo: repo, Store: store, Validator: v, BackupTimeout: backupTimeout, now: time.Now}
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil {
		return ErrStoreNotConfigured
	}
	return nil
}

// Upload validates and stores a document. Binary uploads are extracted to
// text first and their original bytes are backed up after the row exists.
func (s *Service) Upload(ctx context.Context, userID string, in UploadInput) (UploadResult, error) {
	if err := s.ready(); err != nil {
		return UploadResult{}, err
	}
	var (
		doc Document
		err error
	)
	switch {
	case in.File != nil && in.Text != nil:
		return UploadResult{}, apperr.Validation("body", "send either a file or raw text, not both")
	case in.File != nil:
		doc, err = s.fromFile(ctx, *in.File)
	case in.Text != nil:
		doc, err = s.fromText(*in.Text)
	default:
		return UploadResult{}, apperr.Validation("file", "file or raw_text is required")
	}
	if err != nil {
		return UploadResult{}, err
	}

	now := s.clock()
	doc.ID = uuid.NewString()
	doc.UserID = userID
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if err := s.Repo.CreateDocument(ctx, doc); err != nil {
		return UploadResult{}, err
	}

	if in.File != nil {
		if url, ok := s.backup(ctx, doc, in.File.Data); ok {
			doc.FileURL = &url
		}
	}

	telemetry.Info("document.uploaded", map[string]any{
		"user_id":     userID,
		"document_id": doc.ID,
		"file_type":   string(doc.FileType),
		"chars":       validation.CharCount(doc.RawText),
	})
	return UploadResult{Document: doc, TextPreview: Preview(doc.RawText)}, nil
}

func (s *Service) fromFile(ctx context.Context, f FileUpload) (Document, error) {
	mimeType := validation.NormalizeMime(f.MimeType, f.Name)
	if err := s.Validator.ValidateFile(f.Name, f.Size, mimeType); err != nil {
		return Document{}, err
	}
	fileType := validation.InferFileType(f.Name)
	if fileType == validation.FileTypeUnknown {
		fileType = fileTypeForMime(mimeType)
	}
	text, err := extract.FromUpload(ctx, fileType, f.Data)
	if err != nil {
		return Document{}, err
	}
	if err := s.Validator.ValidateRawText(text); err != nil {
		return Document{}, err
	}
	return Document{
		Filename: strings.TrimSpace(f.Name),
		FileType: fileType,
		RawText:  text,
	}, nil
}

func (s *Service) fromText(t TextUpload) (Document, error) {
	name := strings.TrimSpace(t.Filename)
	if name == "" {
		name = fmt.Sprintf("text_%d", s.clock().UnixMilli())
	}
	if err := s.Validator.ValidateFilename(name); err != nil {
		return Document{}, err
	}
	fileType := validation.FileTypeRawText
	if strings.TrimSpace(t.FileType) != "" {
		parsed, ok := validation.ParseFileType(t.FileType)
		if !ok {
			return Document{}, apperr.Validation("file_type", "file_type must be one of pdf, txt, md, raw_text")
		}
		fileType = parsed
	}
	if err := s.Validator.ValidateRawText(t.RawText); err != nil {
		return Document{}, err
	}
	return Document{Filename: name, FileType: fileType, RawText: t.RawText}, nil
}

// backup copies the original bytes to the object store. Failures are logged
// and never fail the upload.
func (s *Service) backup(ctx context.Context, doc Document, data []byte) (string, bool) {
	if s.Store == nil {
		return "", false
	}
	fields := map[string]any{"user_id": doc.UserID, "document_id": doc.ID}
	key, err := object.OriginalKey(doc.UserID, doc.ID, doc.Filename)
	if err != nil {
		fields["error"] = err
		telemetry.Warn("document.backup_failed", fields)
		return "", false
	}

	backupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.BackupTimeout)
	defer cancel()
	if _, err := s.Store.Put(backupCtx, key, validation.MimeForType(doc.FileType), bytes.NewReader(data)); err != nil {
		fields["error"] = err
		telemetry.Warn("document.backup_failed", fields)
		return "", false
	}
	url := s.Store.URL(key)
	if err := s.Repo.SetFileURL(backupCtx, doc.UserID, doc.ID, url); err != nil {
		fields["error"] = err
		telemetry.Warn("document.backup_failed", fields)
		return "", false
	}
	return url, true
}

// List returns the user's documents, newest first, each with its summary.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]DocumentView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	docs, err := s.Repo.ListDocuments(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}
	summaries, err := s.Repo.ListSummariesByDocuments(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	byDoc := make(map[string]Summary, len(summaries))
	for _, sm := range summaries {
		byDoc[sm.DocumentID] = sm
	}

	out := make([]DocumentView, len(docs))
	for i, doc := range docs {
		out[i] = DocumentView{Document: doc}
		if sm, ok := byDoc[doc.ID]; ok {
			sm := sm
			out[i].Summary = &sm
		}
	}
	return out, nil
}

// Get returns one document with its summary.
func (s *Service) Get(ctx context.Context, userID, id string) (DocumentView, error) {
	if err := s.ready(); err != nil {
		return DocumentView{}, err
	}
	if !ValidID(id) {
		return DocumentView{}, ErrNotFound
	}
	doc, err := s.Repo.GetDocument(ctx, userID, id)
	if err != nil {
		return DocumentView{}, err
	}
	view := DocumentView{Document: doc}
	sm, err := s.Repo.GetSummaryByDocument(ctx, userID, id)
	switch {
	case err == nil:
		view.Summary = &sm
	case errors.Is(err, ErrSummaryNotFound):
	default:
		return DocumentView{}, err
	}
	return view, nil
}

// Delete removes the document and its summary. The stored original is
// removed afterwards on a best-effort basis.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !ValidID(id) {
		return ErrNotFound
	}
	doc, err := s.Repo.GetDocument(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteDocument(ctx, userID, id); err != nil {
		return err
	}
	if s.Store != nil && doc.FileURL != nil {
		if key, err := object.OriginalKey(userID, id, doc.Filename); err == nil {
			if err := s.Store.Delete(ctx, key); err != nil {
				telemetry.Warn("document.original_delete_failed", map[string]any{
					"user_id":     userID,
					"document_id": id,
					"error":       err,
				})
			}
		}
	}
	telemetry.Info("document.deleted", map[string]any{"user_id": userID, "document_id": id})
	return nil
}

// OpenOriginal streams the backed-up bytes of a document. The caller closes
// the reader.
func (s *Service) OpenOriginal(ctx context.Context, userID, id string) (Document, io.ReadCloser, error) {
	if err := s.ready(); err != nil {
		return Document{}, nil, err
	}
	if !ValidID(id) {
		return Document{}, nil, ErrNotFound
	}
	doc, err := s.Repo.GetDocument(ctx, userID, id)
	if err != nil {
		return Document{}, nil, err
	}
	if s.Store == nil || doc.FileURL == nil {
		return Document{}, nil, ErrOriginalNotFound
	}
	key, err := object.OriginalKey(userID, id, doc.Filename)
	if err != nil {
		return Document{}, nil, ErrOriginalNotFound
	}
	rc, err := s.Store.Open(ctx, key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Document{}, nil, ErrOriginalNotFound
		}
		return Document{}, nil, fmt.Errorf("open original: %w: %w", apperr.ErrPersistence, err)
	}
	return doc, rc, nil
}

// Preview returns the first 200 characters of text, with "..." appended when
// it was cut.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewChars {
		return text
	}
	return string(runes[:previewChars]) + "..."
}

// ValidID reports whether id is a well-formed record id. Malformed ids are
// answered as not found.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func fileTypeForMime(mimeType string) validation.FileType {
	switch mimeType {
	case validation.MimePDF:
		return validation.FileTypePDF
	case validation.MimeMarkdown:
		return validation.FileTypeMD
	case validation.MimeText:
		return validation.FileTypeTXT
	default:
		return validation.FileTypeUnknown
	}
}
