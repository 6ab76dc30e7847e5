package documents

import (
	"context"
	"errors"
	"fmt"

	"summary-backend/internal/shared/apperr"
)

var (
	// ErrNotFound covers documents that are absent and documents owned by
	// someone else; callers cannot tell the two apart.
	ErrNotFound = apperr.New(apperr.ErrNotFound, "document not found")
	// ErrSummaryNotFound is ErrNotFound for summaries.
	ErrSummaryNotFound = apperr.New(apperr.ErrNotFound, "summary not found")
	// ErrSummaryExists is returned when a second summary is inserted for a
	// document.
	ErrSummaryExists = errors.New("summary already exists for document")
)

// Repo persists documents and their summaries. Every method is scoped by the
// owning user.
type Repo interface {
	CreateDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, userID, id string) (Document, error)
	// ListDocuments returns the user's documents, newest first. limit <= 0
	// returns all of them.
	ListDocuments(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	SetFileURL(ctx context.Context, userID, id, url string) error
	// DeleteDocument removes the document and its summary together.
	DeleteDocument(ctx context.Context, userID, id string) error

	CreateSummary(ctx context.Context, s Summary) error
	GetSummary(ctx context.Context, userID, id string) (Summary, error)
	GetSummaryByDocument(ctx context.Context, userID, documentID string) (Summary, error)
	ListSummariesByDocuments(ctx context.Context, userID string, documentIDs []string) ([]Summary, error)
	// UpdateGeneration stores a new generation and increments the
	// regeneration count. The edited summary is left untouched.
	UpdateGeneration(ctx context.Context, userID, summaryID string, g Generation) (Summary, error)
	// UpdateEdit replaces the edited summary only.
	UpdateEdit(ctx context.Context, userID, documentID, summaryID, text string) (Summary, error)
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, apperr.ErrPersistence, err)
}

// MaxPageSize caps an explicit list limit.
const MaxPageSize = 100

// clampPage normalizes list paging. A limit of zero means every row.
func clampPage(limit, offset int) (int, int) {
	if limit < 0 {
		limit = 0
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
