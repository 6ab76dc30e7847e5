package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo used in local development and tests.
type MemoryRepo struct {
	mu        sync.RWMutex
	docs      map[string]Document // id -> document
	summaries map[string]Summary  // id -> summary
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		docs:      make(map[string]Document),
		summaries: make(map[string]Summary),
	}
}

func (r *MemoryRepo) CreateDocument(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) GetDocument(ctx context.Context, userID, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok || doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// ListDocuments returns the user's documents, newest first.
func (r *MemoryRepo) ListDocuments(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	r.mu.RLock()
	out := make([]Document, 0)
	for _, doc := range r.docs {
		if doc.UserID == userID {
			out = append(out, doc)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []Document{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) SetFileURL(ctx context.Context, userID, id, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.UserID != userID {
		return ErrNotFound
	}
	doc.FileURL = &url
	doc.UpdatedAt = time.Now().UTC()
	r.docs[id] = doc
	return nil
}

func (r *MemoryRepo) DeleteDocument(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.UserID != userID {
		return ErrNotFound
	}
	for sid, s := range r.summaries {
		if s.DocumentID == id {
			delete(r.summaries, sid)
		}
	}
	delete(r.docs, id)
	return nil
}

func (r *MemoryRepo) CreateSummary(ctx context.Context, s Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[s.DocumentID]
	if !ok || doc.UserID != s.UserID {
		return ErrNotFound
	}
	for _, existing := range r.summaries {
		if existing.DocumentID == s.DocumentID {
			return ErrSummaryExists
		}
	}
	r.summaries[s.ID] = s
	return nil
}

func (r *MemoryRepo) GetSummary(ctx context.Context, userID, id string) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.summaries[id]
	if !ok || s.UserID != userID {
		return Summary{}, ErrSummaryNotFound
	}
	return s, nil
}

func (r *MemoryRepo) GetSummaryByDocument(ctx context.Context, userID, documentID string) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.summaries {
		if s.DocumentID == documentID && s.UserID == userID {
			return s, nil
		}
	}
	return Summary{}, ErrSummaryNotFound
}

func (r *MemoryRepo) ListSummariesByDocuments(ctx context.Context, userID string, documentIDs []string) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(documentIDs))
	for _, id := range documentIDs {
		want[id] = struct{}{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(documentIDs))
	for _, s := range r.summaries {
		if _, ok := want[s.DocumentID]; ok && s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MemoryRepo) UpdateGeneration(ctx context.Context, userID, summaryID string, g Generation) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.summaries[summaryID]
	if !ok || s.UserID != userID {
		return Summary{}, ErrSummaryNotFound
	}
	s.GeneratedSummary = g.Summary
	s.Tone = g.Tone
	s.CustomPrompt = g.CustomPrompt
	s.MaxLength = g.MaxLength
	s.Provider = g.Provider
	s.RegenerationCount++
	s.UpdatedAt = stamp(g.At)
	r.summaries[summaryID] = s
	return s, nil
}

func (r *MemoryRepo) UpdateEdit(ctx context.Context, userID, documentID, summaryID, text string) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.summaries[summaryID]
	if !ok || s.UserID != userID || s.DocumentID != documentID {
		return Summary{}, ErrSummaryNotFound
	}
	s.EditedSummary = &text
	s.UpdatedAt = time.Now().UTC()
	r.summaries[summaryID] = s
	return s, nil
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

var _ Repo = (*MemoryRepo)(nil)
