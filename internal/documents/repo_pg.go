package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const uniqueViolation = "23505"

const documentColumns = `id, user_id, filename, file_type, raw_text, file_url, created_at, updated_at`

const summaryColumns = `id, document_id, user_id, original_text, generated_summary, edited_summary,
    regeneration_count, tone, custom_prompt, max_length, provider, created_at, updated_at`

// PGRepo implements Repo on Postgres.
type PGRepo struct {
	DB *sqlx.DB
}

// NewPGRepo wraps an open pgx-backed *sql.DB.
func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{DB: sqlx.NewDb(db, "pgx")}
}

func (r *PGRepo) CreateDocument(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (id, user_id, filename, file_type, raw_text, file_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.UserID,
		doc.Filename,
		string(doc.FileType),
		doc.RawText,
		doc.FileURL,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return persistErr("create document", err)
	}
	return nil
}

func (r *PGRepo) GetDocument(ctx context.Context, userID, id string) (Document, error) {
	const query = `SELECT ` + documentColumns + `
FROM documents
WHERE id = $1 AND user_id = $2`
	var doc Document
	if err := r.DB.GetContext(ctx, &doc, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, persistErr("get document", err)
	}
	return doc, nil
}

func (r *PGRepo) ListDocuments(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	const query = `SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	limit, offset = clampPage(limit, offset)
	// LIMIT NULL is LIMIT ALL.
	var pageLimit any
	if limit > 0 {
		pageLimit = limit
	}
	docs := []Document{}
	if err := r.DB.SelectContext(ctx, &docs, query, userID, pageLimit, offset); err != nil {
		return nil, persistErr("list documents", err)
	}
	return docs, nil
}

func (r *PGRepo) SetFileURL(ctx context.Context, userID, id, url string) error {
	const query = `
UPDATE documents
SET file_url = $1, updated_at = $2
WHERE id = $3 AND user_id = $4`
	res, err := r.DB.ExecContext(ctx, query, url, time.Now().UTC(), id, userID)
	if err != nil {
		return persistErr("set file url", err)
	}
	return requireRow(res, ErrNotFound)
}

// DeleteDocument removes the summary and the document in one transaction.
// The foreign key also cascades; the explicit delete keeps the memory and
// Postgres repos behaving the same when the schema lags.
func (r *PGRepo) DeleteDocument(ctx context.Context, userID, id string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return persistErr("begin delete", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM summaries WHERE document_id = $1 AND user_id = $2`, id, userID); err != nil {
		return persistErr("delete summaries", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return persistErr("delete document", err)
	}
	if err := requireRow(res, ErrNotFound); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return persistErr("commit delete", err)
	}
	return nil
}

func (r *PGRepo) CreateSummary(ctx context.Context, s Summary) error {
	const query = `
INSERT INTO summaries (
    id,
    document_id,
    user_id,
    original_text,
    generated_summary,
    edited_summary,
    regeneration_count,
    tone,
    custom_prompt,
    max_length,
    provider,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.DB.ExecContext(ctx, query,
		s.ID,
		s.DocumentID,
		s.UserID,
		s.OriginalText,
		s.GeneratedSummary,
		s.EditedSummary,
		s.RegenerationCount,
		s.Tone,
		s.CustomPrompt,
		s.MaxLength,
		s.Provider,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSummaryExists
		}
		return persistErr("create summary", err)
	}
	return nil
}

func (r *PGRepo) GetSummary(ctx context.Context, userID, id string) (Summary, error) {
	const query = `SELECT ` + summaryColumns + `
FROM summaries
WHERE id = $1 AND user_id = $2`
	return r.getSummary(ctx, "get summary", query, id, userID)
}

func (r *PGRepo) GetSummaryByDocument(ctx context.Context, userID, documentID string) (Summary, error) {
	const query = `SELECT ` + summaryColumns + `
FROM summaries
WHERE document_id = $1 AND user_id = $2`
	return r.getSummary(ctx, "get summary by document", query, documentID, userID)
}

func (r *PGRepo) ListSummariesByDocuments(ctx context.Context, userID string, documentIDs []string) ([]Summary, error) {
	if len(documentIDs) == 0 {
		return []Summary{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+summaryColumns+`
FROM summaries
WHERE user_id = ? AND document_id IN (?)`, userID, documentIDs)
	if err != nil {
		return nil, persistErr("list summaries", err)
	}
	out := []Summary{}
	if err := r.DB.SelectContext(ctx, &out, r.DB.Rebind(query), args...); err != nil {
		return nil, persistErr("list summaries", err)
	}
	return out, nil
}

func (r *PGRepo) UpdateGeneration(ctx context.Context, userID, summaryID string, g Generation) (Summary, error) {
	const query = `
UPDATE summaries
SET generated_summary = $1,
    tone = $2,
    custom_prompt = $3,
    max_length = $4,
    provider = $5,
    regeneration_count = regeneration_count + 1,
    updated_at = $6
WHERE id = $7 AND user_id = $8
RETURNING ` + summaryColumns
	return r.getSummary(ctx, "update generation", query,
		g.Summary,
		g.Tone,
		g.CustomPrompt,
		g.MaxLength,
		g.Provider,
		stamp(g.At),
		summaryID,
		userID,
	)
}

func (r *PGRepo) UpdateEdit(ctx context.Context, userID, documentID, summaryID, text string) (Summary, error) {
	const query = `
UPDATE summaries
SET edited_summary = $1, updated_at = $2
WHERE id = $3 AND document_id = $4 AND user_id = $5
RETURNING ` + summaryColumns
	return r.getSummary(ctx, "update edit", query, text, time.Now().UTC(), summaryID, documentID, userID)
}

func (r *PGRepo) getSummary(ctx context.Context, op, query string, args ...any) (Summary, error) {
	var s Summary
	if err := r.DB.GetContext(ctx, &s, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, ErrSummaryNotFound
		}
		return Summary{}, persistErr(op, err)
	}
	return s, nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("rows affected", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ Repo = (*PGRepo)(nil)
