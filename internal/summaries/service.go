// Package summaries drives summary generation, regeneration, human edits
// and span rephrasing for stored documents.
package summaries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"summary-backend/internal/documents"
	"summary-backend/internal/llm"
	"summary-backend/internal/shared/apperr"
	"summary-backend/internal/shared/metrics"
	"summary-backend/internal/shared/telemetry"
	"summary-backend/internal/validation"
)

// Generator is the subset of llm.Gateway the service depends on.
type Generator interface {
	Summarize(ctx context.Context, text string, opts llm.Options) (llm.Result, error)
	Rephrase(ctx context.Context, span, instruction string) (string, error)
}

// GenerateInput requests a summary for a document.
type GenerateInput struct {
	DocumentID   string
	Tone         string
	CustomPrompt string
	MaxLength    int
}

// RegenerateInput requests a new generation for an existing summary.
type RegenerateInput struct {
	SummaryID    string
	Tone         string
	CustomPrompt string
	MaxLength    int
}

// RephraseInput rewrites a span of text. When FullText, Start and End are all
// set, the span is FullText[Start:End] in characters and the result is
// spliced back into FullText.
type RephraseInput struct {
	Text     string
	Prompt   string
	Preset   string
	FullText *string
	Start    *int
	End      *int
}

// Outcome is a stored summary and the provider that produced its latest
// generation. Reused is set when an identical earlier generation was
// returned without calling a provider.
type Outcome struct {
	Summary  documents.Summary
	Provider string
	Reused   bool
}

// RephraseResult is the rewritten span, and the spliced full text when the
// request carried one.
type RephraseResult struct {
	Rephrased    string
	OriginalText string
	Spliced      *string
}

const defaultGenerateTimeout = 5 * time.Minute

// Service contains business logic for summaries.
type Service struct {
	Repo      documents.Repo
	LLM       Generator
	Validator *validation.Validator
	// GenerateTimeout bounds a generation and its write, independent of the
	// caller's cancellation.
	GenerateTimeout time.Duration

	now func() time.Time
}

// NewService constructs a Service. A nil repo makes every stored-summary
// operation fail with documents.ErrStoreNotConfigured.
func NewService(repo documents.Repo, gen Generator, v *validation.Validator) *Service {
	if v == nil {
		v = validation.New(validation.DefaultLimits())
	}
	return &Service{Repo: repo, LLM: gen, Validator: v, GenerateTimeout: defaultGenerateTimeout, now: time.Now}
}

// detach keeps request values but drops the caller's cancellation.
func (s *Service) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.GenerateTimeout
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil {
		return documents.ErrStoreNotConfigured
	}
	return nil
}

// Generate creates the document's summary, or replaces its generated text
// when the requested parameters differ from the latest generation. A repeat
// request with identical parameters returns the stored summary unchanged.
func (s *Service) Generate(ctx context.Context, userID string, in GenerateInput) (Outcome, error) {
	if err := s.ready(); err != nil {
		return Outcome{}, err
	}
	docID := strings.TrimSpace(in.DocumentID)
	if docID == "" {
		return Outcome{}, apperr.Validation("documentId", "documentId is required")
	}
	opts, err := normalizeOptions(in.Tone, in.CustomPrompt, in.MaxLength)
	if err != nil {
		return Outcome{}, err
	}
	if !documents.ValidID(docID) {
		return Outcome{}, documents.ErrNotFound
	}
	ctx, cancel := s.detach(ctx)
	defer cancel()

	doc, err := s.Repo.GetDocument(ctx, userID, docID)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.Validator.ValidateRawText(doc.RawText); err != nil {
		return Outcome{}, err
	}

	existing, err := s.Repo.GetSummaryByDocument(ctx, userID, docID)
	switch {
	case err == nil:
		if existing.SameParams(params(opts)) {
			metrics.IncGenerationReused()
			telemetry.Info("summary.reused", map[string]any{
				"user_id":     userID,
				"document_id": docID,
				"summary_id":  existing.ID,
			})
			return Outcome{Summary: existing, Provider: existing.Provider, Reused: true}, nil
		}
	case errors.Is(err, documents.ErrSummaryNotFound):
	default:
		return Outcome{}, err
	}

	res, err := s.summarize(ctx, userID, docID, doc.RawText, opts)
	if err != nil {
		return Outcome{}, err
	}
	gen := generation(res, opts, s.clock())

	if existing.ID != "" {
		updated, err := s.Repo.UpdateGeneration(ctx, userID, existing.ID, gen)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Summary: updated, Provider: res.Provider}, nil
	}

	created := documents.Summary{
		ID:               uuid.NewString(),
		DocumentID:       docID,
		UserID:           userID,
		OriginalText:     doc.RawText,
		GeneratedSummary: gen.Summary,
		Tone:             gen.Tone,
		CustomPrompt:     gen.CustomPrompt,
		MaxLength:        gen.MaxLength,
		Provider:         gen.Provider,
		CreatedAt:        gen.At,
		UpdatedAt:        gen.At,
	}
	err = s.Repo.CreateSummary(ctx, created)
	if errors.Is(err, documents.ErrSummaryExists) {
		// Lost an insert race; apply this generation to the winner's row.
		winner, getErr := s.Repo.GetSummaryByDocument(ctx, userID, docID)
		if getErr != nil {
			return Outcome{}, getErr
		}
		updated, err := s.Repo.UpdateGeneration(ctx, userID, winner.ID, gen)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Summary: updated, Provider: res.Provider}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Summary: created, Provider: res.Provider}, nil
}

// Regenerate produces a new generation for an existing summary. At least one
// of tone or custom prompt must be supplied. A saved edit is kept.
func (s *Service) Regenerate(ctx context.Context, userID string, in RegenerateInput) (Outcome, error) {
	if err := s.ready(); err != nil {
		return Outcome{}, err
	}
	summaryID := strings.TrimSpace(in.SummaryID)
	if summaryID == "" {
		return Outcome{}, apperr.Validation("summaryId", "summaryId is required")
	}
	if strings.TrimSpace(in.Tone) == "" && strings.TrimSpace(in.CustomPrompt) == "" {
		return Outcome{}, apperr.Validation("customPrompt", "provide a customPrompt or tone to regenerate")
	}
	opts, err := normalizeOptions(in.Tone, in.CustomPrompt, in.MaxLength)
	if err != nil {
		return Outcome{}, err
	}
	if !documents.ValidID(summaryID) {
		return Outcome{}, documents.ErrSummaryNotFound
	}
	ctx, cancel := s.detach(ctx)
	defer cancel()

	current, err := s.Repo.GetSummary(ctx, userID, summaryID)
	if err != nil {
		return Outcome{}, err
	}
	res, err := s.summarize(ctx, userID, current.DocumentID, current.OriginalText, opts)
	if err != nil {
		return Outcome{}, err
	}
	updated, err := s.Repo.UpdateGeneration(ctx, userID, current.ID, generation(res, opts, s.clock()))
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Summary: updated, Provider: res.Provider}, nil
}

// SaveEdit stores a human edit of the summary. It is the only writer of the
// edited text.
func (s *Service) SaveEdit(ctx context.Context, userID, documentID, summaryID, text string) (documents.Summary, error) {
	if err := s.ready(); err != nil {
		return documents.Summary{}, err
	}
	if strings.TrimSpace(summaryID) == "" {
		return documents.Summary{}, apperr.Validation("summaryId", "summaryId is required")
	}
	if strings.TrimSpace(text) == "" {
		return documents.Summary{}, apperr.Validation("editedSummary", "edited summary cannot be empty")
	}
	if limit := s.Validator.Limits().MaxTextChars; validation.CharCount(text) > limit {
		return documents.Summary{}, apperr.Validation("editedSummary", fmt.Sprintf("edited summary exceeds %d characters", limit))
	}
	if !documents.ValidID(documentID) || !documents.ValidID(summaryID) {
		return documents.Summary{}, documents.ErrSummaryNotFound
	}

	updated, err := s.Repo.UpdateEdit(ctx, userID, documentID, summaryID, text)
	if err != nil {
		return documents.Summary{}, err
	}
	telemetry.Info("summary.edited", map[string]any{
		"user_id":     userID,
		"document_id": documentID,
		"summary_id":  summaryID,
	})
	return updated, nil
}

// Rephrase rewrites a span using the primary provider. Nothing is stored.
func (s *Service) Rephrase(ctx context.Context, userID string, in RephraseInput) (RephraseResult, error) {
	instruction, err := resolveInstruction(in.Prompt, in.Preset)
	if err != nil {
		return RephraseResult{}, err
	}

	span := in.Text
	ranged := in.FullText != nil || in.Start != nil || in.End != nil
	if ranged {
		if in.FullText == nil || in.Start == nil || in.End == nil {
			return RephraseResult{}, apperr.Validation("selectionStart", "fullText, selectionStart and selectionEnd must be sent together")
		}
		selected, err := slice(*in.FullText, *in.Start, *in.End)
		if err != nil {
			return RephraseResult{}, err
		}
		if span == "" {
			span = selected
		} else if span != selected {
			return RephraseResult{}, apperr.Validation("text", "text does not match the selected range")
		}
	}
	if strings.TrimSpace(span) == "" {
		return RephraseResult{}, apperr.Validation("text", "text is required")
	}
	if limit := s.Validator.Limits().MaxTextChars; validation.CharCount(span) > limit {
		return RephraseResult{}, apperr.Validation("text", fmt.Sprintf("text exceeds %d characters", limit))
	}
	if s.LLM == nil {
		return RephraseResult{}, llm.ErrNotConfigured
	}

	rephrased, err := s.LLM.Rephrase(ctx, span, instruction)
	if err != nil {
		telemetry.Warn("summary.rephrase_failed", map[string]any{"user_id": userID, "error": err})
		return RephraseResult{}, err
	}

	out := RephraseResult{Rephrased: rephrased, OriginalText: span}
	if ranged {
		spliced, err := Splice(*in.FullText, *in.Start, *in.End, rephrased)
		if err != nil {
			return RephraseResult{}, err
		}
		out.Spliced = &spliced
	}
	return out, nil
}

// Splice replaces the characters [start, end) of full with replacement.
// Offsets count characters, not bytes.
func Splice(full string, start, end int, replacement string) (string, error) {
	runes := []rune(full)
	if err := checkRange(len(runes), start, end); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(full) + len(replacement))
	b.WriteString(string(runes[:start]))
	b.WriteString(replacement)
	b.WriteString(string(runes[end:]))
	return b.String(), nil
}

func slice(full string, start, end int) (string, error) {
	runes := []rune(full)
	if err := checkRange(len(runes), start, end); err != nil {
		return "", err
	}
	return string(runes[start:end]), nil
}

func checkRange(n, start, end int) error {
	if start < 0 || end > n {
		return apperr.Validation("selectionStart", "selection is outside the text")
	}
	if start >= end {
		return apperr.Validation("selectionEnd", "selectionEnd must be greater than selectionStart")
	}
	return nil
}

func resolveInstruction(prompt, preset string) (string, error) {
	if p := strings.TrimSpace(prompt); p != "" {
		return p, nil
	}
	if strings.TrimSpace(preset) != "" {
		instruction, ok := llm.PresetInstruction(preset)
		if !ok {
			return "", apperr.Validation("preset", "unknown rephrase preset")
		}
		return instruction, nil
	}
	return "", apperr.Validation("prompt", "prompt is required")
}

func (s *Service) summarize(ctx context.Context, userID, docID, text string, opts llm.Options) (llm.Result, error) {
	if s.LLM == nil {
		return llm.Result{}, llm.ErrNotConfigured
	}
	metrics.IncGenerationStarted()
	start := time.Now()
	res, err := s.LLM.Summarize(ctx, text, opts)
	metrics.ObserveGenerationDurationMs(float64(time.Since(start).Milliseconds()))
	fields := map[string]any{
		"user_id":     userID,
		"document_id": docID,
		"tone":        string(opts.Tone),
		"max_length":  opts.MaxLength,
		"custom":      opts.CustomPrompt != "",
	}
	if err != nil {
		metrics.IncGenerationFailed()
		fields["error"] = err
		telemetry.Warn("summary.generation_failed", fields)
		return llm.Result{}, err
	}
	metrics.IncGenerationCompleted()
	fields["provider"] = res.Provider
	telemetry.Info("summary.generated", fields)
	return res, nil
}

func normalizeOptions(tone, customPrompt string, maxLength int) (llm.Options, error) {
	n, ok := llm.NormalizeMaxLength(maxLength)
	if !ok {
		return llm.Options{}, apperr.Validation("maxLength", fmt.Sprintf("maxLength must be between 1 and %d", llm.MaxMaxLength))
	}
	return llm.Options{
		Tone:         llm.ParseTone(tone),
		CustomPrompt: strings.TrimSpace(customPrompt),
		MaxLength:    n,
	}, nil
}

func params(opts llm.Options) documents.Generation {
	return documents.Generation{
		Tone:         string(opts.Tone),
		CustomPrompt: opts.CustomPrompt,
		MaxLength:    opts.MaxLength,
	}
}

func generation(res llm.Result, opts llm.Options, at time.Time) documents.Generation {
	g := params(opts)
	g.Summary = res.Summary
	g.Provider = res.Provider
	g.At = at
	return g
}
