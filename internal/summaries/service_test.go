package summaries

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"summary-backend/internal/documents"
	"summary-backend/internal/llm"
	"summary-backend/internal/shared/apperr"
	"summary-backend/internal/validation"
)

type fakeGenerator struct {
	mu         sync.Mutex
	summaries  []string
	err        error
	calls      int
	lastOpts   llm.Options
	lastText   string
	rephrased  string
	rephraseIn string
	// during runs inside Summarize before the result is returned.
	during func()
	ctxErr error
}

func (f *fakeGenerator) Summarize(ctx context.Context, text string, opts llm.Options) (llm.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastOpts = opts
	f.lastText = text
	if f.during != nil {
		f.during()
	}
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return llm.Result{}, f.err
	}
	out := "summary"
	if len(f.summaries) > 0 {
		out = f.summaries[0]
		f.summaries = f.summaries[1:]
	}
	return llm.Result{Summary: out, Provider: "primary"}, nil
}

func (f *fakeGenerator) Rephrase(ctx context.Context, span, instruction string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rephraseIn = span
	if f.err != nil {
		return "", f.err
	}
	return f.rephrased, nil
}

type stubProvider struct {
	name string
	out  string
	err  error
}

func (p stubProvider) Name() string     { return p.name }
func (p stubProvider) Configured() bool { return true }
func (p stubProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	return p.out, p.err
}

func newTestService(t *testing.T, gen Generator) (*Service, *documents.MemoryRepo) {
	t.Helper()
	repo := documents.NewMemoryRepo()
	svc := NewService(repo, gen, validation.New(validation.DefaultLimits()))
	return svc, repo
}

func seedDocument(t *testing.T, repo *documents.MemoryRepo, userID, text string) documents.Document {
	t.Helper()
	now := time.Now().UTC()
	doc := documents.Document{
		ID:        uuid.NewString(),
		UserID:    userID,
		Filename:  "notes.txt",
		FileType:  validation.FileTypeTXT,
		RawText:   text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreateDocument(context.Background(), doc))
	return doc
}

func TestGenerateCreatesSummaryWithZeroCount(t *testing.T) {
	gen := &fakeGenerator{summaries: []string{"- point"}}
	svc, repo := newTestService(t, gen)
	doc := seedDocument(t, repo, "alice", "Quarterly revenue grew 12 percent.")

	out, err := svc.Generate(context.Background(), "alice", GenerateInput{DocumentID: doc.ID})
	require.NoError(t, err)
	assert.False(t, out.Reused)
	assert.Equal(t, "primary", out.Provider)
	assert.Equal(t, "- point", out.Summary.GeneratedSummary)
	assert.Equal(t, 0, out.Summary.RegenerationCount)
	assert.Equal(t, doc.RawText, out.Summary.OriginalText)
	assert.Equal(t, llm.ToneProfessional, gen.lastOpts.Tone)
	assert.Equal(t, llm.DefaultMaxLength, gen.lastOpts.MaxLength)

	stored, err := repo.GetSummaryByDocument(context.Background(), "alice", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Summary.ID, stored.ID)
}

func TestGenerateIsIdempotentForSameParameters(t *testing.T) {
	gen := &fakeGenerator{summaries: []string{"first", "second"}}
	svc, repo := newTestService(t, gen)
	doc := seedDocument(t, repo, "alice", "Some text worth summarizing.")
	ctx := context.Background()

	first, err := svc.Generate(ctx, "alice", GenerateInput{DocumentID: doc.ID, Tone: "casual"})
	require.NoError(t, err)
	again, err := svc.Generate(ctx, "alice", GenerateInput{DocumentID: doc.ID, Tone: " Casual ", MaxLength: 300})
	require.NoError(t, err)

	assert.True(t, again.Reused)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, first.Summary.ID, again.Summary.ID)
	assert.Equal(t, "first", again.Summary.GeneratedSummary)
	assert.Equal(t, 0, again.Summary.RegenerationCount)
}

func TestGenerateWithNewParametersUpdatesInPlace(t *testing.T) {
	gen := &fakeGenerator{summaries: []string{"first", "second"}}
	svc, repo := newTestService(t, gen)
	doc := seedDocument(t, repo, "alice", "Some text worth summarizing.")
	ctx := context.Background()

	first, err := svc.Generate(ctx, "alice", GenerateInput{DocumentID: doc.ID})
	require.NoError(t, err)
	second, err := svc.Generate(ctx, "alice", GenerateInput{DocumentID: doc.ID, CustomPrompt: "focus on numbers"})
	require.NoError(t, err)

	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, first.Summary.ID, second.Summary.ID)
	assert.Equal(t, "second", second.Summary.GeneratedSummary)
	assert.Equal(t, 1, second.Summary.RegenerationCount)
	assert.Equal(t, "focus on numbers", second.Summary.CustomPrompt)
}

func TestGenerateFailureStoresNothing(t *testing.T) {
	gateway := llm.NewGateway(
		stubProvider{name: "github-models", err: errors.New("upstream 500")},
		stubProvider{name: "openrouter", out: "   "},
	)
	svc, repo := newTestService(t, gateway)
	doc := seedDocument(t, repo, "alice", "Text that will fail.")

	_, err := svc.Generate(context.Background(), "alice", GenerateInput{DocumentID: doc.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrGeneration)
	assert.Equal(t, 500, apperr.Status(err))
	assert.NotContains(t, apperr.PublicMessage(err), "upstream")

	_, err = repo.GetSummaryByDocument(context.Background(), "alice", doc.ID)
	assert.ErrorIs(t, err, documents.ErrSummaryNotFound)
}

func TestGenerateFallsBackToSecondaryProvider(t *testing.T) {
	gateway := llm.NewGateway(
		stubProvider{name: "github-models", err: errors.New("timeout")},
		stubProvider{name: "openrouter", out: "fallback summary"},
	)
	svc, repo := newTestService(t, gateway)
	doc := seedDocument(t, repo, "alice", "Text for the fallback path.")

	out, err := svc.Generate(context.Background(), "alice", GenerateInput{DocumentID: doc.ID})
	require.NoError(t, err)
	assert.Equal(t, "openrouter", out.Provider)
	assert.Equal(t, "fallback summary", out.Summary.GeneratedSummary)
	assert.Equal(t, "openrouter", out.Summary.Provider)
}

func TestGenerateWithoutProvidersIsNotConfigured(t *testing.T) {
	svc, repo := newTestService(t, llm.NewGateway())
	doc := seedDocument(t, repo, "alice", "Text.")

	_, err := svc.Generate(context.Background(), "alice", GenerateInput{DocumentID: doc.ID})
	assert.ErrorIs(t, err, apperr.ErrNotConfigured)
	assert.Equal(t, 503, apperr.Status(err))
}

func TestGenerateValidation(t *testing.T) {
	gen := &fakeGenerator{}
	svc, repo := newTestService(t, gen)
	doc := seedDocument(t, repo, "alice", "Text.")
	ctx := context.Background()

	_, err := svc.Generate(ctx, "alice", GenerateInput{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Generate(ctx, "alice", GenerateInput{DocumentID: doc.ID, MaxLength: 5000})
	var fe *apperr.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "maxLength", fe.Field)

	_, err = svc.Generate(ctx, "alice", GenerateInput{DocumentID: "not-a-uuid"})
	assert.ErrorIs(t, err, documents.ErrNotFound)
	assert.Zero(t, gen.calls)
}

func TestGenerateRevalidatesStoredText(t *testing.T) {
	gen := &fakeGenerator{}
	repo := documents.NewMemoryRepo()
	svc := NewService(repo, gen, validation.New(validation.Limits{MaxTextWords: 3}))
	doc := seedDocument(t, repo, "alice", "one two three four")

	_, err := svc.Generate(context.Background(), "alice", GenerateInput{DocumentID: doc.ID})
	var fe *apperr.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "raw_text", fe.Field)
	assert.Zero(t, gen.calls)
}

func TestRegenerateKeepsEdit(t *testing.T) {
	gen := &fakeGenerator{summaries: []string{"v1", "v2"}}
	svc, repo := newTestService(t, gen)
	doc := seedDocument(t, repo, "alice", "The original document text.")
	ctx := context.Background()

	first, err := svc.Generate(ctx, "alice", GenerateInput{DocumentID: doc.ID})
	require.NoError(t, err)
	_, err = svc.SaveEdit(ctx, "alice", doc.ID, first.Summary.ID, "X")
	require.NoError(t, err)

	out, err := svc.Regenerate(ctx, "alice", RegenerateInput{SummaryID: first.Summary.ID, Tone: "casual"})
	require.NoError(t, err)

	assert.Equal(t, "v2", out.Summary.GeneratedSummary)
	require.NotNil(t, out.Summary.EditedSummary)
	assert.Equal(t, "X", *out.Summary.EditedSummary)
	assert.Equal(t, "X", out.Summary.Display())
	assert.Equal(t, 1, out.Summary.RegenerationCount)
	assert.Equal(t, doc.RawText, gen.lastText)
	assert.Equal(t, llm.ToneCasual, gen.lastOpts.Tone)
}

func TestRegenerateAlwaysIncrements(t *testing.T) {
	gen := &fakeGenerator{}
	svc, repo := newTestService(t, gen)
	doc := seedDocument(t, repo, "alice", "Text.")
	ctx := context.Background()

	first, err := svc.Generate(ctx, "alice", GenerateInput{DocumentID: doc.ID})
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		out, err := svc.Regenerate(ctx, "alice", RegenerateInput{SummaryID: first.Summary.ID, Tone: "professional"})
		require.NoError(t, err)
		assert.Equal(t, i, out.Summary.RegenerationCount)
	}
}

func TestRegenerateRequiresToneOrPrompt(t *testing.T) {
	gen := &fakeGenerator{}
	svc, _ := newTestService(t, gen)

	_, err := svc.Regenerate(context.Background(), "alice", RegenerateInput{SummaryID: uuid.NewString(), CustomPrompt: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, gen.calls)
}

func TestOwnershipIsolation(t *testing.T) {
	gen := &fakeGenerator{}
	svc, repo := newTestService(t, gen)
	doc := seedDocument(t, repo, "alice", "Alice's private notes.")
	ctx := context.Background()

	own, err := svc.Generate(ctx, "alice", GenerateInput{DocumentID: doc.ID})
	require.NoError(t, err)
	calls := gen.calls

	_, err = svc.Generate(ctx, "bob", GenerateInput{DocumentID: doc.ID})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Regenerate(ctx, "bob", RegenerateInput{SummaryID: own.Summary.ID, Tone: "casual"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.SaveEdit(ctx, "bob", doc.ID, own.Summary.ID, "hijack")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, calls, gen.calls)

	stored, err := repo.GetSummary(ctx, "alice", own.Summary.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.EditedSummary)
	assert.Equal(t, 0, stored.RegenerationCount)
}

func TestSaveEditValidation(t *testing.T) {
	svc, repo := newTestService(t, &fakeGenerator{})
	doc := seedDocument(t, repo, "alice", "Text.")
	ctx := context.Background()

	out, err := svc.Generate(ctx, "alice", GenerateInput{DocumentID: doc.ID})
	require.NoError(t, err)

	_, err = svc.SaveEdit(ctx, "alice", doc.ID, out.Summary.ID, " \n\t ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.SaveEdit(ctx, "alice", uuid.NewString(), out.Summary.ID, "edit")
	assert.ErrorIs(t, err, documents.ErrSummaryNotFound)
}

func TestServiceWithoutRepoIsNotConfigured(t *testing.T) {
	svc := NewService(nil, &fakeGenerator{}, nil)
	_, err := svc.Generate(context.Background(), "alice", GenerateInput{DocumentID: uuid.NewString()})
	assert.Equal(t, 503, apperr.Status(err))
	_, err = svc.SaveEdit(context.Background(), "alice", uuid.NewString(), uuid.NewString(), "x")
	assert.Equal(t, 503, apperr.Status(err))
}

func TestSplice(t *testing.T) {
	tests := []struct {
		name        string
		full        string
		start, end  int
		replacement string
		want        string
		wantErr     bool
	}{
		{name: "middle", full: "The cat sat.", start: 4, end: 7, replacement: "feline", want: "The feline sat."},
		{name: "prefix", full: "abc", start: 0, end: 1, replacement: "X", want: "Xbc"},
		{name: "whole", full: "abc", start: 0, end: 3, replacement: "", want: ""},
		{name: "characters not bytes", full: "héllo wörld", start: 6, end: 11, replacement: "there", want: "héllo there"},
		{name: "empty range", full: "abc", start: 1, end: 1, wantErr: true},
		{name: "reversed", full: "abc", start: 2, end: 1, wantErr: true},
		{name: "past end", full: "abc", start: 1, end: 4, wantErr: true},
		{name: "negative", full: "abc", start: -1, end: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Splice(tt.full, tt.start, tt.end, tt.replacement)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRephraseSplicesSelection(t *testing.T) {
	gen := &fakeGenerator{rephrased: "feline"}
	svc, _ := newTestService(t, gen)
	full := "The cat sat."
	start, end := 4, 7

	out, err := svc.Rephrase(context.Background(), "alice", RephraseInput{
		Prompt:   "use a fancier word",
		FullText: &full,
		Start:    &start,
		End:      &end,
	})
	require.NoError(t, err)
	assert.Equal(t, "cat", gen.rephraseIn)
	assert.Equal(t, "cat", out.OriginalText)
	assert.Equal(t, "feline", out.Rephrased)
	require.NotNil(t, out.Spliced)
	assert.Equal(t, "The feline sat.", *out.Spliced)
}

func TestRephraseInputErrors(t *testing.T) {
	full := "The cat sat."
	start, end, bad := 4, 7, 40
	tests := []struct {
		name  string
		in    RephraseInput
		field string
	}{
		{name: "no prompt", in: RephraseInput{Text: "cat"}, field: "prompt"},
		{name: "unknown preset", in: RephraseInput{Text: "cat", Preset: "pirate"}, field: "preset"},
		{name: "no text", in: RephraseInput{Prompt: "shorter"}, field: "text"},
		{name: "partial range", in: RephraseInput{Prompt: "p", FullText: &full, Start: &start}, field: "selectionStart"},
		{name: "out of range", in: RephraseInput{Prompt: "p", FullText: &full, Start: &start, End: &bad}, field: "selectionStart"},
		{name: "mismatched text", in: RephraseInput{Text: "dog", Prompt: "p", FullText: &full, Start: &start, End: &end}, field: "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{rephrased: "x"}
			svc, _ := newTestService(t, gen)
			_, err := svc.Rephrase(context.Background(), "alice", tt.in)
			var fe *apperr.FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
			assert.Empty(t, gen.rephraseIn)
		})
	}
}

func TestRephrasePresetAndPrimaryOnly(t *testing.T) {
	gateway := llm.NewGateway(
		stubProvider{name: "github-models", err: errors.New("down")},
		stubProvider{name: "openrouter", out: "should not be used"},
	)
	svc, _ := newTestService(t, gateway)

	_, err := svc.Rephrase(context.Background(), "alice", RephraseInput{Text: "some words", Preset: "shorten"})
	assert.ErrorIs(t, err, apperr.ErrGeneration)

	svc.LLM = llm.NewGateway(stubProvider{name: "github-models", out: "fewer words"})
	out, err := svc.Rephrase(context.Background(), "alice", RephraseInput{Text: "some words", Preset: "shorten"})
	require.NoError(t, err)
	assert.Equal(t, "fewer words", out.Rephrased)
	assert.Nil(t, out.Spliced)
	assert.False(t, strings.Contains(out.Rephrased, "should not"))
}

func TestGenerateSurvivesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &fakeGenerator{summaries: []string{"- kept"}, during: cancel}
	svc, repo := newTestService(t, gen)
	doc := seedDocument(t, repo, "alice", "A document whose reader closed the tab.")

	out, err := svc.Generate(ctx, "alice", GenerateInput{DocumentID: doc.ID})
	require.NoError(t, err)
	assert.NoError(t, gen.ctxErr)
	assert.Equal(t, "- kept", out.Summary.GeneratedSummary)

	stored, err := repo.GetSummaryByDocument(context.Background(), "alice", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "- kept", stored.GeneratedSummary)
}

func TestRegenerateSurvivesCallerCancellation(t *testing.T) {
	gen := &fakeGenerator{summaries: []string{"first", "second"}}
	svc, repo := newTestService(t, gen)
	doc := seedDocument(t, repo, "alice", "Text to regenerate after a disconnect.")
	first, err := svc.Generate(context.Background(), "alice", GenerateInput{DocumentID: doc.ID})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen.during = cancel
	out, err := svc.Regenerate(ctx, "alice", RegenerateInput{SummaryID: first.Summary.ID, Tone: "casual"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Summary.RegenerationCount)

	stored, err := repo.GetSummary(context.Background(), "alice", first.Summary.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", stored.GeneratedSummary)
	assert.Equal(t, "casual", stored.Tone)
}

func TestGenerateHonoursServiceTimeout(t *testing.T) {
	gen := &fakeGenerator{}
	svc, repo := newTestService(t, gen)
	svc.GenerateTimeout = time.Nanosecond
	doc := seedDocument(t, repo, "alice", "Slow provider.")

	_, err := svc.Generate(context.Background(), "alice", GenerateInput{DocumentID: doc.ID})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, gen.calls)
}
