package documents

import (
	"strings"
	"time"

	"summary-backend/internal/validation"
)

// Document is uploaded or pasted source text owned by a user.
type Document struct {
	ID        string              `db:"id"`
	UserID    string              `db:"user_id"`
	Filename  string              `db:"filename"`
	FileType  validation.FileType `db:"file_type"`
	RawText   string              `db:"raw_text"`
	FileURL   *string             `db:"file_url"`
	CreatedAt time.Time           `db:"created_at"`
	UpdatedAt time.Time           `db:"updated_at"`
}

// Summary is the machine-generated and optionally human-edited condensation
// of a Document. A document has at most one summary.
type Summary struct {
	ID                string    `db:"id"`
	DocumentID        string    `db:"document_id"`
	UserID            string    `db:"user_id"`
	OriginalText      string    `db:"original_text"`
	GeneratedSummary  string    `db:"generated_summary"`
	EditedSummary     *string   `db:"edited_summary"`
	RegenerationCount int       `db:"regeneration_count"`
	Tone              string    `db:"tone"`
	CustomPrompt      string    `db:"custom_prompt"`
	MaxLength         int       `db:"max_length"`
	Provider          string    `db:"provider"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// Display returns the edited text when present, otherwise the generated text.
func (s Summary) Display() string {
	if s.EditedSummary != nil && strings.TrimSpace(*s.EditedSummary) != "" {
		return *s.EditedSummary
	}
	return s.GeneratedSummary
}

// Generation is the output and parameters of one gateway call.
type Generation struct {
	Summary      string
	Tone         string
	CustomPrompt string
	MaxLength    int
	Provider     string
	At           time.Time
}

// SameParams reports whether g was requested with the same parameters as
// the latest generation stored on s.
func (s Summary) SameParams(g Generation) bool {
	return s.Tone == g.Tone && s.CustomPrompt == g.CustomPrompt && s.MaxLength == g.MaxLength
}
