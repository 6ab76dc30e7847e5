package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID        string           `json:"id"`
	Filename  string           `json:"filename"`
	FileType  string           `json:"file_type"`
	RawText   string           `json:"raw_text"`
	FileURL   *string          `json:"file_url"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Summary   *SummaryResponse `json:"summary"`
}

// SummaryResponse is the outward-facing representation of a summary.
// DisplaySummary is the text a client should show.
type SummaryResponse struct {
	ID                string    `json:"id"`
	DocumentID        string    `json:"document_id"`
	OriginalText      string    `json:"original_text"`
	GeneratedSummary  string    `json:"generated_summary"`
	EditedSummary     *string   `json:"edited_summary"`
	DisplaySummary    string    `json:"display_summary"`
	RegenerationCount int       `json:"regeneration_count"`
	Tone              string    `json:"tone"`
	CustomPrompt      string    `json:"custom_prompt,omitempty"`
	MaxLength         int       `json:"max_length"`
	Provider          string    `json:"provider,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type uploadTextRequest struct {
	Filename string `json:"filename"`
	FileType string `json:"file_type"`
	RawText  string `json:"raw_text"`
}

type uploadResponse struct {
	Document    DocumentResponse `json:"document"`
	TextPreview string           `json:"textPreview"`
}

type listResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Count     int                `json:"count"`
}

type getResponse struct {
	Document DocumentResponse `json:"document"`
}

// ToResponse renders a document without its summary.
func ToResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:        doc.ID,
		Filename:  doc.Filename,
		FileType:  string(doc.FileType),
		RawText:   doc.RawText,
		FileURL:   doc.FileURL,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// ToSummaryResponse renders a summary.
func ToSummaryResponse(s Summary) SummaryResponse {
	return SummaryResponse{
		ID:                s.ID,
		DocumentID:        s.DocumentID,
		OriginalText:      s.OriginalText,
		GeneratedSummary:  s.GeneratedSummary,
		EditedSummary:     s.EditedSummary,
		DisplaySummary:    s.Display(),
		RegenerationCount: s.RegenerationCount,
		Tone:              s.Tone,
		CustomPrompt:      s.CustomPrompt,
		MaxLength:         s.MaxLength,
		Provider:          s.Provider,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func toViewResponse(v DocumentView) DocumentResponse {
	resp := ToResponse(v.Document)
	if v.Summary != nil {
		sr := ToSummaryResponse(*v.Summary)
		resp.Summary = &sr
	}
	return resp
}
