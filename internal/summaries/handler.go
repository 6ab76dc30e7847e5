package summaries

import (
	"github.com/gin-gonic/gin"

	"summary-backend/internal/documents"
	"summary-backend/internal/llm"
	"summary-backend/internal/shared/server/middleware"
	"summary-backend/internal/shared/server/request"
	"summary-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// textBodyLimit caps bodies that carry texts summary-sized string fields.
func (h *Handler) textBodyLimit(texts int) int64 {
	return request.TextBodyLimit(h.Svc.Validator.Limits().MaxTextChars, texts)
}

type summarizeRequest struct {
	DocumentID   string `json:"documentId"`
	Tone         string `json:"tone"`
	CustomPrompt string `json:"customPrompt"`
	MaxLength    int    `json:"maxLength"`
}

type regenerateRequest struct {
	SummaryID    string `json:"summaryId"`
	Tone         string `json:"tone"`
	CustomPrompt string `json:"customPrompt"`
	MaxLength    int    `json:"maxLength"`
}

type rephraseRequest struct {
	Text           string  `json:"text"`
	Prompt         string  `json:"prompt"`
	Preset         string  `json:"preset"`
	FullText       *string `json:"fullText"`
	SelectionStart *int    `json:"selectionStart"`
	SelectionEnd   *int    `json:"selectionEnd"`
}

type editRequest struct {
	SummaryID     string `json:"summaryId"`
	EditedSummary string `json:"editedSummary"`
}

type summaryResponse struct {
	Summary  documents.SummaryResponse `json:"summary"`
	Provider string                    `json:"provider,omitempty"`
	Reused   bool                      `json:"reused,omitempty"`
}

type rephraseResponse struct {
	Rephrased    string  `json:"rephrased"`
	OriginalText string  `json:"originalText"`
	Spliced      *string `json:"spliced,omitempty"`
}

// RegisterRoutes attaches summary routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/summarize", h.summarize)
	rg.POST("/regenerate", h.regenerate)
	rg.POST("/rephrase", h.rephrase)
	rg.GET("/rephrase/presets", h.presets)
	rg.PUT("/documents/:id/summaries", h.saveEdit)
}

func (h *Handler) summarize(c *gin.Context) {
	var req summarizeRequest
	if err := request.BindJSON(c, &req); err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set("documentId", req.DocumentID)

	out, err := h.Svc.Generate(c.Request.Context(), middleware.UserIDFromContext(c), GenerateInput{
		DocumentID:   req.DocumentID,
		Tone:         req.Tone,
		CustomPrompt: req.CustomPrompt,
		MaxLength:    req.MaxLength,
	})
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set("summaryId", out.Summary.ID)
	respond.OK(c, toSummaryResponse(out))
}

func (h *Handler) regenerate(c *gin.Context) {
	var req regenerateRequest
	if err := request.BindJSON(c, &req); err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set("summaryId", req.SummaryID)

	out, err := h.Svc.Regenerate(c.Request.Context(), middleware.UserIDFromContext(c), RegenerateInput{
		SummaryID:    req.SummaryID,
		Tone:         req.Tone,
		CustomPrompt: req.CustomPrompt,
		MaxLength:    req.MaxLength,
	})
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set("documentId", out.Summary.DocumentID)
	respond.OK(c, toSummaryResponse(out))
}

func (h *Handler) rephrase(c *gin.Context) {
	var req rephraseRequest
	if err := request.BindJSONLimit(c, &req, h.textBodyLimit(2)); err != nil {
		respond.FromError(c, err)
		return
	}

	out, err := h.Svc.Rephrase(c.Request.Context(), middleware.UserIDFromContext(c), RephraseInput{
		Text:     req.Text,
		Prompt:   req.Prompt,
		Preset:   req.Preset,
		FullText: req.FullText,
		Start:    req.SelectionStart,
		End:      req.SelectionEnd,
	})
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, rephraseResponse{
		Rephrased:    out.Rephrased,
		OriginalText: out.OriginalText,
		Spliced:      out.Spliced,
	})
}

func (h *Handler) presets(c *gin.Context) {
	respond.OK(c, gin.H{"presets": llm.Presets()})
}

func (h *Handler) saveEdit(c *gin.Context) {
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	var req editRequest
	if err := request.BindJSONLimit(c, &req, h.textBodyLimit(1)); err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set("summaryId", req.SummaryID)

	updated, err := h.Svc.SaveEdit(c.Request.Context(), middleware.UserIDFromContext(c), documentID, req.SummaryID, req.EditedSummary)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"summary": documents.ToSummaryResponse(updated),
		"message": "summary saved",
	})
}

func toSummaryResponse(out Outcome) summaryResponse {
	return summaryResponse{
		Summary:  documents.ToSummaryResponse(out.Summary),
		Provider: out.Provider,
		Reused:   out.Reused,
	}
}
