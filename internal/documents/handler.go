package documents

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"summary-backend/internal/shared/apperr"
	"summary-backend/internal/shared/server/middleware"
	"summary-backend/internal/shared/server/request"
	"summary-backend/internal/shared/server/respond"
	"summary-backend/internal/validation"
)

// multipartOverhead is allowed on top of the file limit for form framing.
const multipartOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/original", h.original)
	rg.DELETE("/documents/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var in UploadInput
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := h.readFile(c)
		if err != nil {
			respond.FromError(c, err)
			return
		}
		in.File = file
	} else {
		var req uploadTextRequest
		limit := request.TextBodyLimit(h.Svc.Validator.Limits().MaxTextChars, 1)
		if err := request.BindJSONLimit(c, &req, limit); err != nil {
			respond.FromError(c, err)
			return
		}
		in.Text = &TextUpload{Filename: req.Filename, FileType: req.FileType, RawText: req.RawText}
	}

	res, err := h.Svc.Upload(c.Request.Context(), userID, in)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set("documentId", res.Document.ID)
	respond.Created(c, uploadResponse{
		Document:    ToResponse(res.Document),
		TextPreview: res.TextPreview,
	})
}

func (h *Handler) readFile(c *gin.Context) (*FileUpload, error) {
	v := validation.New(validation.DefaultLimits())
	if h.Svc != nil && h.Svc.Validator != nil {
		v = h.Svc.Validator
	}
	maxBytes := v.Limits().MaxFileBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperr.Validation("file", "file exceeds the upload limit")
		}
		return nil, apperr.Validation("file", "file is required")
	}
	if fileHeader.Size > maxBytes {
		return nil, v.ValidateFile(fileHeader.Filename, fileHeader.Size, "")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, apperr.Validation("file", "unable to read file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, apperr.Validation("file", "unable to read file")
	}

	return &FileUpload{
		Name:     fileHeader.Filename,
		Size:     int64(len(data)),
		MimeType: fileHeader.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := queryInt(c, "limit", 0)
	offset := queryInt(c, "offset", 0)

	views, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.FromError(c, err)
		return
	}

	resp := listResponse{Documents: make([]DocumentResponse, 0, len(views))}
	for _, v := range views {
		resp.Documents = append(resp.Documents, toViewResponse(v))
	}
	resp.Count = len(resp.Documents)
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	c.Set("documentId", id)

	view, err := h.Svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, getResponse{Document: toViewResponse(view)})
}

func (h *Handler) original(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	c.Set("documentId", id)

	doc, rc, err := h.Svc.OpenOriginal(c.Request.Context(), userID, id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	defer rc.Close()

	contentType := validation.MimeForType(doc.FileType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	c.Set("documentId", id)

	if err := h.Svc.Delete(c.Request.Context(), userID, id); err != nil {
		respond.FromError(c, err)
		return
	}
	respond.Message(c, "document deleted")
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}
