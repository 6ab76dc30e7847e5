// Package validation holds the pure input checks applied to uploads and to
// text before it is sent for summarization.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"summary-backend/internal/shared/apperr"
)

// FileType identifies how a document's raw text was derived.
type FileType string

const (
	FileTypePDF     FileType = "pdf"
	FileTypeTXT     FileType = "txt"
	FileTypeMD      FileType = "md"
	FileTypeRawText FileType = "raw_text"
	FileTypeUnknown FileType = "unknown"
)

const (
	MimePDF      = "application/pdf"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
)

var allowedMimeTypes = map[string]struct{}{
	MimePDF:      {},
	MimeText:     {},
	MimeMarkdown: {},
}

var extensionTypes = map[string]FileType{
	"pdf":      FileTypePDF,
	"txt":      FileTypeTXT,
	"text":     FileTypeTXT,
	"md":       FileTypeMD,
	"markdown": FileTypeMD,
}

// Limits bounds accepted input.
type Limits struct {
	MaxFileBytes     int64
	MaxTextChars     int
	MaxTextWords     int
	MaxFilenameChars int
}

// DefaultLimits returns the stock bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxFileBytes:     10 << 20,
		MaxTextChars:     20000,
		MaxTextWords:     2000,
		MaxFilenameChars: 255,
	}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxFileBytes <= 0 {
		l.MaxFileBytes = def.MaxFileBytes
	}
	if l.MaxTextChars <= 0 {
		l.MaxTextChars = def.MaxTextChars
	}
	if l.MaxTextWords <= 0 {
		l.MaxTextWords = def.MaxTextWords
	}
	if l.MaxFilenameChars <= 0 {
		l.MaxFilenameChars = def.MaxFilenameChars
	}
	return l
}

// Validator applies Limits.
type Validator struct {
	limits Limits
}

// New constructs a Validator. Zero fields in limits take their defaults.
func New(limits Limits) *Validator {
	return &Validator{limits: limits.withDefaults()}
}

// Limits returns the effective bounds.
func (v *Validator) Limits() Limits {
	return v.limits
}

// ValidateFilename checks the display name of an upload.
func (v *Validator) ValidateFilename(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return apperr.Validation("filename", "filename is required")
	}
	if utf8.RuneCountInString(trimmed) > v.limits.MaxFilenameChars {
		return apperr.Validation("filename", fmt.Sprintf("filename must be at most %d characters", v.limits.MaxFilenameChars))
	}
	return nil
}

// ValidateFile checks filename, then size, then MIME type. The first failure
// is returned and later checks are not run.
func (v *Validator) ValidateFile(name string, size int64, mimeType string) error {
	if err := v.ValidateFilename(name); err != nil {
		return err
	}
	if size <= 0 {
		return apperr.Validation("file", "file is empty")
	}
	if size > v.limits.MaxFileBytes {
		return apperr.Validation("file", fmt.Sprintf("file exceeds %s", formatBytes(v.limits.MaxFileBytes)))
	}
	if _, ok := allowedMimeTypes[cleanMime(mimeType)]; !ok {
		return apperr.Validation("file", "unsupported file type; upload a PDF, plain text or Markdown file")
	}
	return nil
}

// ValidateRawText checks that text is non-empty and within the character and
// word bounds. Length is checked before word count.
func (v *Validator) ValidateRawText(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperr.Validation("raw_text", "text is required")
	}
	if CharCount(text) > v.limits.MaxTextChars {
		return apperr.Validation("raw_text", fmt.Sprintf("text exceeds %d characters", v.limits.MaxTextChars))
	}
	if WordCount(text) > v.limits.MaxTextWords {
		return apperr.Validation("raw_text", fmt.Sprintf("text exceeds %d words", v.limits.MaxTextWords))
	}
	return nil
}

// CharCount counts characters, not bytes.
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}

// WordCount counts whitespace-delimited tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// InferFileType maps a filename extension to a FileType. Unknown extensions
// yield FileTypeUnknown; callers decide whether that is acceptable.
func InferFileType(filename string) FileType {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(filename)), "."))
	if ft, ok := extensionTypes[ext]; ok {
		return ft
	}
	return FileTypeUnknown
}

// ParseFileType accepts the stored document types. Unknown is not stored.
func ParseFileType(raw string) (FileType, bool) {
	switch FileType(strings.ToLower(strings.TrimSpace(raw))) {
	case FileTypePDF:
		return FileTypePDF, true
	case FileTypeTXT:
		return FileTypeTXT, true
	case FileTypeMD:
		return FileTypeMD, true
	case FileTypeRawText:
		return FileTypeRawText, true
	default:
		return FileTypeUnknown, false
	}
}

// MimeForType returns the canonical MIME type for ft, or "" for types
// without one.
func MimeForType(ft FileType) string {
	switch ft {
	case FileTypePDF:
		return MimePDF
	case FileTypeTXT:
		return MimeText
	case FileTypeMD:
		return MimeMarkdown
	default:
		return ""
	}
}

// NormalizeMime resolves the effective MIME type of an upload. Browsers often
// send nothing or application/octet-stream for Markdown, so those fall back to
// the extension table.
func NormalizeMime(header, filename string) string {
	clean := cleanMime(header)
	switch clean {
	case "", "application/octet-stream":
		return MimeForType(InferFileType(filename))
	case "text/x-markdown":
		return MimeMarkdown
	default:
		return clean
	}
}

func cleanMime(raw string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(raw, ";")[0]))
}

func formatBytes(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
