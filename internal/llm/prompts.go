package llm

import (
	"fmt"
	"math"
	"strings"
)

// Tone is a closed set of style presets for summaries.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneConcise      Tone = "concise"
	ToneDetailed     Tone = "detailed"
)

var tonePhrases = map[Tone]string{
	ToneProfessional: "professional, formal and precise",
	ToneCasual:       "friendly, relaxed and easy to read",
	ToneConcise:      "minimal, focused on the key points, highly condensed",
	ToneDetailed:     "thorough and comprehensive, keeping all relevant details",
}

// ParseTone maps raw onto a Tone. Unknown or empty values become
// ToneProfessional.
func ParseTone(raw string) Tone {
	t := Tone(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := tonePhrases[t]; ok {
		return t
	}
	return ToneProfessional
}

// Phrase returns the style description injected into the system prompt.
func (t Tone) Phrase() string {
	return tonePhrases[ParseTone(string(t))]
}

const (
	DefaultMaxLength = 300
	MaxMaxLength     = 4000

	rephraseMaxTokens = 500
	temperature       = 0.7
	topP              = 1.0
)

// NormalizeMaxLength applies the default to zero and reports whether n is in
// range.
func NormalizeMaxLength(n int) (int, bool) {
	if n == 0 {
		return DefaultMaxLength, true
	}
	if n < 1 || n > MaxMaxLength {
		return 0, false
	}
	return n, true
}

func maxTokensFor(maxLength int) int {
	if maxLength <= 0 {
		return 500
	}
	return int(math.Ceil(float64(maxLength) * 1.2))
}

func summarySystemPrompt(tone Tone) string {
	return fmt.Sprintf(`You are a document summarization assistant.
Extract the key information concisely and preserve important details.
Organize the summary with bullet points or short paragraphs.
Write in a %s style.
Respond in the same language as the source text.`, tone.Phrase())
}

func summaryUserPrompt(text, customPrompt string, maxLength int) string {
	if strings.TrimSpace(customPrompt) != "" {
		return fmt.Sprintf("Summarize the following text according to this instruction: %s\n\nText:\n%s", strings.TrimSpace(customPrompt), text)
	}
	return fmt.Sprintf("Summarize the following text in at most %d words.\n\nText:\n%s", maxLength, text)
}

func summaryRequest(text string, opts Options) Request {
	return Request{
		System:      summarySystemPrompt(opts.Tone),
		User:        summaryUserPrompt(text, opts.CustomPrompt, opts.MaxLength),
		MaxTokens:   maxTokensFor(opts.MaxLength),
		Temperature: temperature,
		TopP:        topP,
	}
}

const rephraseSystemPrompt = `You are a text editing assistant.
Rewrite only the text you are given, following the user's instruction.
Keep the original language unless the instruction says otherwise.
Return only the rewritten text, with no explanations, quotes or preamble.`

func rephraseRequest(span, instruction string) Request {
	return Request{
		System:      rephraseSystemPrompt,
		User:        fmt.Sprintf("Instruction: %s\n\nText:\n%s", strings.TrimSpace(instruction), span),
		MaxTokens:   rephraseMaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}
}

// Preset is a canned rephrase instruction offered by the editor.
type Preset struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Instruction string `json:"instruction"`
}

var presets = []Preset{
	{ID: "simplify", Label: "Simplify", Instruction: "Rewrite this in simpler words that anyone can understand."},
	{ID: "professional", Label: "More professional", Instruction: "Rewrite this in a more professional and formal tone."},
	{ID: "casual", Label: "More casual", Instruction: "Rewrite this in a friendlier, more casual tone."},
	{ID: "shorten", Label: "Shorten", Instruction: "Make this shorter while keeping its meaning."},
	{ID: "expand", Label: "Expand", Instruction: "Expand this with a little more detail and explanation."},
}

// Presets lists the rephrase presets in display order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// PresetInstruction returns the instruction for id.
func PresetInstruction(id string) (string, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range presets {
		if p.ID == id {
			return p.Instruction, true
		}
	}
	return "", false
}
