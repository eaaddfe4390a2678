package ml

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ReplyShape names the layouts a model reply is known to arrive in.
type ReplyShape int

const (
	// ShapeUnknown is a reply none of the known layouts matched.
	ShapeUnknown ReplyShape = iota
	// ShapeText is a bare string: plain text or a JSON string literal.
	ShapeText
	// ShapeChoices is a chat completion with choices[0].message.content.
	ShapeChoices
	// ShapeContent is an object with a top-level "content" string.
	ShapeContent
	// ShapeTextField is an object with a top-level "text" string.
	ShapeTextField
)

func (s ReplyShape) String() string {
	switch s {
	case ShapeText:
		return "text"
	case ShapeChoices:
		return "choices"
	case ShapeContent:
		return "content"
	case ShapeTextField:
		return "text_field"
	default:
		return "unknown"
	}
}

// MaxRawDiagnostic bounds how much of an unrecognized reply is kept for diagnosis.
const MaxRawDiagnostic = 500

// Reply is a model response classified by shape.
type Reply struct {
	Shape   ReplyShape
	Content string // extracted text; empty for ShapeUnknown
	Raw     string // the reply as received
}

// TextReply wraps text that a client already extracted.
func TextReply(text string) Reply {
	return Reply{Shape: ShapeText, Content: text, Raw: text}
}

// DecodeReply classifies a raw response body.
func DecodeReply(body []byte) Reply {
	raw := string(body)
	trimmed := strings.TrimSpace(raw)

	if !gjson.Valid(trimmed) {
		return Reply{Shape: ShapeText, Content: raw, Raw: raw}
	}

	doc := gjson.Parse(trimmed)
	if doc.Type == gjson.String {
		return Reply{Shape: ShapeText, Content: doc.String(), Raw: raw}
	}
	if !doc.IsObject() {
		return Reply{Shape: ShapeUnknown, Raw: raw}
	}

	if v := doc.Get("choices.0.message.content"); v.Type == gjson.String {
		return Reply{Shape: ShapeChoices, Content: v.String(), Raw: raw}
	}
	if v := doc.Get("content"); v.Type == gjson.String {
		return Reply{Shape: ShapeContent, Content: v.String(), Raw: raw}
	}
	if v := doc.Get("text"); v.Type == gjson.String {
		return Reply{Shape: ShapeTextField, Content: v.String(), Raw: raw}
	}
	return Reply{Shape: ShapeUnknown, Raw: raw}
}

// UnrecognizedShapeError reports a reply whose layout is not one of the known shapes.
type UnrecognizedShapeError struct {
	Raw string // truncated to MaxRawDiagnostic characters
}

func (e *UnrecognizedShapeError) Error() string {
	return "unrecognized model response shape"
}

// Text returns the extracted content, or an *UnrecognizedShapeError.
func (r Reply) Text() (string, error) {
	switch r.Shape {
	case ShapeText, ShapeChoices, ShapeContent, ShapeTextField:
		return r.Content, nil
	case ShapeUnknown:
		return "", &UnrecognizedShapeError{Raw: Truncate(r.Raw, MaxRawDiagnostic)}
	default:
		panic(fmt.Sprintf("ml: unhandled reply shape %d", r.Shape))
	}
}

// Truncate returns at most maxLen characters of s.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
