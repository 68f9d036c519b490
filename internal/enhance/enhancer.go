// Package enhance provides the AI enhancement boundary: rewriting a
// prompt's text to be clearer, more specific, or better contextualized.
package enhance

import (
	"context"
	"fmt"
	"strings"
)

// Type selects the enhancement instruction.
type Type string

const (
	TypeClarity     Type = "clarity"
	TypeSpecificity Type = "specificity"
	TypeContext     Type = "context"
)

// ParseType validates a caller-supplied enhancement type, defaulting to
// clarity when empty.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeClarity, TypeSpecificity, TypeContext:
		return Type(s), nil
	case "":
		return TypeClarity, nil
	default:
		return "", fmt.Errorf("unknown enhancement type %q", s)
	}
}

// Enhancer rewrites prompt text. Implementations must not mutate their
// input and should honor context cancellation.
type Enhancer interface {
	Enhance(ctx context.Context, text string, typ Type) (string, error)
}

// RuleEnhancer is the offline fallback used when no AI backend is
// configured. It appends structural scaffolding rather than rewriting.
type RuleEnhancer struct{}

func (RuleEnhancer) Enhance(_ context.Context, text string, typ Type) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("nothing to enhance")
	}

	var addition string
	switch typ {
	case TypeSpecificity:
		addition = "Be specific: name exact inputs, outputs, and constraints. Avoid vague qualifiers."
	case TypeContext:
		addition = "Context: state the audience, the domain, and any assumptions before the task."
	default:
		addition = "Respond with a clear structure: goal first, then steps, then the expected format."
	}
	return text + "\n\n" + addition, nil
}
