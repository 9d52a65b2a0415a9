package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	jsonFence  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

	structValidator = validator.New(validator.WithRequiredStructEnabled())
)

// Validator is implemented by every structured result type.
type Validator interface {
	Validate() error
}

// ValidateStruct runs the `validate` tags of v.
func ValidateStruct(v interface{}) error {
	return structValidator.Struct(v)
}

// ExtractJSON strips reasoning blocks and markdown fences and returns the outermost JSON object.
func ExtractJSON(text string) string {
	text = thinkBlock.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if m := jsonFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

func DecodeJSON(text string, out interface{}) error {
	if err := json.Unmarshal([]byte(ExtractJSON(text)), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// Complete runs req through c and decodes the first valid answer into T.
// A value that fails decoding or validation makes the pool move to the next provider.
func Complete[T Validator](ctx context.Context, c Completer, req Request) (T, error) {
	var result T
	err := c.Complete(ctx, req, func(text string) error {
		var candidate T
		if err := DecodeJSON(text, &candidate); err != nil {
			return err
		}
		if err := candidate.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		result = candidate
		return nil
	})
	return result, err
}
