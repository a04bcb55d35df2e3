// Package validation checks inbound payloads at the transport boundary,
// before anything reaches the services.
package validation

import (
	"chat-relay/errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Struct validates v and reports every failure as errors.ErrInvalidPayload.
func Struct(v any) error {
	if err := instance().Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}

// ContentLength checks a message body against the configured maximum length,
// counted in runes after trimming. Emptiness is the sanitizer's call.
func ContentLength(content string, maxLength int) error {
	trimmed := strings.TrimSpace(content)
	if err := instance().Var(trimmed, fmt.Sprintf("max=%d", maxLength)); err != nil {
		return fmt.Errorf("%w: content exceeds %d characters", errors.ErrInvalidPayload, maxLength)
	}
	return nil
}
