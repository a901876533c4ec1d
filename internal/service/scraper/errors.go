package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/kapu/herobuilds-api-go/pkg/errors"
)

// StructureChangedError means the page rendered but the expected containers were missing.
type StructureChangedError struct {
	Message     string
	ParseErrors int
}

func (e *StructureChangedError) Error() string {
	return fmt.Sprintf("%s (parse errors: %d)", e.Message, e.ParseErrors)
}

func IsStructureError(err error) bool {
	var target *StructureChangedError
	return errors.As(err, &target)
}

// classifyRenderError maps a renderer failure onto an extraction cause.
func classifyRenderError(err error) apperrors.ExtractionCause {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.CauseTimeout
	case strings.Contains(err.Error(), "net::ERR_"), strings.Contains(err.Error(), "page load error"):
		return apperrors.CauseNavigation
	default:
		return apperrors.CauseRender
	}
}
