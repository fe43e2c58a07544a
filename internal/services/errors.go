package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers classify stage failures. The engine inspects them to decide
// the terminal directory and the notification category; see FailsJob and
// Category.
var (
	ErrValidation   = errors.New("validation error")
	ErrToolNotFound = errors.New("tool not found")
	ErrDownload     = errors.New("download error")
	ErrPreview      = errors.New("preview error")
	ErrPlacement    = errors.New("placement error")
	ErrNotification = errors.New("notification error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrDownload
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailsJob reports whether err should push the job to the error terminal
// state. Preview and notification failures are observational by contract.
func FailsJob(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrPreview) && !errors.Is(err, ErrNotification)
}

// Rejected reports whether err is a descriptor-level validation failure, which
// skips staging entirely and notifies with the rejected category.
func Rejected(err error) bool {
	return errors.Is(err, ErrValidation)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
