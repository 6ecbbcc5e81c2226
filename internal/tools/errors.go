package tools

import (
	"errors"
	"fmt"
)

// ErrMissing is the sentinel wrapped by every MissingError.
var ErrMissing = errors.New("required system tool not installed")

// MissingError reports an absent external binary together with
// installation guidance for the response body.
type MissingError struct {
	Tool Tool
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s (%s): %s", ErrMissing, e.Tool.Name, e.Tool.Description)
}

func (e *MissingError) Unwrap() error {
	return ErrMissing
}

// Detail returns the structured 503 response body for the missing tool.
func (e *MissingError) Detail() map[string]any {
	return map[string]any{
		"error":                     e.Error(),
		"tool":                      e.Tool.Name,
		"download_url":              e.Tool.DownloadURL,
		"installation_instructions": e.Tool.Instructions,
	}
}
