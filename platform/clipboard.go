package platform

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// SystemClipboard implements the Clipboard interface on top of the OS clipboard
type SystemClipboard struct{}

// NewClipboard creates a new system clipboard instance
func NewClipboard() Clipboard {
	return &SystemClipboard{}
}

// Get retrieves text from the clipboard. An empty or non-text clipboard
// yields an empty string.
func (c *SystemClipboard) Get() (string, error) {
	if clipboard.Unsupported {
		return "", fmt.Errorf("clipboard not supported on this system")
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return text, nil
}

// Set sets text to the clipboard
func (c *SystemClipboard) Set(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}
