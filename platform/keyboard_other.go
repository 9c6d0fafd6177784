//go:build !windows

package platform

import (
	"context"
	"errors"
)

type unsupportedKeySource struct{}

// NewKeySource returns a key source that fails to listen on platforms
// without a global keyboard hook
func NewKeySource() KeySource {
	return unsupportedKeySource{}
}

func (unsupportedKeySource) Listen(context.Context) (<-chan KeyEvent, error) {
	return nil, errors.New("platform: global keyboard hook unavailable on this platform")
}
