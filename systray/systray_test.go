package systray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserCommand(t *testing.T) {
	const url = "http://localhost:8741"

	cmd, err := browserCommand("windows", url)
	require.NoError(t, err)
	assert.Equal(t, []string{"cmd", "/c", "start", url}, cmd.Args)

	cmd, err = browserCommand("darwin", url)
	require.NoError(t, err)
	assert.Equal(t, []string{"open", url}, cmd.Args)

	cmd, err = browserCommand("linux", url)
	require.NoError(t, err)
	assert.Equal(t, []string{"xdg-open", url}, cmd.Args)

	_, err = browserCommand("plan9", url)
	assert.Error(t, err)
}

func TestManagerQuitChannel(t *testing.T) {
	m := NewManager("", nil)
	select {
	case <-m.WaitForQuit():
		t.Fatal("quit closed before exit")
	default:
	}

	m.onExit()
	m.onExit()
	_, open := <-m.WaitForQuit()
	assert.False(t, open)
}
