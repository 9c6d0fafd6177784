package systray

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
)

// Manager manages the system tray icon and menu
type Manager struct {
	dashboardURL string
	iconData     []byte
	quit         chan struct{}
	quitOnce     sync.Once
}

// NewManager creates a tray manager. An empty dashboardURL hides the
// "Open Web UI" entry.
func NewManager(dashboardURL string, iconData []byte) *Manager {
	return &Manager{
		dashboardURL: dashboardURL,
		iconData:     iconData,
		quit:         make(chan struct{}),
	}
}

// Run starts the system tray (blocking call, must own the main thread)
func (m *Manager) Run() {
	systray.Run(m.onReady, m.onExit)
}

// Stop removes the tray icon and makes Run return
func (m *Manager) Stop() {
	systray.Quit()
}

// WaitForQuit returns a channel that will be closed when user clicks Quit
func (m *Manager) WaitForQuit() <-chan struct{} {
	return m.quit
}

// onReady is called when the systray is ready
func (m *Manager) onReady() {
	if len(m.iconData) > 0 {
		systray.SetIcon(m.iconData)
	}

	systray.SetTitle("cliptrans")
	systray.SetTooltip("cliptrans - Copy twice to translate")

	var openCh <-chan struct{}
	if m.dashboardURL != "" {
		mOpenWebUI := systray.AddMenuItem("Open Web UI", "Open the cliptrans dashboard")
		openCh = mOpenWebUI.ClickedCh
		systray.AddSeparator()
	}
	mQuit := systray.AddMenuItem("Quit", "Exit cliptrans")

	go func() {
		for {
			select {
			case <-openCh:
				OpenBrowser(m.dashboardURL)
			case <-mQuit.ClickedCh:
				slog.Info("User requested quit from system tray")
				m.quitOnce.Do(func() { close(m.quit) })
				systray.Quit()
				return
			}
		}
	}()
}

// onExit is called when the systray is exiting
func (m *Manager) onExit() {
	slog.Info("System tray exited")
	m.quitOnce.Do(func() { close(m.quit) })
}

// OpenBrowser opens url in the default browser
func OpenBrowser(url string) {
	slog.Info("Opening web UI", "url", url)

	cmd, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		slog.Error("Failed to open web UI", "error", err)
		return
	}
	if err := cmd.Start(); err != nil {
		slog.Error("Failed to open web UI", "error", err)
	}
}

func browserCommand(goos, url string) (*exec.Cmd, error) {
	switch goos {
	case "windows":
		return exec.Command("cmd", "/c", "start", url), nil
	case "darwin":
		return exec.Command("open", url), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", url), nil
	default:
		return nil, fmt.Errorf("unsupported platform for opening browser: %s", goos)
	}
}
