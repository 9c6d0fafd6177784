//go:build windows

package platform

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32              = windows.NewLazySystemDLL("user32.dll")
	setWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	callNextHookEx      = user32.NewProc("CallNextHookEx")
	unhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	peekMessage         = user32.NewProc("PeekMessageW")
)

const (
	whKeyboardLL = 13
	wmKeydown    = 0x0100
	wmKeyup      = 0x0101
	wmSyskeydown = 0x0104
	wmSyskeyup   = 0x0105
	pmRemove     = 0x0001
)

type kbdllhookstruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

// WindowsKeySource reports every key transition through a low-level keyboard hook
type WindowsKeySource struct {
	mu     sync.Mutex
	events chan KeyEvent
	hook   uintptr
	done   chan struct{}
}

// NewKeySource creates a new Windows keyboard listener
func NewKeySource() KeySource {
	return &WindowsKeySource{}
}

// Listen installs the hook and streams key events until ctx is cancelled
func (s *WindowsKeySource) Listen(ctx context.Context) (<-chan KeyEvent, error) {
	s.mu.Lock()
	s.events = make(chan KeyEvent, 64)
	s.done = make(chan struct{})
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go s.runHook(errCh)

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	go func() {
		<-ctx.Done()
		close(s.done)
		s.mu.Lock()
		hook := s.hook
		s.mu.Unlock()
		if hook != 0 {
			unhookWindowsHookEx.Call(hook)
		}
	}()

	return s.events, nil
}

func (s *WindowsKeySource) runHook(errCh chan<- error) {
	// The hook is bound to the installing thread's message queue
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hookProc := func(nCode int32, wParam uintptr, lParam uintptr) uintptr {
		if nCode >= 0 {
			kbInfo := (*kbdllhookstruct)(unsafe.Pointer(lParam))
			s.handleKeyEvent(wParam, kbInfo)
		}
		r, _, _ := callNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
		return r
	}

	hook, _, err := setWindowsHookEx.Call(
		whKeyboardLL,
		windows.NewCallback(hookProc),
		0,
		0,
	)
	if hook == 0 {
		errCh <- fmt.Errorf("SetWindowsHookEx failed: %w", err)
		return
	}

	s.mu.Lock()
	s.hook = hook
	s.mu.Unlock()

	errCh <- nil

	var m msg
	for {
		select {
		case <-s.done:
			return
		default:
			r, _, _ := peekMessage.Call(
				uintptr(unsafe.Pointer(&m)),
				0,
				0,
				0,
				pmRemove,
			)
			if r != 0 {
				continue
			}
			time.Sleep(time.Millisecond)
		}
	}
}

// handleKeyEvent runs inside the hook callback and must never block
func (s *WindowsKeySource) handleKeyEvent(wParam uintptr, kbInfo *kbdllhookstruct) {
	var evt KeyEvent
	switch wParam {
	case wmKeydown, wmSyskeydown:
		evt.Type = Pressed
	case wmKeyup, wmSyskeyup:
		evt.Type = Released
	}
	evt.Key = KeyName(kbInfo.vkCode)

	select {
	case s.events <- evt:
	default:
	}
}
