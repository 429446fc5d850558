// ABOUTME: Bridge connecting the console session to the Bubble Tea message loop.
// ABOUTME: Provides tea.Cmd factories for change notifications, prompt submission, and opening plots.
package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"

	"github.com/2389-research/crystalens/console"
)

// WaitForChangeCmd blocks until the session signals a change. The caller
// re-issues it after handling each SessionChangedMsg.
func WaitForChangeCmd(changed <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-changed
		if !ok {
			return nil
		}
		return SessionChangedMsg{}
	}
}

// SubmitCmd creates a run for text. It blocks until the backend answers, so
// it runs off the UI loop like any other tea.Cmd.
func SubmitCmd(ctx context.Context, session *console.Session, text string) tea.Cmd {
	return func() tea.Msg {
		err := session.Submit(ctx, text)
		return SubmitResultMsg{Text: text, Err: err}
	}
}

// URLOpener opens a URL outside the terminal.
type URLOpener func(url string) error

// OpenCmd runs open for url.
func OpenCmd(open URLOpener, url string) tea.Cmd {
	return func() tea.Msg {
		return OpenResultMsg{URL: url, Err: open(url)}
	}
}

// openURL is swapped in tests so no browser is launched.
var openURL = browser.OpenURL

// OpenInBrowser launches the platform's default URL handler. The launcher's
// own output is discarded so it cannot draw over the terminal UI.
func OpenInBrowser(url string) error {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	if err := openURL(url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}
