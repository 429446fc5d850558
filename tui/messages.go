// ABOUTME: Bubble Tea message types used in the console message loop.
// ABOUTME: Each type wraps a session occurrence for the tea.Msg interface.
package tui

// SessionChangedMsg signals that the session has new events or a new state.
type SessionChangedMsg struct{}

// SubmitResultMsg carries the outcome of a prompt submission.
type SubmitResultMsg struct {
	Text string
	Err  error
}

// OpenResultMsg carries the outcome of opening a plot in the browser.
type OpenResultMsg struct {
	URL string
	Err error
}
