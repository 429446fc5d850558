// ABOUTME: Tests for the top-level AppModel that composes the console panels.
// ABOUTME: Covers initialization, filter switching, submission, session refresh, plot keys, and view rendering.
package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/crystalens/runapi"
	"github.com/2389-research/crystalens/runs"
)

const (
	helloFrame = `{"type":"event","payload":{"id":"e1","author":"planner","content":{"parts":[{"text":"Hello from the planner"}]}}}`
	callFrame  = `{"type":"event","payload":{"id":"e2","author":"coder","content":{"parts":[{"functionCall":{"name":"run_code","args":{"x":1}}}]}}}`
	plotFrame  = `{"type":"event","payload":{"id":"e3","author":"reporter","actions":{"stateDelta":{"reporter_output":{"figures":["out/a.html","out/b.html"]}}}}}`
	doneFrame  = `{"type":"done","payload":{}}`
)

func testAppModel(t *testing.T, api *fakeAPI, frames ...string) AppModel {
	t.Helper()
	s := newTestSession(t, api, frames...)
	m := NewAppModel(context.Background(), s, WithOpener(func(string) error { return nil }))
	return resize(m, 120, 40)
}

func resize(m AppModel, w, h int) AppModel {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return updated.(AppModel)
}

func press(m AppModel, keys ...string) AppModel {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "shift+tab":
			msg = tea.KeyMsg{Type: tea.KeyShiftTab}
		case "ctrl+e":
			msg = tea.KeyMsg{Type: tea.KeyCtrlE}
		case "ctrl+n":
			msg = tea.KeyMsg{Type: tea.KeyCtrlN}
		case "ctrl+p":
			msg = tea.KeyMsg{Type: tea.KeyCtrlP}
		case "ctrl+o":
			msg = tea.KeyMsg{Type: tea.KeyCtrlO}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		updated, _ := m.Update(msg)
		m = updated.(AppModel)
	}
	return m
}

func typeText(m AppModel, text string) AppModel {
	m.prompt.SetValue(text)
	return m
}

// submitAndWait presses enter and executes the resulting submit command.
func submitAndWait(t *testing.T, m AppModel) AppModel {
	t.Helper()
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(AppModel)
	if cmd == nil {
		t.Fatal("expected a submit command")
	}
	msg := cmd()
	result, ok := msg.(SubmitResultMsg)
	if !ok {
		t.Fatalf("cmd returned %T, want SubmitResultMsg", msg)
	}
	updated, _ = m.Update(result)
	return updated.(AppModel)
}

func TestNewAppModel(t *testing.T) {
	s := newTestSession(t, &fakeAPI{})
	m := NewAppModel(context.Background(), s)

	if m.Filter() != runs.CategoryAgent {
		t.Errorf("initial filter = %v, want agent", m.Filter())
	}
	if m.submitting {
		t.Error("submitting should be false initially")
	}
	if m.snap.Selected != -1 {
		t.Errorf("snap.Selected = %d, want -1", m.snap.Selected)
	}
	if m.Init() == nil {
		t.Error("Init() returned nil")
	}
}

func TestAppInitialFilter(t *testing.T) {
	s := newTestSession(t, &fakeAPI{})
	m := NewAppModel(context.Background(), s, WithInitialFilter(runs.CategoryPlots))
	if m.Filter() != runs.CategoryPlots {
		t.Errorf("filter = %v, want plots", m.Filter())
	}
}

func TestAppViewBeforeResize(t *testing.T) {
	s := newTestSession(t, &fakeAPI{})
	m := NewAppModel(context.Background(), s)
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View() = %q, want Initializing...", got)
	}
}

func TestAppViewTooSmall(t *testing.T) {
	m := testAppModel(t, &fakeAPI{})
	m = resize(m, 30, 8)
	if !strings.Contains(m.View(), "Terminal too small") {
		t.Error("expected too-small message")
	}
}

func TestAppFilterCycling(t *testing.T) {
	m := testAppModel(t, &fakeAPI{})
	want := []runs.Category{runs.CategoryCalls, runs.CategoryResponses, runs.CategoryPlots, runs.CategoryAgent}
	for _, w := range want {
		m = press(m, "tab")
		if m.Filter() != w {
			t.Fatalf("after tab filter = %v, want %v", m.Filter(), w)
		}
	}
	m = press(m, "shift+tab")
	if m.Filter() != runs.CategoryPlots {
		t.Errorf("after shift+tab filter = %v, want plots", m.Filter())
	}
}

func TestAppAltNumberSelectsFilter(t *testing.T) {
	m := testAppModel(t, &fakeAPI{})
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3"), Alt: true})
	m = updated.(AppModel)
	if m.Filter() != runs.CategoryResponses {
		t.Errorf("filter = %v, want responses", m.Filter())
	}
}

func TestAppEmptySubmitIsNoOp(t *testing.T) {
	api := &fakeAPI{ids: []runapi.RunID{"r1"}}
	m := testAppModel(t, api)
	m = typeText(m, "   ")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(AppModel)
	if cmd != nil {
		t.Error("blank prompt should not produce a command")
	}
	if m.submitting {
		t.Error("blank prompt should not mark submitting")
	}
	if len(api.inputs) != 0 {
		t.Errorf("CreateRun called %d times, want 0", len(api.inputs))
	}
}

func TestAppSubmitShowsRun(t *testing.T) {
	api := &fakeAPI{ids: []runapi.RunID{"r1"}}
	m := testAppModel(t, api, helloFrame, callFrame)
	m = typeText(m, "hi")
	m = submitAndWait(t, m)

	if m.submitting {
		t.Error("submitting should be cleared after the result")
	}
	if m.prompt.Value() != "" {
		t.Errorf("prompt = %q, want cleared", m.prompt.Value())
	}
	if api.inputs[0] != "hi" {
		t.Errorf("input = %q, want hi", api.inputs[0])
	}

	settle(t, m.session, 2)
	updated, _ := m.Update(SessionChangedMsg{})
	m = updated.(AppModel)

	if m.snap.RunID != "r1" {
		t.Errorf("RunID = %q, want r1", m.snap.RunID)
	}
	if !m.snap.Running {
		t.Error("run should be running before done")
	}
	// Agent view: user bubble + planner text.
	if m.feed.Len() != 2 {
		t.Errorf("agent feed len = %d, want 2", m.feed.Len())
	}
	view := m.View()
	for _, want := range []string{"hi", "Hello from the planner", "Running", "r1"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	m = press(m, "tab")
	if m.feed.Len() != 1 {
		t.Errorf("calls feed len = %d, want 1", m.feed.Len())
	}
	if !strings.Contains(m.View(), "run_code") {
		t.Error("calls view should show the function call")
	}
}

func TestAppSubmitFailureShowsNotice(t *testing.T) {
	api := &fakeAPI{err: errors.New("backend down")}
	m := testAppModel(t, api)
	m = typeText(m, "hi")
	m = submitAndWait(t, m)

	if m.prompt.Value() != "hi" {
		t.Errorf("prompt = %q, want input kept after failure", m.prompt.Value())
	}
	if m.snap.Err == nil {
		t.Error("snapshot should carry the creation error")
	}
	if !strings.Contains(m.View(), "backend down") {
		t.Error("View() should show the failure")
	}
}

func TestAppSubmitWhileSubmittingIgnored(t *testing.T) {
	api := &fakeAPI{ids: []runapi.RunID{"r1"}}
	m := testAppModel(t, api)
	m = typeText(m, "hi")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(AppModel)
	if cmd == nil {
		t.Fatal("expected a submit command")
	}
	_, cmd2 := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd2 != nil {
		t.Error("second enter while submitting should be ignored")
	}
}

func TestAppDoneStopsRunningAndShowsPlots(t *testing.T) {
	api := &fakeAPI{ids: []runapi.RunID{"r1"}}
	var opened []string
	s := newTestSession(t, api, plotFrame, doneFrame)
	m := NewAppModel(context.Background(), s, WithOpener(func(u string) error {
		opened = append(opened, u)
		return nil
	}))
	m = resize(m, 120, 40)
	m = typeText(m, "plot it")
	m = submitAndWait(t, m)
	settle(t, s, 2)
	updated, _ := m.Update(SessionChangedMsg{})
	m = updated.(AppModel)

	if m.snap.Running {
		t.Error("done should stop running")
	}
	if len(m.snap.Plots) != 2 {
		t.Fatalf("plots = %d, want 2", len(m.snap.Plots))
	}
	if m.snap.Selected != 0 {
		t.Errorf("selected = %d, want 0", m.snap.Selected)
	}

	m = press(m, "tab", "tab", "tab")
	if m.Filter() != runs.CategoryPlots {
		t.Fatalf("filter = %v, want plots", m.Filter())
	}
	view := m.View()
	if !strings.Contains(view, "a.html") || !strings.Contains(view, "b.html") {
		t.Error("plots view should list both artifacts")
	}
	if !strings.Contains(view, "http://backend.test/xrd_outputs/a.html") {
		t.Error("plots view should show the selected URL")
	}

	m = press(m, "ctrl+n")
	if m.snap.Selected != 1 {
		t.Errorf("after ctrl+n selected = %d, want 1", m.snap.Selected)
	}
	m = press(m, "ctrl+p")
	if m.snap.Selected != 0 {
		t.Errorf("after ctrl+p selected = %d, want 0", m.snap.Selected)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	if cmd == nil {
		t.Fatal("ctrl+o should produce an open command")
	}
	msg := cmd().(OpenResultMsg)
	if msg.URL != "http://backend.test/xrd_outputs/a.html" {
		t.Errorf("opened URL = %q", msg.URL)
	}
	if len(opened) != 1 {
		t.Errorf("opener called %d times, want 1", len(opened))
	}
}

func TestAppOpenWithoutPlotsIsNoOp(t *testing.T) {
	m := testAppModel(t, &fakeAPI{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	if cmd != nil {
		t.Error("ctrl+o without plots should do nothing")
	}
}

func TestAppOpenResultNotice(t *testing.T) {
	m := testAppModel(t, &fakeAPI{})
	updated, _ := m.Update(OpenResultMsg{URL: "http://x", Err: errors.New("no browser")})
	m = updated.(AppModel)
	if !strings.Contains(m.View(), "no browser") {
		t.Error("open failure should be shown")
	}
}

func TestAppToggleExpanded(t *testing.T) {
	m := testAppModel(t, &fakeAPI{})
	m = press(m, "ctrl+e")
	if !m.feed.Expanded() {
		t.Error("ctrl+e should expand cards")
	}
	m = press(m, "ctrl+e")
	if m.feed.Expanded() {
		t.Error("second ctrl+e should collapse cards")
	}
}

func TestAppQuitKeys(t *testing.T) {
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		m := testAppModel(t, &fakeAPI{})
		_, cmd := m.Update(tea.KeyMsg{Type: k})
		if cmd == nil {
			t.Fatalf("key %v: expected quit command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("key %v: expected tea.QuitMsg", k)
		}
	}
}

func TestAppSessionChangedRewaits(t *testing.T) {
	m := testAppModel(t, &fakeAPI{})
	_, cmd := m.Update(SessionChangedMsg{})
	if cmd == nil {
		t.Error("SessionChangedMsg should re-issue the wait command")
	}
}
