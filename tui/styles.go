// ABOUTME: Defines lipgloss style constants for the console layout: sidebar, feed cards, prompt, and status bar.
// ABOUTME: Provides StyleForStreamState to map subscriber states to their display styles.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/crystalens/stream"
)

var (
	// Brand
	AccentColor = lipgloss.Color("172")
	CallToColor = lipgloss.Color("166")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor)

	// Sidebar
	SidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	FilterStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Padding(0, 1)
	ActiveFilterStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("231")).
				Background(AccentColor).
				Bold(true).
				Padding(0, 1)

	// Feed cards
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(0, 1)
	UserBubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)
	AuthorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(AccentColor).
			Padding(0, 1)
	SectionLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250"))
	CodeStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("235"))
	ToggleStyle       = lipgloss.NewStyle().Foreground(CallToColor).Italic(true)
	MutedStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Running indicator
	RunningStyle = lipgloss.NewStyle().Foreground(CallToColor)

	// Prompt
	PromptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(AccentColor)
	PromptBusyStyle = PromptStyle.BorderForeground(lipgloss.Color("240"))

	// Plots
	PlotSelectedStyle = ActiveFilterStyle
	PlotStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Padding(0, 1)
	LinkStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Underline(true)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	// Stream states
	IdleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ConnectingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	OpenStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	ClosedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// StyleForStreamState returns the style used to show a subscriber state.
func StyleForStreamState(s stream.State) lipgloss.Style {
	switch s {
	case stream.StateConnecting:
		return ConnectingStyle
	case stream.StateOpen:
		return OpenStyle
	case stream.StateClosed:
		return ClosedStyle
	default:
		return IdleStyle
	}
}
