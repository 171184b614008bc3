package terminal

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	colorPass   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
)

var (
	progressStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	nameStyle     = lipgloss.NewStyle().Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	noticeStyle   = lipgloss.NewStyle().Foreground(colorWarn)
	doneStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorPass)
)
