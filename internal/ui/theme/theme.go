package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette. Bright, readable on dark terminals.
var (
	Primary      = lipgloss.Color("#6366F1") // Indigo
	Secondary    = lipgloss.Color("#14B8A6") // Teal
	Accent       = lipgloss.Color("#F97316") // Orange
	ArcadeYellow = lipgloss.Color("#FACC15") // Yellow
	Success      = lipgloss.Color("#22C55E") // Green
	Warning      = lipgloss.Color("#EAB308") // Amber
	Error        = lipgloss.Color("#F43F5E") // Rose
	Text         = lipgloss.Color("#F8FAFC") // White
	TextDim      = lipgloss.Color("#94A3B8") // Slate
	BgDark       = lipgloss.Color("#0F172A") // Deep Navy
	BgCard       = lipgloss.Color("#1E293B") // Dark Slate
	Border       = lipgloss.Color("#334155") // Slate
)

// Typography
var Subtitle = lipgloss.NewStyle().
	Foreground(TextDim).
	Align(lipgloss.Center)

// States
var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)

// Components
var (
	ChipOn = lipgloss.NewStyle().
		Background(Secondary).
		Foreground(BgDark).
		Bold(true).
		Padding(0, 1)

	ChipOff = lipgloss.NewStyle().
		Background(BgCard).
		Foreground(Text).
		Padding(0, 1)
)
