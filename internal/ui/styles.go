package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Design System Colors - Adaptive based on terminal background
var (
	// Primary brand colors
	ColorPrimary   lipgloss.Color
	ColorSecondary lipgloss.Color
	ColorAccent    lipgloss.Color

	// Semantic colors
	ColorSuccess lipgloss.Color
	ColorWarning lipgloss.Color
	ColorError   lipgloss.Color
	ColorInfo    lipgloss.Color

	// Neutral colors (contrast-adaptive)
	ColorText      lipgloss.Color
	ColorTextMuted lipgloss.Color
	ColorTextDim   lipgloss.Color
	ColorBorder    lipgloss.Color
	ColorSurface   lipgloss.Color
)

// initializeColors picks the palette for the terminal background, then
// rebuilds the component styles from it. GLAMOUR_STYLE=light|dark forces
// a palette.
func initializeColors() {
	switch os.Getenv("GLAMOUR_STYLE") {
	case "light":
		setLightThemeColors()
	case "dark":
		setDarkThemeColors()
	default:
		if lipgloss.HasDarkBackground() {
			setDarkThemeColors()
		} else {
			setLightThemeColors()
		}
	}
	buildStyles()
}

func setDarkThemeColors() {
	ColorPrimary = lipgloss.Color("205") // Bright magenta/pink
	ColorSecondary = lipgloss.Color("33") // Bright cyan/blue
	ColorAccent = lipgloss.Color("214")   // Bright orange/yellow

	ColorSuccess = lipgloss.Color("10")
	ColorWarning = lipgloss.Color("11")
	ColorError = lipgloss.Color("9")
	ColorInfo = lipgloss.Color("12")

	ColorText = lipgloss.Color("252")
	ColorTextMuted = lipgloss.Color("244")
	ColorTextDim = lipgloss.Color("240")
	ColorBorder = lipgloss.Color("238")
	ColorSurface = lipgloss.Color("236")
}

func setLightThemeColors() {
	ColorPrimary = lipgloss.Color("125") // Darker magenta for contrast
	ColorSecondary = lipgloss.Color("24")
	ColorAccent = lipgloss.Color("130")

	ColorSuccess = lipgloss.Color("22")
	ColorWarning = lipgloss.Color("136")
	ColorError = lipgloss.Color("160")
	ColorInfo = lipgloss.Color("24")

	ColorText = lipgloss.Color("232")
	ColorTextMuted = lipgloss.Color("240")
	ColorTextDim = lipgloss.Color("244")
	ColorBorder = lipgloss.Color("248")
	ColorSurface = lipgloss.Color("254")
}

// Component Styles
var (
	StyleTitle     lipgloss.Style
	StyleSubtitle  lipgloss.Style
	StyleText      lipgloss.Style
	StyleTextMuted lipgloss.Style
	StyleTextDim   lipgloss.Style

	StyleSuccess lipgloss.Style
	StyleWarning lipgloss.Style
	StyleError   lipgloss.Style
	StyleInfo    lipgloss.Style

	StyleModal            lipgloss.Style
	StyleContentContainer lipgloss.Style
	StyleSurface          lipgloss.Style

	StyleFormLabel        lipgloss.Style
	StyleFormLabelFocused lipgloss.Style
	StyleFormHelp         lipgloss.Style

	StyleLoading         lipgloss.Style
	StyleFilterIndicator lipgloss.Style
	StyleMetadata        lipgloss.Style
)

func init() {
	setDarkThemeColors()
	buildStyles()
}

func buildStyles() {
	StyleTitle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Padding(0, 1)
	StyleSubtitle = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true).Padding(0, 1)
	StyleText = lipgloss.NewStyle().Foreground(ColorText)
	StyleTextMuted = lipgloss.NewStyle().Foreground(ColorTextMuted)
	StyleTextDim = lipgloss.NewStyle().Foreground(ColorTextDim)

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true).Padding(0, 1)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true).Padding(0, 1)
	StyleError = lipgloss.NewStyle().Foreground(ColorError).Bold(true).Padding(0, 1)
	StyleInfo = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true).Padding(0, 1)

	StyleModal = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 2)

	// The surface sentence above the trace report
	StyleSurface = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Padding(0, 1)

	StyleContentContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)

	StyleFormLabel = lipgloss.NewStyle().Foreground(ColorText).Bold(true)
	StyleFormLabelFocused = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	StyleFormHelp = lipgloss.NewStyle().Foreground(ColorTextDim).Italic(true)

	StyleLoading = lipgloss.NewStyle().Foreground(ColorInfo).Italic(true).Padding(0, 1)
	StyleFilterIndicator = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Background(ColorSurface).
		Bold(true).
		Padding(0, 1)
	StyleMetadata = lipgloss.NewStyle().Foreground(ColorTextDim).Padding(0, 1)
}

// CreateHeader renders the page title with the session and profile on the right
func CreateHeader(title, session, profile string, width int) string {
	left := StyleTitle.Render(title)
	right := StyleMetadata.Render(fmt.Sprintf("session %s · profile %s", session, profile))
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left + " " + right
	}
	return left + strings.Repeat(" ", gap) + right
}

func CreateHelp(text string) string {
	return StyleTextDim.Render(text)
}

// CreateContextualHelp shows the essential keys, and the additional rows
// when expanded. Rows are truncated to width.
func CreateContextualHelp(essential []string, additional []string, showExpanded bool, width int) string {
	firstRow := essential
	if len(additional) > 0 && !showExpanded {
		firstRow = append(append([]string{}, essential...), "Ctrl+g for more")
	}
	lines := []string{truncate(strings.Join(firstRow, " • "), width)}
	if showExpanded {
		for _, row := range additional {
			lines = append(lines, truncate(row, width))
		}
	}
	return StyleTextDim.Render(strings.Join(lines, "\n"))
}

func truncate(s string, width int) string {
	if width > 8 && len(s) > width-4 {
		return s[:width-7] + "..."
	}
	return s
}

func CreateStatus(text string, statusType string) string {
	switch statusType {
	case "success":
		return StyleSuccess.Render(text)
	case "warning":
		return StyleWarning.Render(text)
	case "error":
		return StyleError.Render(text)
	case "info":
		return StyleInfo.Render(text)
	default:
		return StyleText.Render(text)
	}
}

// CreateFilterIndicator shows the active pool filter and how many templates it keeps
func CreateFilterIndicator(description string, count int) string {
	text := lipgloss.JoinHorizontal(
		lipgloss.Left,
		"Pool: ",
		description,
		lipgloss.NewStyle().Foreground(ColorTextMuted).Render(" ("),
		lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true).Render(fmt.Sprintf("%d", count)),
		lipgloss.NewStyle().Foreground(ColorTextMuted).Render(" templates)"),
	)
	return StyleFilterIndicator.Render(text)
}

// CenterModal places content in the middle of the screen
func CenterModal(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func AddMainPadding(content string) string {
	return lipgloss.NewStyle().PaddingLeft(2).Render(content)
}

// formLabel renders a field label, marked when focused
func formLabel(label string, focused bool) string {
	if focused {
		return StyleFormLabelFocused.Render("▶ " + label)
	}
	return StyleFormLabel.Render(label)
}
