package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/service"
)

// PoolModalMode selects what submitting the modal produces
type PoolModalMode int

const (
	// PoolModeFilter narrows the template list in place
	PoolModeFilter PoolModalMode = iota
	// PoolModeSave stores the filter as a named pool
	PoolModeSave
)

const (
	poolFieldName = iota
	poolFieldExpression
	poolFieldQuery
)

// PoolModal edits a template pool: a boolean tag expression plus a fuzzy
// text query, with a live count of matching templates
type PoolModal struct {
	mode           PoolModalMode
	nameInput      textinput.Model
	expressionText textinput.Model
	queryInput     textinput.Model
	focusIndex     int
	availableTags  []string
	isActive       bool
	submitted      bool
	width          int
	height         int

	// countFunc reports how many templates a filter keeps
	countFunc  func(service.PoolFilter) (int, error)
	matchCount int
	parseError string
}

// NewPoolModal creates an inactive pool modal
func NewPoolModal() *PoolModal {
	nameInput := textinput.New()
	nameInput.Placeholder = "pool name"
	nameInput.CharLimit = 64
	nameInput.Width = 50

	expressionText := textinput.New()
	expressionText.Placeholder = "nature AND NOT (water OR long)"
	expressionText.CharLimit = 500
	expressionText.Width = 50
	keyMap := textinput.DefaultKeyMap
	keyMap.AcceptSuggestion = key.NewBinding(key.WithKeys("ctrl+space", "right"))
	expressionText.KeyMap = keyMap

	queryInput := textinput.New()
	queryInput.Placeholder = "optional fuzzy text query"
	queryInput.CharLimit = 200
	queryInput.Width = 50

	return &PoolModal{
		nameInput:      nameInput,
		expressionText: expressionText,
		queryInput:     queryInput,
		matchCount:     -1,
	}
}

// Open activates the modal pre-filled with the current filter
func (m *PoolModal) Open(mode PoolModalMode, current service.PoolFilter) {
	m.mode = mode
	m.isActive = true
	m.submitted = false
	m.nameInput.SetValue(current.Pool)
	m.expressionText.SetValue(current.Expression)
	m.queryInput.SetValue(current.Query)
	if mode == PoolModeSave {
		m.focusIndex = poolFieldName
	} else {
		m.focusIndex = poolFieldExpression
	}
	m.updateFocus()
	m.refresh()
}

// Close deactivates the modal without submitting
func (m *PoolModal) Close() {
	m.isActive = false
}

// SetCountFunc sets the callback used for the live match count
func (m *PoolModal) SetCountFunc(fn func(service.PoolFilter) (int, error)) {
	m.countFunc = fn
}

// SetAvailableTags sets the tags offered as completions
func (m *PoolModal) SetAvailableTags(tags []string) {
	m.availableTags = tags
	m.expressionText.SetSuggestions(tags)
	m.expressionText.ShowSuggestions = len(tags) > 0
}

func (m *PoolModal) IsActive() bool    { return m.isActive }
func (m *PoolModal) IsSubmitted() bool { return m.submitted }
func (m *PoolModal) Mode() PoolModalMode {
	return m.mode
}

// Filter returns the filter described by the expression and query fields
func (m *PoolModal) Filter() service.PoolFilter {
	return service.PoolFilter{
		Expression: strings.TrimSpace(m.expressionText.Value()),
		Query:      strings.TrimSpace(m.queryInput.Value()),
	}
}

// SavedPool returns the pool to store in save mode
func (m *PoolModal) SavedPool() (models.SavedPool, error) {
	pool := models.SavedPool{
		Name:      strings.TrimSpace(m.nameInput.Value()),
		TextQuery: strings.TrimSpace(m.queryInput.Value()),
	}
	if expr := strings.TrimSpace(m.expressionText.Value()); expr != "" {
		parsed, err := models.ParseBooleanExpression(expr)
		if err != nil {
			return models.SavedPool{}, err
		}
		pool.Expression = parsed
	}
	return pool, nil
}

// Update handles input while the modal is active
func (m *PoolModal) Update(msg tea.Msg) tea.Cmd {
	if !m.isActive {
		return nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch keyMsg.String() {
	case "esc":
		m.isActive = false
		return nil
	case "tab":
		m.focusIndex = m.nextField(1)
		m.updateFocus()
		return nil
	case "shift+tab":
		m.focusIndex = m.nextField(-1)
		m.updateFocus()
		return nil
	case "enter":
		if m.canSubmit() {
			m.submitted = true
			m.isActive = false
		}
		return nil
	}

	var cmd tea.Cmd
	switch m.focusIndex {
	case poolFieldName:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case poolFieldExpression:
		before := m.expressionText.Value()
		m.expressionText, cmd = m.expressionText.Update(msg)
		m.updateAutocomplete()
		if m.expressionText.Value() != before {
			m.refresh()
		}
	case poolFieldQuery:
		before := m.queryInput.Value()
		m.queryInput, cmd = m.queryInput.Update(msg)
		if m.queryInput.Value() != before {
			m.refresh()
		}
	}
	return cmd
}

// nextField steps focus, skipping the name field outside save mode
func (m *PoolModal) nextField(step int) int {
	first := poolFieldExpression
	if m.mode == PoolModeSave {
		first = poolFieldName
	}
	count := poolFieldQuery - first + 1
	return first + ((m.focusIndex-first+step)%count+count)%count
}

func (m *PoolModal) canSubmit() bool {
	if m.parseError != "" {
		return false
	}
	if m.mode == PoolModeSave {
		f := m.Filter()
		return strings.TrimSpace(m.nameInput.Value()) != "" && (f.Expression != "" || f.Query != "")
	}
	return true
}

// refresh re-validates the expression and updates the match count
func (m *PoolModal) refresh() {
	m.parseError = ""
	filter := m.Filter()
	if filter.Expression != "" {
		if _, err := models.ParseBooleanExpression(filter.Expression); err != nil {
			m.parseError = err.Error()
			m.matchCount = -1
			return
		}
	}
	if m.countFunc == nil {
		m.matchCount = -1
		return
	}
	n, err := m.countFunc(filter)
	if err != nil {
		m.parseError = err.Error()
		m.matchCount = -1
		return
	}
	m.matchCount = n
}

// updateAutocomplete narrows suggestions to tags starting with the word
// under the cursor. textinput completes the whole value, so each
// suggestion carries the text before the word.
func (m *PoolModal) updateAutocomplete() {
	if len(m.availableTags) == 0 {
		return
	}
	value := m.expressionText.Value()
	prefix, word := splitCurrentWord(value, m.expressionText.Position())
	if word == "" {
		m.expressionText.SetSuggestions(nil)
		return
	}
	lower := strings.ToLower(word)
	var suggestions []string
	for _, tag := range m.availableTags {
		if strings.HasPrefix(strings.ToLower(tag), lower) {
			suggestions = append(suggestions, prefix+tag)
		}
	}
	m.expressionText.SetSuggestions(suggestions)
}

// splitCurrentWord splits text at the start of the word ending at the
// cursor. Operators and parentheses are never completed.
func splitCurrentWord(text string, cursor int) (string, string) {
	if cursor < 0 || cursor > len(text) {
		return text, ""
	}
	start := cursor
	for start > 0 {
		c := text[start-1]
		if c == ' ' || c == '(' || c == ')' {
			break
		}
		start--
	}
	word := text[start:cursor]
	switch strings.ToUpper(word) {
	case "AND", "OR", "NOT", "XOR":
		return text, ""
	}
	return text[:start], word
}

func (m *PoolModal) updateFocus() {
	m.nameInput.Blur()
	m.expressionText.Blur()
	m.queryInput.Blur()
	switch m.focusIndex {
	case poolFieldName:
		m.nameInput.Focus()
	case poolFieldExpression:
		m.expressionText.Focus()
	case poolFieldQuery:
		m.queryInput.Focus()
	}
}

// Resize updates the modal dimensions
func (m *PoolModal) Resize(width, height int) {
	m.width = width
	m.height = height
	inputWidth := min(60, width-12)
	m.nameInput.Width = inputWidth
	m.expressionText.Width = inputWidth
	m.queryInput.Width = inputWidth
}

// View renders the modal
func (m *PoolModal) View() string {
	if !m.isActive {
		return ""
	}

	var content []string
	title := "Filter Templates"
	if m.mode == PoolModeSave {
		title = "Save Pool"
	}
	content = append(content, StyleTitle.Render(title), "")

	if m.mode == PoolModeSave {
		content = append(content,
			formLabel("Name:", m.focusIndex == poolFieldName),
			m.nameInput.View(),
			"")
	}

	content = append(content,
		formLabel("Tag Expression:", m.focusIndex == poolFieldExpression),
		m.expressionText.View())
	switch {
	case m.parseError != "":
		content = append(content, lipgloss.NewStyle().Italic(true).Foreground(ColorError).Render("✗ "+m.parseError))
	case m.matchCount >= 0:
		content = append(content, lipgloss.NewStyle().Italic(true).Foreground(ColorTextMuted).
			Render(fmt.Sprintf("✓ %d templates", m.matchCount)))
	}
	content = append(content, "",
		formLabel("Text Query (optional):", m.focusIndex == poolFieldQuery),
		m.queryInput.View(),
		"")

	helpText := "Tab: next field • Enter: apply • Esc: cancel"
	if m.mode == PoolModeSave {
		helpText = "Tab: next field • Enter: save • Esc: cancel"
	}
	content = append(content,
		StyleFormHelp.Render(helpText),
		StyleFormHelp.Render("Operators: AND OR XOR NOT ( ) • Ctrl+Space/→: accept tag"))

	return StyleModal.Width(70).Render(lipgloss.JoinVertical(lipgloss.Left, content...))
}
