package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

// ProfileSelectorModal lists a session's profiles and picks one to activate
type ProfileSelectorModal struct {
	list     list.Model
	active   string
	chosen   string
	isActive bool
	width    int
	height   int
}

// profileItem implements list.Item for profile selection
type profileItem struct {
	profile *models.Profile
	active  bool
}

func (p profileItem) FilterValue() string {
	return p.profile.ID
}

func (p profileItem) Title() string {
	if p.active {
		return "✓ " + p.profile.ID
	}
	return "  " + p.profile.ID
}

func (p profileItem) Description() string {
	return describeProfile(p.profile)
}

// describeProfile summarizes the settings that most change output
func describeProfile(p *models.Profile) string {
	var parts []string
	if p.JitterEnabled {
		parts = append(parts, fmt.Sprintf("jitter %.0f%%", p.JitterProbability*100))
	} else {
		parts = append(parts, "jitter off")
	}
	if p.MaxRandomSlots > 0 {
		parts = append(parts, fmt.Sprintf("max %d", p.MaxRandomSlots))
	}
	if p.RegexPattern != "" {
		parts = append(parts, "regex /"+p.RegexPattern+"/")
	}
	if p.Position.Enabled {
		parts = append(parts, fmt.Sprintf("%s #%d", p.Position.Category, p.Position.Ordinal))
	}
	if !p.AutoBind {
		parts = append(parts, "no autobind")
	}
	if len(p.Mutators) > 0 {
		parts = append(parts, strings.Join(p.Mutators, "+"))
	}
	if p.Seed != "" {
		parts = append(parts, "seed "+p.Seed)
	}
	return strings.Join(parts, " · ")
}

// profileItemDelegate renders profile rows
type profileItemDelegate struct{}

func (d profileItemDelegate) Height() int                               { return 2 }
func (d profileItemDelegate) Spacing() int                              { return 1 }
func (d profileItemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d profileItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(profileItem)
	if !ok {
		return
	}

	title := item.Title()
	desc := lipgloss.NewStyle().Foreground(ColorTextDim).Render("  " + item.Description())

	style := lipgloss.NewStyle().Foreground(ColorText)
	if item.active {
		style = style.Foreground(ColorSuccess)
	}
	if index == m.Index() {
		style = style.Bold(true).Foreground(ColorSecondary)
	}
	fmt.Fprintf(w, "%s\n%s", style.Render(title), desc)
}

// NewProfileSelectorModal creates an inactive selector
func NewProfileSelectorModal() *ProfileSelectorModal {
	l := list.New([]list.Item{}, profileItemDelegate{}, 50, 15)
	l.Title = "Profiles"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	keyMap := list.DefaultKeyMap()
	keyMap.ShowFullHelp = key.NewBinding(
		key.WithKeys("ctrl+h"),
		key.WithHelp("Ctrl+h", "toggle help"),
	)
	l.KeyMap = keyMap

	return &ProfileSelectorModal{list: l}
}

// SetSize updates the modal size
func (ps *ProfileSelectorModal) SetSize(width, height int) {
	ps.width = width
	ps.height = height
	ps.list.SetSize(min(width-4, 70), min(height-6, 20))
}

// SetProfiles replaces the listed profiles and marks the active one
func (ps *ProfileSelectorModal) SetProfiles(profiles []*models.Profile, active string) {
	ps.active = active
	items := make([]list.Item, len(profiles))
	selected := 0
	for i, p := range profiles {
		items[i] = profileItem{profile: p, active: p.ID == active}
		if p.ID == active {
			selected = i
		}
	}
	ps.list.SetItems(items)
	ps.list.Select(selected)
}

// Show activates the modal
func (ps *ProfileSelectorModal) Show() {
	ps.isActive = true
	ps.chosen = ""
}

// Hide deactivates the modal
func (ps *ProfileSelectorModal) Hide() {
	ps.isActive = false
}

func (ps *ProfileSelectorModal) IsActive() bool {
	return ps.isActive
}

// Chosen returns the profile picked with Enter, or "" if none was
func (ps *ProfileSelectorModal) Chosen() string {
	return ps.chosen
}

// Update handles modal updates
func (ps *ProfileSelectorModal) Update(msg tea.Msg) (*ProfileSelectorModal, tea.Cmd) {
	if !ps.isActive {
		return ps, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			if item, ok := ps.list.SelectedItem().(profileItem); ok && item.profile.ID != ps.active {
				ps.chosen = item.profile.ID
			}
			ps.isActive = false
			return ps, nil
		case "esc", "p":
			ps.isActive = false
			return ps, nil
		}
	}

	var cmd tea.Cmd
	ps.list, cmd = ps.list.Update(msg)
	return ps, cmd
}

// View renders the modal
func (ps *ProfileSelectorModal) View() string {
	if !ps.isActive {
		return ""
	}

	instructions := StyleFormHelp.Render("Enter: activate • Esc: cancel")
	content := lipgloss.JoinVertical(lipgloss.Left, ps.list.View(), "", instructions)

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSecondary).
		Padding(1, 2)

	return CenterModal(modalStyle.Render(content), ps.width, ps.height)
}
