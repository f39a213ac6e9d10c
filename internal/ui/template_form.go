package ui

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/service"
)

var nonIDChars = regexp.MustCompile(`[^a-z0-9]+`)

// generateIDFromName creates a storage-safe template id from a name
func generateIDFromName(name string) string {
	id := strings.Trim(nonIDChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if id == "" {
		return "untitled-template"
	}
	if len(id) > 50 {
		id = strings.TrimSuffix(id[:50], "-")
	}
	return id
}

// Form field indices
const (
	nameField = iota
	descriptionField
	tagsField
	bodyField
)

// TemplateForm collects a new template: metadata inputs plus a body that
// is either bracket markup or plain text to tag
type TemplateForm struct {
	inputs        []textinput.Model
	textarea      textarea.Model
	focused       int
	plainText     bool
	private       bool
	submitted     bool
	cancelled     bool
	availableTags []string
}

// NewTemplateForm creates an empty form focused on the name field
func NewTemplateForm() *TemplateForm {
	inputs := make([]textinput.Model, bodyField)

	inputs[nameField] = textinput.New()
	inputs[nameField].Placeholder = "Evening walk"
	inputs[nameField].Focus()
	inputs[nameField].CharLimit = 100
	inputs[nameField].Width = 50

	inputs[descriptionField] = textinput.New()
	inputs[descriptionField].Placeholder = "What the template is for (optional)"
	inputs[descriptionField].CharLimit = 255
	inputs[descriptionField].Width = 60

	inputs[tagsField] = textinput.New()
	inputs[tagsField].Placeholder = "nature, short (comma-separated)"
	inputs[tagsField].CharLimit = 300
	inputs[tagsField].Width = 60

	ta := textarea.New()
	ta.Placeholder = "The [ADJ] [NOUN#x] [VERB:past] home and the [NOUN#x] slept"
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.ShowLineNumbers = false
	ta.SetWidth(80)
	ta.SetHeight(6)

	return &TemplateForm{inputs: inputs, textarea: ta}
}

// SetAvailableTags offers existing tags as completions in the tags field
func (f *TemplateForm) SetAvailableTags(tags []string) {
	f.availableTags = tags
	f.inputs[tagsField].ShowSuggestions = len(tags) > 0
}

// Update handles form input
func (f *TemplateForm) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "tab":
			f.moveFocus(1)
			return nil
		case "shift+tab":
			f.moveFocus(-1)
			return nil
		case "ctrl+s":
			if f.Valid() {
				f.submitted = true
			}
			return nil
		case "ctrl+t":
			f.plainText = !f.plainText
			return nil
		case "ctrl+p":
			f.private = !f.private
			return nil
		case "esc":
			f.cancelled = true
			return nil
		case "enter":
			if f.focused != bodyField {
				f.moveFocus(1)
				return nil
			}
		}
	}

	var cmd tea.Cmd
	if f.focused == bodyField {
		f.textarea, cmd = f.textarea.Update(msg)
		return cmd
	}
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	if f.focused == tagsField {
		f.updateTagAutocomplete()
	}
	return cmd
}

// updateTagAutocomplete completes the tag after the last comma
func (f *TemplateForm) updateTagAutocomplete() {
	if len(f.availableTags) == 0 {
		return
	}
	value := f.inputs[tagsField].Value()
	prefix := ""
	current := value
	if i := strings.LastIndex(value, ","); i >= 0 {
		prefix = value[:i+1] + " "
		current = strings.TrimSpace(value[i+1:])
	}
	if current == "" {
		f.inputs[tagsField].SetSuggestions(nil)
		return
	}
	var suggestions []string
	for _, tag := range f.availableTags {
		if strings.HasPrefix(strings.ToLower(tag), strings.ToLower(current)) {
			suggestions = append(suggestions, prefix+tag)
		}
	}
	f.inputs[tagsField].SetSuggestions(suggestions)
}

func (f *TemplateForm) moveFocus(step int) {
	if f.focused == bodyField {
		f.textarea.Blur()
	} else {
		f.inputs[f.focused].Blur()
	}
	f.focused = ((f.focused+step)%(bodyField+1) + bodyField + 1) % (bodyField + 1)
	if f.focused == bodyField {
		f.textarea.Focus()
	} else {
		f.inputs[f.focused].Focus()
	}
}

// Resize fits the body editor to the window
func (f *TemplateForm) Resize(width, height int) {
	available := height - 20
	if available < 3 {
		available = 3
	}
	f.textarea.SetWidth(width - 10)
	f.textarea.SetHeight(available)
}

// Valid reports whether the form has a name and a body
func (f *TemplateForm) Valid() bool {
	return strings.TrimSpace(f.inputs[nameField].Value()) != "" &&
		strings.TrimSpace(f.textarea.Value()) != ""
}

func (f *TemplateForm) IsSubmitted() bool { return f.submitted }
func (f *TemplateForm) IsCancelled() bool { return f.cancelled }

// PlainText reports whether the body should be tagged as plain text
func (f *TemplateForm) PlainText() bool {
	return f.plainText
}

// Input converts the form into a template input; private templates
// belong to sessionID
func (f *TemplateForm) Input(sessionID string) service.TemplateInput {
	name := strings.TrimSpace(f.inputs[nameField].Value())
	var tags []string
	for _, tag := range strings.Split(f.inputs[tagsField].Value(), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	in := service.TemplateInput{
		ID:          generateIDFromName(name),
		Name:        name,
		Description: strings.TrimSpace(f.inputs[descriptionField].Value()),
		Tags:        tags,
		Body:        f.textarea.Value(),
	}
	if f.private {
		in.SessionID = sessionID
	}
	return in
}

// View renders the form
func (f *TemplateForm) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("New Template") + "\n\n")

	labels := []string{"Name:", "Description:", "Tags:"}
	for i, label := range labels {
		b.WriteString(formLabel(label, f.focused == i) + "\n")
		b.WriteString(f.inputs[i].View() + "\n\n")
	}

	bodyLabel := "Body (markup):"
	if f.plainText {
		bodyLabel = "Body (plain text, tagged on save):"
	}
	b.WriteString(formLabel(bodyLabel, f.focused == bodyField) + "\n")
	b.WriteString(f.textarea.View() + "\n")

	var flags []string
	if f.plainText {
		flags = append(flags, "plain text")
	} else {
		flags = append(flags, "markup")
	}
	if f.private {
		flags = append(flags, "private to session")
	} else {
		flags = append(flags, "shared")
	}
	b.WriteString(StyleMetadata.Render(strings.Join(flags, " · ")) + "\n\n")

	b.WriteString(StyleFormHelp.Render("Tab: next field • Ctrl+s: save • Ctrl+t: markup/plain text • Ctrl+p: private • Esc: cancel") + "\n")
	b.WriteString(StyleFormHelp.Render("Markup: [POS] slot • [POS:form] inflected • [POS#label] bound • \"> \" literal line"))

	return lipgloss.NewStyle().PaddingLeft(3).Render(b.String())
}
