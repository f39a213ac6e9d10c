package ui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/config"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/service"
)

func TestGenerateIDFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Evening Walk", "evening-walk"},
		{"  Rain, again!  ", "rain-again"},
		{"!!!", "untitled-template"},
		{"", "untitled-template"},
		{"a very long template name that keeps going well past the fifty character limit", "a-very-long-template-name-that-keeps-going-well-pa"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, generateIDFromName(tt.name))
		})
	}
}

func TestSplitCurrentWord(t *testing.T) {
	tests := []struct {
		text       string
		cursor     int
		wantPrefix string
		wantWord   string
	}{
		{"nat", 3, "", "nat"},
		{"nature AND wat", 14, "nature AND ", "wat"},
		{"(nature OR wat", 14, "(nature OR ", "wat"},
		{"nature AND", 10, "nature AND", ""},
		{"nature ", 7, "nature ", ""},
		{"nature", 99, "nature", ""},
	}
	for _, tt := range tests {
		prefix, word := splitCurrentWord(tt.text, tt.cursor)
		assert.Equal(t, tt.wantPrefix, prefix, tt.text)
		assert.Equal(t, tt.wantWord, word, tt.text)
	}
}

func TestPoolModalSave(t *testing.T) {
	m := NewPoolModal()
	calls := 0
	m.SetCountFunc(func(f service.PoolFilter) (int, error) {
		calls++
		return 3, nil
	})
	m.Open(PoolModeSave, service.PoolFilter{Expression: "nature AND NOT water", Query: "river"})

	assert.True(t, m.IsActive())
	assert.Equal(t, PoolModeSave, m.Mode())
	assert.Equal(t, 3, m.matchCount)
	assert.Equal(t, 1, calls)

	// a pool needs a name
	assert.False(t, m.canSubmit())
	m.nameInput.SetValue("calm")
	assert.True(t, m.canSubmit())

	pool, err := m.SavedPool()
	require.NoError(t, err)
	assert.Equal(t, "calm", pool.Name)
	assert.Equal(t, "river", pool.TextQuery)
	require.NotNil(t, pool.Expression)

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.IsSubmitted())
	assert.False(t, m.IsActive())
}

func TestPoolModalRejectsBadExpression(t *testing.T) {
	m := NewPoolModal()
	m.Open(PoolModeFilter, service.PoolFilter{Expression: "nature AND ("})

	assert.NotEmpty(t, m.parseError)
	assert.Equal(t, -1, m.matchCount)
	assert.False(t, m.canSubmit())

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.IsSubmitted())
	assert.True(t, m.IsActive())

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.IsActive())
}

func TestPoolModalFocusOrder(t *testing.T) {
	m := NewPoolModal()
	m.Open(PoolModeFilter, service.PoolFilter{})
	assert.Equal(t, poolFieldExpression, m.focusIndex)
	assert.Equal(t, poolFieldQuery, m.nextField(1))
	m.focusIndex = poolFieldQuery
	assert.Equal(t, poolFieldExpression, m.nextField(1))

	m.Open(PoolModeSave, service.PoolFilter{})
	assert.Equal(t, poolFieldName, m.focusIndex)
	assert.Equal(t, poolFieldQuery, m.nextField(-1))

	f := m.Filter()
	assert.True(t, f.IsZero())
}

func TestDescribeProfile(t *testing.T) {
	p := models.DefaultProfile("s1")
	p.JitterEnabled = true
	p.JitterProbability = 0.3
	p.MaxRandomSlots = 2
	p.AutoBind = false
	p.Seed = "abc"

	got := describeProfile(p)
	assert.Contains(t, got, "jitter 30%")
	assert.Contains(t, got, "max 2")
	assert.Contains(t, got, "no autobind")
	assert.Contains(t, got, "seed abc")
}

func TestProfileSelectorChosen(t *testing.T) {
	def := models.DefaultProfile("s1")
	loud := models.DefaultProfile("s1")
	loud.ID = "loud"

	ps := NewProfileSelectorModal()
	ps.SetProfiles([]*models.Profile{def, loud}, def.ID)
	ps.Show()

	// re-picking the active profile chooses nothing
	ps.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, ps.IsActive())
	assert.Empty(t, ps.Chosen())

	ps.Show()
	ps.list.Select(1)
	ps.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "loud", ps.Chosen())
}

func TestTemplateFormInput(t *testing.T) {
	f := NewTemplateForm()
	assert.False(t, f.Valid())

	f.inputs[nameField].SetValue("Evening Walk")
	f.inputs[tagsField].SetValue("nature, , short ")
	f.textarea.SetValue("The [ADJ] [NOUN]")
	require.True(t, f.Valid())

	in := f.Input("s1")
	assert.Equal(t, "evening-walk", in.ID)
	assert.Equal(t, []string{"nature", "short"}, in.Tags)
	assert.Empty(t, in.SessionID)

	f.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	f.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, "s1", f.Input("s1").SessionID)
	assert.True(t, f.PlainText())

	f.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.True(t, f.IsSubmitted())
}

func TestCollectTags(t *testing.T) {
	docs := []*models.TemplateDocument{
		{ID: "a", Tags: []string{"water", "nature"}},
		{ID: "b", Tags: []string{"nature", "city"}},
	}
	assert.Equal(t, []string{"city", "nature", "water"}, collectTags(docs))
}

func newTestModel(t *testing.T) (*Model, *service.Service) {
	t.Helper()
	svc, err := service.NewService(config.Default(t.TempDir()), nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	require.NoError(t, svc.InitLibrary())

	_, err = svc.CreateTemplateFromMarkup(service.TemplateInput{ID: "river", Name: "River", Body: "The [NOUN] flows", Tags: []string{"nature"}})
	require.NoError(t, err)
	_, err = svc.CreateTemplateFromMarkup(service.TemplateInput{ID: "city", Name: "City", Body: "The [ADJ] city", Tags: []string{"urban"}})
	require.NoError(t, err)

	m, err := NewModel(context.Background(), svc, "s1", nil)
	require.NoError(t, err)
	return m, svc
}

func TestModelLoadsAndFiltersTemplates(t *testing.T) {
	m, svc := newTestModel(t)

	msg := m.Init()()
	updated, _ := m.Update(msg)
	model := updated.(Model)
	assert.False(t, model.loading)
	assert.Len(t, model.templateList.Items(), 2)

	filtered := loadTemplatesCmd(svc, "s1", service.PoolFilter{Expression: "urban"})()
	updated, _ = model.Update(filtered)
	model = updated.(Model)
	require.Len(t, model.templates, 1)
	assert.Equal(t, "city", model.templates[0].ID)

	// a filter that keeps nothing is an empty list, not an error
	empty := loadTemplatesCmd(svc, "s1", service.PoolFilter{Expression: "missing"})().(templatesLoadedMsg)
	assert.NoError(t, empty.err)
	assert.Empty(t, empty.templates)
}

func TestModelRealizesSelectedTemplate(t *testing.T) {
	m, _ := newTestModel(t)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	updated, _ = updated.(Model).Update(m.Init()())
	model := updated.(Model)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(realizedMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)

	updated, _ = model.Update(msg)
	model = updated.(Model)
	assert.Equal(t, ViewRealization, model.viewMode)
	require.NotNil(t, model.realization)
	assert.NotEmpty(t, model.realization.Surface)
	assert.Equal(t, "city", model.lastTemplate)

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewLibrary, updated.(Model).viewMode)
}

func TestModelReportsErrorsInStatus(t *testing.T) {
	m, _ := newTestModel(t)
	updated, _ := m.Update(realizedMsg{templateID: "gone", err: assert.AnError})
	model := updated.(Model)
	assert.Equal(t, "error", model.statusType)
	assert.NotEmpty(t, model.statusMsg)
	assert.Equal(t, ViewLibrary, model.viewMode)
}
