// Package ui implements the interactive generator: a template library on
// the left of the workflow, realizations rendered through glamour on the
// right, and modals for pool filters, profiles and new templates.
package ui

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.uber.org/zap"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/clipboard"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/engine"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/errors"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/renderer"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/service"
)

// createGlamourRenderer creates a glamour renderer matched to the terminal
func createGlamourRenderer(wordWrap int) (*glamour.TermRenderer, error) {
	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		return glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wordWrap),
		)
	}

	profile := termenv.ColorProfile()
	styleOption := glamour.WithAutoStyle()
	if profile == termenv.TrueColor || profile == termenv.ANSI256 {
		if lipgloss.HasDarkBackground() {
			styleOption = glamour.WithStandardStyle("dark")
		} else {
			styleOption = glamour.WithStandardStyle("light")
		}
	}

	return glamour.NewTermRenderer(
		styleOption,
		glamour.WithColorProfile(profile),
		glamour.WithWordWrap(wordWrap),
	)
}

// Messages for async operations
type templatesLoadedMsg struct {
	templates []*models.TemplateDocument
	err       error
}

type realizedMsg struct {
	realization *engine.Realization
	templateID  string
	err         error
}

// loadTemplatesCmd loads the templates the current pool filter keeps
func loadTemplatesCmd(svc *service.Service, sessionID string, filter service.PoolFilter) tea.Cmd {
	return func() tea.Msg {
		docs, err := resolveTemplates(svc, sessionID, filter)
		return templatesLoadedMsg{templates: docs, err: err}
	}
}

// resolveTemplates lists templates through the pool filter. A filter that
// keeps nothing yields an empty list.
func resolveTemplates(svc *service.Service, sessionID string, filter service.PoolFilter) ([]*models.TemplateDocument, error) {
	if filter.IsZero() {
		return svc.ListTemplates(sessionID)
	}
	docs, err := svc.ResolvePool(sessionID, filter)
	if errors.HasCode(err, errors.ErrCodeExhausted) {
		return nil, nil
	}
	return docs, err
}

// realizeCmd realizes one template, or draws from the pool when
// templateID is empty
func realizeCmd(ctx context.Context, sess *service.Session, templateID string, filter service.PoolFilter) tea.Cmd {
	return func() tea.Msg {
		var (
			r   *engine.Realization
			err error
		)
		if templateID != "" {
			r, err = sess.Realize(ctx, templateID, service.RealizeOptions{})
		} else {
			r, err = sess.Generate(ctx, service.GenerateOptions{PoolFilter: filter})
		}
		return realizedMsg{realization: r, templateID: templateID, err: err}
	}
}

// ViewMode represents the current view in the TUI
type ViewMode int

const (
	ViewLibrary ViewMode = iota
	ViewRealization
	ViewCreateTemplate
)

// Model represents the TUI application state
type Model struct {
	ctx      context.Context
	service  *service.Service
	session  *service.Session
	logger   *zap.Logger
	viewMode ViewMode

	errHandler *errors.TUIErrorHandler

	// UI components
	templateList list.Model
	viewport     viewport.Model
	helpViewport viewport.Model
	help         help.Model
	keys         KeyMap

	// Data
	templates []*models.TemplateDocument
	filter    service.PoolFilter
	loading   bool

	// Realization state. lastTemplate is empty when the last text was
	// drawn from the pool, so a reroll draws again.
	realization  *engine.Realization
	lastTemplate string
	showReport   bool

	glamourRenderer *glamour.TermRenderer

	width  int
	height int

	statusMsg     string
	statusType    string
	statusTimeout int

	deleteConfirm    bool
	showHelpModal    bool
	showExpandedHelp bool

	poolModal    *PoolModal
	profileModal *ProfileSelectorModal
	templateForm *TemplateForm
}

// KeyMap defines all key bindings
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	Enter      key.Binding
	Back       key.Binding
	Quit       key.Binding
	Help       key.Binding
	ExpandHelp key.Binding
	Search     key.Binding
	Generate   key.Binding
	Reroll     key.Binding
	Report     key.Binding
	Copy       key.Binding
	Filter     key.Binding
	SavePool   key.Binding
	ClearPool  key.Binding
	Profiles   key.Binding
	Logging    key.Binding
	New        key.Binding
	Delete     key.Binding
}

// ShortHelp returns keybindings to show in the mini help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns keybindings to show in the full help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.Back},
		{k.Generate, k.Reroll, k.Report, k.Copy},
		{k.Filter, k.SavePool, k.ClearPool, k.Profiles},
		{k.Logging, k.New, k.Delete, k.Search},
		{k.Help, k.Quit},
	}
}

var keys = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "move down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "realize template"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	ExpandHelp: key.NewBinding(
		key.WithKeys("ctrl+g"),
		key.WithHelp("Ctrl+g", "expand help"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search list"),
	),
	Generate: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "generate from pool"),
	),
	Reroll: key.NewBinding(
		key.WithKeys("r", " "),
		key.WithHelp("r/Space", "reroll"),
	),
	Report: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "toggle trace report"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy text"),
	),
	Filter: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "filter pool"),
	),
	SavePool: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "save pool"),
	),
	ClearPool: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "clear filter"),
	),
	Profiles: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "profiles"),
	),
	Logging: key.NewBinding(
		key.WithKeys("L"),
		key.WithHelp("L", "strategy log"),
	),
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new template"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete template"),
	),
}

// templateItem adapts a template document to list.Item
type templateItem struct {
	doc *models.TemplateDocument
}

func (i templateItem) Title() string {
	if i.doc.Name != "" {
		return i.doc.Name
	}
	return i.doc.ID
}

func (i templateItem) Description() string {
	parts := []string{i.doc.ID, fmt.Sprintf("%d slots", i.doc.SlotCount())}
	if len(i.doc.Tags) > 0 {
		parts = append(parts, strings.Join(i.doc.Tags, ", "))
	}
	if i.doc.SessionID != "" {
		parts = append(parts, "private")
	}
	return strings.Join(parts, " · ")
}

func (i templateItem) FilterValue() string {
	return strings.Join(append([]string{i.doc.Name, i.doc.ID, i.doc.Description}, i.doc.Tags...), " ")
}

// NewModel creates the TUI model for one session
func NewModel(ctx context.Context, svc *service.Service, sessionID string, logger *zap.Logger) (*Model, error) {
	initializeColors()

	if logger == nil {
		logger = zap.NewNop()
	}
	sess, err := svc.Session(sessionID)
	if err != nil {
		return nil, err
	}

	l := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	l.Title = ""
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	listKeys := list.DefaultKeyMap()
	listKeys.Filter = key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	)
	l.KeyMap = listKeys

	vp := viewport.New(80, 20)
	vp.Style = lipgloss.NewStyle()

	helpVp := viewport.New(56, 23)
	helpVp.Style = lipgloss.NewStyle()

	glamourRenderer, err := createGlamourRenderer(60)
	if err != nil {
		return nil, fmt.Errorf("failed to create glamour renderer: %w", err)
	}

	m := &Model{
		ctx:             ctx,
		service:         svc,
		session:         sess,
		logger:          logger,
		viewMode:        ViewLibrary,
		errHandler:      errors.NewTUIErrorHandler(true, logger),
		templateList:    l,
		viewport:        vp,
		helpViewport:    helpVp,
		help:            help.New(),
		keys:            keys,
		loading:         true,
		showReport:      true,
		glamourRenderer: glamourRenderer,
		poolModal:       NewPoolModal(),
		profileModal:    NewProfileSelectorModal(),
	}
	m.poolModal.SetCountFunc(func(filter service.PoolFilter) (int, error) {
		docs, err := resolveTemplates(svc, sess.ID(), filter)
		return len(docs), err
	})
	return m, nil
}

// Run starts the TUI and blocks until it exits or ctx is cancelled
func Run(ctx context.Context, svc *service.Service, sessionID string, logger *zap.Logger) error {
	m, err := NewModel(ctx, svc, sessionID, logger)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// Init loads the template list
func (m Model) Init() tea.Cmd {
	return loadTemplatesCmd(m.service, m.session.ID(), m.filter)
}

// tickMsg is sent to count down the status message
type tickMsg time.Time

func clearStatusCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// setStatus shows a message for a few seconds
func (m *Model) setStatus(msg, statusType string) tea.Cmd {
	m.statusMsg = msg
	m.statusType = statusType
	m.statusTimeout = 3
	return clearStatusCmd()
}

// setError logs err and shows it in the status line
func (m *Model) setError(err error) tea.Cmd {
	err = m.errHandler.HandleError(err)
	icon, _ := m.errHandler.GetErrorStyle(err)
	return m.setStatus(icon+" "+strings.ReplaceAll(m.errHandler.FormatError(err), "\n", " · "), "error")
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tickMsg:
		if m.statusTimeout > 0 {
			m.statusTimeout--
			if m.statusTimeout == 0 {
				m.statusMsg = ""
				return m, nil
			}
			return m, clearStatusCmd()
		}
		return m, nil

	case templatesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			return m, m.setError(msg.err)
		}
		m.setTemplates(msg.templates)
		return m, nil

	case realizedMsg:
		if msg.err != nil {
			return m, m.setError(msg.err)
		}
		m.realization = msg.realization
		m.lastTemplate = msg.templateID
		m.viewMode = ViewRealization
		if err := m.renderRealization(); err != nil {
			return m, m.setError(err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.viewMode == ViewCreateTemplate && m.templateForm != nil {
		return m, m.templateForm.Update(msg)
	}
	var cmd tea.Cmd
	if m.viewMode == ViewLibrary {
		m.templateList, cmd = m.templateList.Update(msg)
	} else {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Modals take every key while open
	if m.showHelpModal {
		switch msg.String() {
		case "esc", "?", "q":
			m.showHelpModal = false
			return m, nil
		}
		var cmd tea.Cmd
		m.helpViewport, cmd = m.helpViewport.Update(msg)
		return m, cmd
	}
	if m.poolModal.IsActive() {
		cmd := m.poolModal.Update(msg)
		if m.poolModal.IsSubmitted() {
			return m, tea.Batch(cmd, m.applyPoolModal())
		}
		return m, cmd
	}
	if m.profileModal.IsActive() {
		var cmd tea.Cmd
		m.profileModal, cmd = m.profileModal.Update(msg)
		if chosen := m.profileModal.Chosen(); chosen != "" && !m.profileModal.IsActive() {
			return m, tea.Batch(cmd, m.activateProfile(chosen))
		}
		return m, cmd
	}
	if m.viewMode == ViewCreateTemplate {
		return m.updateTemplateForm(msg)
	}

	// Let the list own keys while its filter input is open
	if m.viewMode == ViewLibrary && m.templateList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.templateList, cmd = m.templateList.Update(msg)
		return m, cmd
	}

	if !key.Matches(msg, m.keys.Delete) {
		m.deleteConfirm = false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelpModal = true
		m.helpViewport.SetContent(m.renderHelp())
		m.helpViewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.ExpandHelp):
		m.showExpandedHelp = !m.showExpandedHelp
		return m, nil

	case key.Matches(msg, m.keys.Back):
		if m.viewMode == ViewRealization {
			m.viewMode = ViewLibrary
			return m, nil
		}
		if m.templateList.FilterState() != list.Unfiltered {
			m.templateList.ResetFilter()
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter) && m.viewMode == ViewLibrary:
		if item, ok := m.templateList.SelectedItem().(templateItem); ok {
			return m, realizeCmd(m.ctx, m.session, item.doc.ID, m.filter)
		}
		return m, nil

	case key.Matches(msg, m.keys.Generate):
		return m, realizeCmd(m.ctx, m.session, "", m.filter)

	case key.Matches(msg, m.keys.Reroll) && m.viewMode == ViewRealization:
		return m, realizeCmd(m.ctx, m.session, m.lastTemplate, m.filter)

	case key.Matches(msg, m.keys.Report) && m.viewMode == ViewRealization:
		m.showReport = !m.showReport
		if err := m.renderRealization(); err != nil {
			return m, m.setError(err)
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy) && m.realization != nil:
		status, err := clipboard.CopyWithFallback(m.realization.Surface)
		if err != nil {
			return m, m.setStatus(status, "warning")
		}
		return m, m.setStatus(status, "success")

	case key.Matches(msg, m.keys.Filter):
		m.poolModal.SetAvailableTags(collectTags(m.templates))
		m.poolModal.Open(PoolModeFilter, m.filter)
		return m, nil

	case key.Matches(msg, m.keys.SavePool):
		m.poolModal.SetAvailableTags(collectTags(m.templates))
		m.poolModal.Open(PoolModeSave, m.filter)
		return m, nil

	case key.Matches(msg, m.keys.ClearPool):
		if m.filter.IsZero() {
			return m, nil
		}
		m.filter = service.PoolFilter{}
		m.loading = true
		return m, tea.Batch(loadTemplatesCmd(m.service, m.session.ID(), m.filter), m.setStatus("Filter cleared", "info"))

	case key.Matches(msg, m.keys.Profiles):
		profiles, err := m.session.ListProfiles()
		if err != nil {
			return m, m.setError(err)
		}
		m.profileModal.SetProfiles(profiles, m.session.ActiveProfile().ID)
		m.profileModal.SetSize(m.width, m.height)
		m.profileModal.Show()
		return m, nil

	case key.Matches(msg, m.keys.Logging):
		enabled := !m.session.LoggingEnabled()
		m.session.SetLogging(enabled)
		if enabled {
			return m, m.setStatus("Strategy logging enabled", "info")
		}
		return m, m.setStatus("Strategy logging disabled", "info")

	case key.Matches(msg, m.keys.New):
		m.templateForm = NewTemplateForm()
		m.templateForm.SetAvailableTags(collectTags(m.templates))
		m.templateForm.Resize(m.width, m.height)
		m.viewMode = ViewCreateTemplate
		return m, nil

	case key.Matches(msg, m.keys.Delete) && m.viewMode == ViewLibrary:
		item, ok := m.templateList.SelectedItem().(templateItem)
		if !ok {
			return m, nil
		}
		if !m.deleteConfirm {
			m.deleteConfirm = true
			return m, m.setStatus(fmt.Sprintf("Press d again to delete %s", item.doc.ID), "warning")
		}
		m.deleteConfirm = false
		if err := m.service.DeleteTemplate(item.doc.ID); err != nil {
			return m, m.setError(err)
		}
		return m, tea.Batch(
			loadTemplatesCmd(m.service, m.session.ID(), m.filter),
			m.setStatus("Deleted "+item.doc.ID, "success"),
		)
	}

	var cmd tea.Cmd
	if m.viewMode == ViewLibrary {
		m.templateList, cmd = m.templateList.Update(msg)
	} else {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// applyPoolModal applies a submitted filter or saves a pool
func (m *Model) applyPoolModal() tea.Cmd {
	if m.poolModal.Mode() == PoolModeSave {
		pool, err := m.poolModal.SavedPool()
		if err != nil {
			return m.setError(errors.Wrap(err, errors.ErrCodeInvalidExpression, "invalid tag expression"))
		}
		if err := m.service.SavePool(pool); err != nil {
			return m.setError(err)
		}
		m.filter = service.PoolFilter{Pool: pool.Name}
		m.loading = true
		return tea.Batch(
			loadTemplatesCmd(m.service, m.session.ID(), m.filter),
			m.setStatus("Saved pool "+pool.Name, "success"),
		)
	}
	m.filter = m.poolModal.Filter()
	m.loading = true
	return loadTemplatesCmd(m.service, m.session.ID(), m.filter)
}

func (m *Model) activateProfile(id string) tea.Cmd {
	if _, err := m.session.ActivateProfile(id); err != nil {
		return m.setError(err)
	}
	return m.setStatus("Activated profile "+id, "success")
}

func (m Model) updateTemplateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cmd := m.templateForm.Update(msg)
	switch {
	case m.templateForm.IsCancelled():
		m.templateForm = nil
		m.viewMode = ViewLibrary
		return m, nil
	case m.templateForm.IsSubmitted():
		in := m.templateForm.Input(m.session.ID())
		var (
			doc *models.TemplateDocument
			err error
		)
		if m.templateForm.PlainText() {
			doc, err = m.service.CreateTemplateFromText(m.ctx, in)
		} else {
			doc, err = m.service.CreateTemplateFromMarkup(in)
		}
		if err != nil {
			// keep the form so the body can be fixed
			m.templateForm.submitted = false
			return m, m.setError(err)
		}
		m.templateForm = nil
		m.viewMode = ViewLibrary
		return m, tea.Batch(
			loadTemplatesCmd(m.service, m.session.ID(), m.filter),
			m.setStatus("Saved template "+doc.ID, "success"),
		)
	}
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	listHeight := height - 6
	if !m.filter.IsZero() {
		listHeight--
	}
	m.templateList.SetSize(width-4, max(listHeight, 3))

	m.viewport.Width = width - 4
	m.viewport.Height = max(height-7, 3)

	m.helpViewport.Width = min(width-8, 72)
	m.helpViewport.Height = min(height-6, 30)

	if r, err := createGlamourRenderer(max(m.viewport.Width-4, 20)); err == nil {
		m.glamourRenderer = r
	}
	m.poolModal.Resize(width, height)
	m.profileModal.SetSize(width, height)
	if m.templateForm != nil {
		m.templateForm.Resize(width, height)
	}
	if m.realization != nil {
		_ = m.renderRealization()
	}
}

func (m *Model) setTemplates(docs []*models.TemplateDocument) {
	m.templates = docs
	items := make([]list.Item, len(docs))
	for i, d := range docs {
		items[i] = templateItem{doc: d}
	}
	m.templateList.SetItems(items)
}

// renderRealization fills the viewport with the surface text or the
// glamour-rendered trace report, followed by any strategy log entries
func (m *Model) renderRealization() error {
	r := m.realization
	if r == nil {
		return nil
	}
	var content string
	if m.showReport {
		md, err := renderer.NewRenderer(r, m.viewport.Width).RenderMarkdown()
		if err != nil {
			return err
		}
		if len(r.Logs) > 0 {
			md += "\n" + logsMarkdown(r.Logs)
		}
		out, err := m.glamourRenderer.Render(md)
		if err != nil {
			return fmt.Errorf("failed to render markdown: %w", err)
		}
		content = out
	} else {
		content = "\n" + StyleSurface.Width(max(m.viewport.Width-2, 20)).Render(r.Surface) + "\n"
	}
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
	return nil
}

func logsMarkdown(entries []models.LogEntry) string {
	var b strings.Builder
	b.WriteString("### Strategy log\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%d. **%s** `%v` → `%v`\n", e.Seq, e.Operation, e.Inputs, e.Result)
	}
	return b.String()
}

// collectTags returns the distinct template tags, sorted
func collectTags(docs []*models.TemplateDocument) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, d := range docs {
		for _, t := range d.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// describeFilter summarizes the active pool filter
func describeFilter(f service.PoolFilter) string {
	var parts []string
	if f.Pool != "" {
		parts = append(parts, f.Pool)
	}
	if f.Expression != "" {
		parts = append(parts, f.Expression)
	}
	if f.Query != "" {
		parts = append(parts, fmt.Sprintf("%q", f.Query))
	}
	return strings.Join(parts, " · ")
}

// View renders the current view with any open modal on top
func (m Model) View() string {
	if m.width == 0 {
		return StyleLoading.Render("Loading...")
	}

	switch {
	case m.showHelpModal:
		return CenterModal(StyleModal.Render(m.helpViewport.View()+"\n\n"+CreateHelp("↑/↓ scroll • Esc close")), m.width, m.height)
	case m.poolModal.IsActive():
		return CenterModal(m.poolModal.View(), m.width, m.height)
	case m.profileModal.IsActive():
		return m.profileModal.View()
	}

	var body string
	switch m.viewMode {
	case ViewCreateTemplate:
		body = m.templateForm.View()
	case ViewRealization:
		body = m.renderRealizationView()
	default:
		body = m.renderLibraryView()
	}

	if m.statusMsg != "" {
		body += "\n" + CreateStatus(m.statusMsg, m.statusType)
	}
	return body
}

func (m Model) header(title string) string {
	return CreateHeader(title, m.session.ID(), m.session.ActiveProfile().ID, m.width)
}

func (m Model) renderLibraryView() string {
	var b strings.Builder
	b.WriteString(m.header("SimpleThink") + "\n")
	if !m.filter.IsZero() {
		b.WriteString(CreateFilterIndicator(describeFilter(m.filter), len(m.templates)) + "\n")
	}

	switch {
	case m.loading:
		b.WriteString(StyleLoading.Render("Loading templates..."))
	case len(m.templates) == 0 && !m.filter.IsZero():
		b.WriteString(StyleTextMuted.Render("  No templates match this pool. Press x to clear the filter."))
	case len(m.templates) == 0:
		b.WriteString(StyleTextMuted.Render("  No templates yet. Press n to write one, or run simplethink import."))
	default:
		b.WriteString(AddMainPadding(m.templateList.View()))
	}
	b.WriteString("\n")

	b.WriteString(CreateContextualHelp(
		[]string{"Enter realize", "g generate", "f filter", "p profiles", "n new", "? help", "q quit"},
		[]string{"s save pool • x clear filter • d delete • / search • L strategy log"},
		m.showExpandedHelp, m.width))
	return b.String()
}

func (m Model) renderRealizationView() string {
	var b strings.Builder
	title := "Generated"
	if m.lastTemplate != "" {
		title = "Realized " + m.lastTemplate
	}
	b.WriteString(m.header(title) + "\n")
	b.WriteString(StyleContentContainer.Width(max(m.width-4, 20)).Render(m.viewport.View()) + "\n")
	b.WriteString(CreateContextualHelp(
		[]string{"r reroll", "v report", "c copy", "g generate", "Esc back", "q quit"},
		[]string{"p profiles • f filter • L strategy log • ↑/↓ scroll"},
		m.showExpandedHelp, m.width))
	return b.String()
}

const helpMarkdown = `# SimpleThink

Templates are sentences whose words carry part-of-speech slots. Realizing
a template fills randomized slots with words from the fallback vocabulary,
shaped by the session's active **profile**.

## Library

| Key | Action |
|-----|--------|
| Enter | realize the selected template |
| g | generate from the current pool |
| f | filter the pool by tag expression and text |
| s | save the current filter as a named pool |
| x | clear the filter |
| n | write a new template |
| d d | delete the selected template |
| / | search the list |

## Realization

| Key | Action |
|-----|--------|
| r, Space | reroll |
| v | toggle the trace report |
| c | copy the text |

## Anywhere

| Key | Action |
|-----|--------|
| p | switch profile |
| L | toggle the strategy log |
| Ctrl+g | expand the help bar |
| q | quit |
`

func (m Model) renderHelp() string {
	out, err := m.glamourRenderer.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return out
}
