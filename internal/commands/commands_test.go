package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/config"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/engine"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/service"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestExecutor(t *testing.T) *CommandExecutor {
	t.Helper()
	logger := zaptest.NewLogger(t)
	svc, err := service.NewService(config.Default(t.TempDir()), logger)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	require.NoError(t, svc.InitLibrary())
	return NewCommandExecutor(svc, logger)
}

func run(t *testing.T, e *CommandExecutor, name string, params map[string]interface{}) *CommandResult {
	t.Helper()
	res, err := e.Execute(context.Background(), name, params)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func mustSucceed(t *testing.T, e *CommandExecutor, name string, params map[string]interface{}) *CommandResult {
	t.Helper()
	res := run(t, e, name, params)
	require.True(t, res.Success, "%s failed: %+v", name, res.Error)
	return res
}

func createTemplate(t *testing.T, e *CommandExecutor, id, body string, tags ...string) {
	t.Helper()
	mustSucceed(t, e, "create-template", map[string]interface{}{
		"id":   id,
		"body": body,
		"tags": tags,
	})
}

var catSleep = []interface{}{
	map[string]interface{}{"text": "cat", "lemma": "cat", "pos": []interface{}{"NOUN"}},
	map[string]interface{}{"text": "sleep", "lemma": "sleep", "pos": []interface{}{"VERB"}},
}

func TestExecuteUnknownCommand(t *testing.T) {
	e := newTestExecutor(t)
	res := run(t, e, "explode", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "COMMAND_NOT_FOUND", res.Error.Code)
}

func TestExecuteValidationFailure(t *testing.T) {
	e := newTestExecutor(t)

	res := run(t, e, "batch", map[string]interface{}{})
	assert.False(t, res.Success)
	assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)
	assert.Contains(t, res.Error.Details, "count")

	res = run(t, e, "realize", map[string]interface{}{"template": "x", "format": "yaml"})
	assert.False(t, res.Success)
	assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)
}

func TestCommandsListed(t *testing.T) {
	e := newTestExecutor(t)
	cmds := e.Commands()
	for _, name := range []string{"realize", "generate", "batch", "list-templates", "update-config", "import"} {
		assert.Contains(t, cmds, name)
		assert.NotEmpty(t, cmds[name])
	}
}

func TestTemplateCommands(t *testing.T) {
	e := newTestExecutor(t)
	createTemplate(t, e, "river", "The [NOUN] flows", "nature", "water")
	createTemplate(t, e, "forest", "A [ADJ] forest", "nature")

	res := mustSucceed(t, e, "get-template", map[string]interface{}{"id": "river"})
	view, ok := res.Data.(TemplateView)
	require.True(t, ok)
	assert.Equal(t, "river", view.ID)
	assert.Equal(t, 1, view.Slots)
	assert.Contains(t, view.Markup, "[NOUN]")
	assert.ElementsMatch(t, []string{"nature", "water"}, view.Tags)

	res = mustSucceed(t, e, "list-templates", map[string]interface{}{"expression": "nature AND NOT water"})
	views := res.Data.([]TemplateView)
	require.Len(t, views, 1)
	assert.Equal(t, "forest", views[0].ID)
	assert.Empty(t, views[0].Markup)

	res = mustSucceed(t, e, "list-templates", map[string]interface{}{"expression": "desert"})
	assert.Empty(t, res.Data.([]TemplateView))
	assert.Equal(t, "Found 0 templates", res.Message)

	res = run(t, e, "list-templates", map[string]interface{}{"expression": "nature AND"})
	assert.False(t, res.Success)

	mustSucceed(t, e, "delete-template", map[string]interface{}{"id": "river"})
	res = run(t, e, "get-template", map[string]interface{}{"id": "river"})
	assert.False(t, res.Success)
	assert.Equal(t, "NOT_FOUND", res.Error.Code)

	res = run(t, e, "create-template", map[string]interface{}{"id": "broken", "body": "[NOUN"})
	assert.False(t, res.Success)
	assert.Equal(t, "INVALID_FORMAT", res.Error.Code)
}

func TestRealizeCommand(t *testing.T) {
	e := newTestExecutor(t)
	createTemplate(t, e, "pair", "[NOUN] [VERB]")
	mustSucceed(t, e, "update-config", map[string]interface{}{
		"session": "s1",
		"patch":   map[string]interface{}{"autoBind": false},
	})

	res := mustSucceed(t, e, "realize", map[string]interface{}{
		"session":    "s1",
		"template":   "pair",
		"candidates": catSleep,
	})
	r, ok := res.Data.(*engine.Realization)
	require.True(t, ok)
	assert.Equal(t, "cat sleep", r.Surface)
	assert.Equal(t, "cat sleep", res.Message)

	res = mustSucceed(t, e, "realize", map[string]interface{}{
		"session":    "s1",
		"template":   "pair",
		"candidates": catSleep,
		"format":     "text",
	})
	assert.Equal(t, "cat sleep", res.Data)

	res = mustSucceed(t, e, "realize", map[string]interface{}{
		"session":    "s1",
		"template":   "pair",
		"candidates": catSleep,
		"format":     "markdown",
	})
	assert.Contains(t, res.Data, "## cat sleep")

	res = run(t, e, "realize", map[string]interface{}{"session": "s1", "template": "missing"})
	assert.False(t, res.Success)
	assert.Equal(t, "NOT_FOUND", res.Error.Code)
}

func TestGenerateAndBatchCommands(t *testing.T) {
	e := newTestExecutor(t)
	createTemplate(t, e, "fixed", "Hello world", "greeting")
	createTemplate(t, e, "other", "The [NOUN] hums", "urban")

	res := mustSucceed(t, e, "generate", map[string]interface{}{"expression": "greeting", "format": "text"})
	assert.Equal(t, "Hello world", res.Data)

	res = run(t, e, "generate", map[string]interface{}{"expression": "desert"})
	assert.False(t, res.Success)
	assert.Equal(t, "EXHAUSTED", res.Error.Code)

	res = mustSucceed(t, e, "batch", map[string]interface{}{
		"count":        "3",
		"template_ids": "fixed",
		"format":       "text",
	})
	assert.Equal(t, []string{"Hello world"}, res.Data)
	require.NotNil(t, res.Meta)
	assert.NotEmpty(t, res.Meta["warning"])
}

func TestProfileCommands(t *testing.T) {
	e := newTestExecutor(t)

	res := mustSucceed(t, e, "save-profile", map[string]interface{}{
		"session": "s1",
		"id":      "wild",
		"profile": map[string]interface{}{"jitterProbability": 0.9},
	})
	saved := res.Data.(*models.Profile)
	assert.Equal(t, "wild", saved.ID)
	assert.InDelta(t, 0.9, saved.JitterProbability, 1e-9)

	mustSucceed(t, e, "activate-profile", map[string]interface{}{"session": "s1", "id": "wild"})
	res = mustSucceed(t, e, "list-profiles", map[string]interface{}{"session": "s1"})
	list := res.Data.(ProfileList)
	assert.Equal(t, "wild", list.Active)
	assert.Len(t, list.Profiles, 2)

	res = run(t, e, "update-config", map[string]interface{}{
		"session": "s1",
		"patch":   map[string]interface{}{"jitterProbability": 2.0},
	})
	assert.False(t, res.Success)
	assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)

	res = run(t, e, "delete-profile", map[string]interface{}{"session": "s1", "id": models.DefaultProfileID})
	assert.False(t, res.Success)
	assert.Equal(t, "FORBIDDEN", res.Error.Code)

	res = mustSucceed(t, e, "delete-profile", map[string]interface{}{"session": "s1", "id": "wild"})
	assert.Equal(t, map[string]string{"id": "wild", "active": models.DefaultProfileID}, res.Data)
}

func TestLogCommands(t *testing.T) {
	e := newTestExecutor(t)
	createTemplate(t, e, "pair", "[NOUN] [VERB]")

	mustSucceed(t, e, "set-logging", map[string]interface{}{"session": "s1", "enabled": true})
	mustSucceed(t, e, "realize", map[string]interface{}{"session": "s1", "template": "pair"})

	res := mustSucceed(t, e, "logs", map[string]interface{}{"session": "s1"})
	assert.NotEmpty(t, res.Data)
	assert.Equal(t, true, res.Meta["enabled"])

	mustSucceed(t, e, "clear-logs", map[string]interface{}{"session": "s1"})
	res = mustSucceed(t, e, "logs", map[string]interface{}{"session": "s1"})
	assert.Empty(t, res.Data)
}

func TestPoolCommands(t *testing.T) {
	e := newTestExecutor(t)
	createTemplate(t, e, "river", "The [NOUN] flows", "water")

	res := run(t, e, "save-pool", map[string]interface{}{"name": "empty"})
	assert.False(t, res.Success)

	mustSucceed(t, e, "save-pool", map[string]interface{}{"name": "wet", "expression": "water"})
	mustSucceed(t, e, "get-pool", map[string]interface{}{"name": "wet"})

	res = mustSucceed(t, e, "generate", map[string]interface{}{"pool": "wet", "format": "text"})
	assert.Contains(t, res.Data, "flows")

	mustSucceed(t, e, "delete-pool", map[string]interface{}{"name": "wet"})
	res = run(t, e, "get-pool", map[string]interface{}{"name": "wet"})
	assert.False(t, res.Success)
	assert.Equal(t, "NOT_FOUND", res.Error.Code)
}

func TestImportCommand(t *testing.T) {
	e := newTestExecutor(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lines.txt"), []byte("The cat sleeps.\nA dog barks loudly.\n"), 0644))

	res := mustSucceed(t, e, "import", map[string]interface{}{"path": dir, "dry_run": true})
	summary := res.Data.(ImportSummary)
	assert.Len(t, summary.Templates, 2)
	assert.Equal(t, "Would import 2 templates", res.Message)

	res = mustSucceed(t, e, "import", map[string]interface{}{"path": dir, "tags": "corpus"})
	assert.Equal(t, 2, res.Data.(ImportSummary).Saved)

	res = mustSucceed(t, e, "import", map[string]interface{}{"path": dir, "conflict": "rename"})
	assert.Equal(t, "Imported 2 templates (0 skipped, 2 renamed)", res.Message)

	res = run(t, e, "import", map[string]interface{}{"path": dir, "conflict": "merge"})
	assert.False(t, res.Success)
	assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)
}

func TestHealthCommand(t *testing.T) {
	e := newTestExecutor(t)
	createTemplate(t, e, "fixed", "Hello world")

	res := mustSucceed(t, e, "health", nil)
	data := res.Data.(map[string]interface{})
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, 1, data["templates"])
	assert.Equal(t, config.Version, data["version"])
}

func TestErrorInfoRoundTrip(t *testing.T) {
	e := newTestExecutor(t)
	res := run(t, e, "get-template", map[string]interface{}{"id": "nope"})
	require.NotNil(t, res.Error)

	appErr := res.Error.AppError()
	assert.Equal(t, res.Error.Code, string(appErr.Code))
	assert.Equal(t, res.Error.Message, appErr.Message)
}
