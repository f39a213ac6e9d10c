package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/errors"
)

// execute runs one command line against the library in dir
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewCLI(&out, &errOut).RootCommand()
	root.SetArgs(append([]string{"--config-dir", dir}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTemplateLifecycle(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized simplethink library")

	out, err = execute(t, dir, "templates", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No templates found")

	_, err = execute(t, dir, "templates", "add", "walk", "The [ADJ] [NOUN]", "--name", "Walk", "--tags", "nature")
	require.NoError(t, err)

	out, err = execute(t, dir, "templates", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "walk")
	assert.Contains(t, out, "nature")

	out, err = execute(t, dir, "realize", "walk")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = execute(t, dir, "realize", "missing")
	assert.Error(t, err)
}

func TestParseKeyValues(t *testing.T) {
	got, err := parseKeyValues([]string{"jitterProbability=0.5", " autoBind =false", "name=loud"})
	require.NoError(t, err)
	assert.Equal(t, 0.5, got["jitterProbability"])
	assert.Equal(t, false, got["autoBind"])
	assert.Equal(t, "loud", got["name"])

	_, err = parseKeyValues([]string{"noequals"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}
