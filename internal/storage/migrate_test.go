package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

func TestListSessions(t *testing.T) {
	s := newTestStorage(t)
	ids, err := s.ListSessions()
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.SetActiveProfile("beta", models.DefaultProfileID))
	require.NoError(t, s.SetActiveProfile("alpha", models.DefaultProfileID))

	ids, err = s.ListSessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, ids)
}

func TestCopyLibrary(t *testing.T) {
	src := newTestStorage(t)
	require.NoError(t, src.SaveTemplate(sampleTemplate(t, "shared", "")))
	require.NoError(t, src.SaveTemplate(sampleTemplate(t, "mine", "alpha")))

	_, err := EnsureDefaultProfile(src, "alpha")
	require.NoError(t, err)
	loud := models.DefaultProfile("alpha")
	loud.ID = "loud"
	loud.Name = "loud"
	loud.JitterProbability = 0.9
	require.NoError(t, src.SaveProfile(loud))
	require.NoError(t, src.SetActiveProfile("alpha", "loud"))

	dst, err := OpenSQLStore(":memory:")
	require.NoError(t, err)
	defer dst.Close()

	result, err := CopyLibrary(src, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Templates)
	assert.Equal(t, 2, result.Profiles)
	assert.Equal(t, 1, result.Sessions)
	assert.Empty(t, result.Skipped)

	docs, err := dst.ListTemplates("alpha")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	docs, err = dst.ListTemplates("beta")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "shared", docs[0].ID)

	got, err := dst.GetProfile("alpha", "loud")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, got.JitterProbability, 1e-9)

	active, err := dst.ActiveProfile("alpha")
	require.NoError(t, err)
	assert.Equal(t, "loud", active)
}
