package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

// both backends must behave the same
func stores(t *testing.T) map[string]interface {
	TemplateStore
	ProfileStore
} {
	t.Helper()
	files := newTestStorage(t)

	memory, err := OpenSQLStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { memory.Close() })

	onDisk, err := OpenSQLStore(filepath.Join(t.TempDir(), "simplethink.db"))
	require.NoError(t, err)
	t.Cleanup(func() { onDisk.Close() })

	return map[string]interface {
		TemplateStore
		ProfileStore
	}{"files": files, "sqlite-memory": memory, "sqlite-file": onDisk}
}

func TestEnsureDefaultProfile(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			p, err := EnsureDefaultProfile(store, "s1")
			require.NoError(t, err)
			assert.Equal(t, models.DefaultProfileID, p.ID)
			assert.True(t, p.JitterEnabled)
			assert.InDelta(t, 0.3, p.JitterProbability, 1e-9)

			p.JitterProbability = 0.8
			require.NoError(t, store.SaveProfile(p))

			again, err := EnsureDefaultProfile(store, "s1")
			require.NoError(t, err)
			assert.InDelta(t, 0.8, again.JitterProbability, 1e-9, "existing default is kept")

			other, err := EnsureDefaultProfile(store, "s2")
			require.NoError(t, err)
			assert.InDelta(t, 0.3, other.JitterProbability, 1e-9)
		})
	}
}

func TestProfileCRUD(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			p := models.DefaultProfile("s1")
			p.ID = "wild"
			p.Name = "Wild"
			p.CategoryProbabilities = map[string]float64{"NOUN": 0.5, "VERB:past": 1}
			p.Position = models.PositionTarget{Enabled: true, Category: "ADJ", Ordinal: 2}
			p.RegexPattern = "^s"
			p.Mutators = []string{"bind-repeats"}
			p.Seed = "abc"
			require.NoError(t, store.SaveProfile(p))
			require.NoError(t, store.SaveProfile(models.DefaultProfile("s1")))

			got, err := store.GetProfile("s1", "wild")
			require.NoError(t, err)
			assert.Equal(t, p.CategoryProbabilities, got.CategoryProbabilities)
			assert.Equal(t, p.Position, got.Position)
			assert.Equal(t, "abc", got.Seed)
			assert.Equal(t, []string{"bind-repeats"}, got.Mutators)

			list, err := store.ListProfiles("s1")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "default", list[0].ID)
			assert.Equal(t, "wild", list[1].ID)

			list, err = store.ListProfiles("s2")
			require.NoError(t, err)
			assert.Empty(t, list)

			require.NoError(t, store.DeleteProfile("s1", "wild"))
			assert.ErrorIs(t, store.DeleteProfile("s1", "wild"), ErrNotFound)
			_, err = store.GetProfile("s1", "wild")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestActiveProfile(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := store.ActiveProfile("s1")
			require.NoError(t, err)
			assert.Equal(t, models.DefaultProfileID, id)

			require.NoError(t, store.SetActiveProfile("s1", "wild"))
			id, err = store.ActiveProfile("s1")
			require.NoError(t, err)
			assert.Equal(t, "wild", id)

			id, err = store.ActiveProfile("s2")
			require.NoError(t, err)
			assert.Equal(t, models.DefaultProfileID, id)
		})
	}
}

func TestTemplateStores(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SaveTemplate(sampleTemplate(t, "shared", "")))
			require.NoError(t, store.SaveTemplate(sampleTemplate(t, "mine", "s1")))
			require.NoError(t, store.SaveTemplate(sampleTemplate(t, "theirs", "s2")))

			docs, err := store.ListTemplates("s1")
			require.NoError(t, err)
			require.Len(t, docs, 2)
			assert.Equal(t, "mine", docs[0].ID)
			assert.Equal(t, "shared", docs[1].ID)

			got, err := store.GetTemplate("mine")
			require.NoError(t, err)
			assert.Equal(t, "Sample mine", got.Name)
			assert.Equal(t, 3, got.SlotCount())
			assert.Equal(t, []string{"nature", "short"}, got.Tags)

			updated := got.Clone()
			updated.Name = "Renamed"
			require.NoError(t, store.SaveTemplate(updated))
			got, err = store.GetTemplate("mine")
			require.NoError(t, err)
			assert.Equal(t, "Renamed", got.Name)

			require.NoError(t, store.DeleteTemplate("mine"))
			_, err = store.GetTemplate("mine")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, store.DeleteTemplate("mine"), ErrNotFound)
		})
	}
}
