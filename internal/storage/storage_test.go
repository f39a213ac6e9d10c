package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/document"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, s.InitLibrary())
	return s
}

func sampleTemplate(t *testing.T, id, session string) *models.TemplateDocument {
	t.Helper()
	doc, err := document.Parse("> Opening line\nThe [ADJ] [NOUN#1] [VERB:past] near [!NOUN#1=river]")
	require.NoError(t, err)
	doc.ID = id
	doc.SessionID = session
	doc.Name = "Sample " + id
	doc.Tags = []string{"nature", "short"}
	doc.Weight = 2
	doc.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	doc.UpdatedAt = doc.CreatedAt
	return doc
}

func TestSaveAndLoadTemplate(t *testing.T) {
	s := newTestStorage(t)
	doc := sampleTemplate(t, "t1", "")
	doc.Blocks[1].Tokens[1].Lemma = "quick"
	require.NoError(t, s.SaveTemplate(doc))

	got, err := s.GetTemplate("t1")
	require.NoError(t, err)
	if diff := cmp.Diff(doc, got, cmpopts.IgnoreFields(models.TemplateDocument{}, "FilePath"), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(filepath.Join(s.GetBaseDir(), "templates", "t1.md"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[VERB:past]")
	assert.Contains(t, string(raw), "> Opening line")
}

func TestLoadHandWrittenTemplate(t *testing.T) {
	s := newTestStorage(t)
	content := "---\nid: hand\nname: Hand written\ntags: [demo]\n---\n\n[PROPN=Alice] [VERB:3sg] [DET=the] [NOUN]\n"
	require.NoError(t, os.WriteFile(filepath.Join(s.GetBaseDir(), "templates", "hand.md"), []byte(content), 0644))

	doc, err := s.GetTemplate("hand")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 1)
	toks := doc.Blocks[0].Tokens
	require.Len(t, toks, 4)
	assert.Equal(t, "Alice", toks[0].Text)
	assert.Equal(t, models.MorphThirdPerson, toks[1].Morph)
	for _, tok := range toks {
		assert.NotEmpty(t, tok.ID)
	}
}

func TestParseTemplateFileErrors(t *testing.T) {
	_, err := parseTemplateFile([]byte("no frontmatter"))
	assert.Error(t, err)
	_, err = parseTemplateFile([]byte("---\nid: x\n"))
	assert.Error(t, err)
	_, err = parseTemplateFile([]byte("---\nid: x\n---\n[NOUN"))
	assert.Error(t, err)
}

func TestTemplateVisibilityAndDelete(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.SaveTemplate(sampleTemplate(t, "shared", "")))
	require.NoError(t, s.SaveTemplate(sampleTemplate(t, "mine", "alice")))
	require.NoError(t, s.SaveTemplate(sampleTemplate(t, "theirs", "bob")))

	ids := func(docs []*models.TemplateDocument) []string {
		var out []string
		for _, d := range docs {
			out = append(out, d.ID)
		}
		return out
	}

	docs, err := s.ListTemplates("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"mine", "shared"}, ids(docs))

	docs, err = s.ListTemplates("")
	require.NoError(t, err)
	assert.Equal(t, []string{"mine", "shared", "theirs"}, ids(docs))

	require.NoError(t, s.DeleteTemplate("mine"))
	assert.ErrorIs(t, s.DeleteTemplate("mine"), ErrNotFound)
	_, err = s.GetTemplate("mine")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateSummariesUseCache(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.SaveTemplate(sampleTemplate(t, "a", "")))
	require.NoError(t, s.SaveTemplate(sampleTemplate(t, "b", "")))

	docs, err := s.ListTemplateSummaries("")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Nil(t, docs[0].Blocks)
	assert.Equal(t, "Sample a", docs[0].Name)
	assert.Equal(t, 2, s.cache.Len())

	// a fresh storage on the same root reads the saved cache
	again, err := NewStorage(s.GetBaseDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, again.cache.Len())

	require.NoError(t, s.DeleteTemplate("b"))
	docs, err = s.ListTemplateSummaries("")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, 1, s.cache.Len())
}

func TestInvalidIDs(t *testing.T) {
	s := newTestStorage(t)
	doc := sampleTemplate(t, "../escape", "")
	assert.Error(t, s.SaveTemplate(doc))
	_, err := s.GetTemplate("a/b")
	assert.Error(t, err)
	assert.Error(t, ValidateID(""))
	assert.NoError(t, ValidateID("f47ac10b-58cc-4372-a567-0e02b2c3d479"))
}

func TestPoolStore(t *testing.T) {
	store := NewPoolStore(t.TempDir())

	pools, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, pools)

	expr := models.NewAndExpression(models.NewTagExpression("nature"), models.NewNotExpression(models.NewTagExpression("long")))
	require.NoError(t, store.Save(models.SavedPool{Name: "walks", Expression: expr, TextQuery: "river"}))
	require.NoError(t, store.Save(models.SavedPool{Name: "all"}))

	got, err := store.Get("walks")
	require.NoError(t, err)
	assert.Equal(t, "nature AND NOT long", got.Expression.String())
	assert.NotEmpty(t, got.CreatedAt)
	created := got.CreatedAt

	require.NoError(t, store.Save(models.SavedPool{Name: "walks", TemplateIDs: []string{"t1"}}))
	got, err = store.Get("walks")
	require.NoError(t, err)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, []string{"t1"}, got.TemplateIDs)

	pools, err = store.List()
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, "all", pools[0].Name)

	require.NoError(t, store.Delete("all"))
	assert.ErrorIs(t, store.Delete("all"), ErrNotFound)
	_, err = store.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Error(t, store.Save(models.SavedPool{}))
}
