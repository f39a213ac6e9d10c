package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePack(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, CreatePackScaffold(dir, name, "Night words", "test pack", "tester"))
	return dir
}

func TestPackConfigRegistry(t *testing.T) {
	base := t.TempDir()
	pc, err := NewPackConfig(base)
	require.NoError(t, err)
	assert.DirExists(t, pc.GetPacksDir())
	assert.Empty(t, pc.ListPacks())

	require.NoError(t, pc.AddPack(Pack{Name: "zeta", Version: "1.0.0"}))
	require.NoError(t, pc.AddPack(Pack{Name: "alpha", Version: "1.0.0"}))
	assert.Error(t, pc.AddPack(Pack{Name: "alpha", Version: "2.0.0"}))

	packs := pc.ListPacks()
	require.Len(t, packs, 2)
	assert.Equal(t, "alpha", packs[0].Name)
	assert.Equal(t, filepath.Join(base, "packs", "alpha"), packs[0].Path)
	assert.False(t, packs[0].InstallTime.IsZero())

	// the registry survives a reload
	again, err := NewPackConfig(base)
	require.NoError(t, err)
	assert.True(t, again.IsPackInstalled("zeta"))

	require.NoError(t, again.RemovePack("zeta"))
	assert.Error(t, again.RemovePack("zeta"))
	_, err = again.GetPack("zeta")
	assert.Error(t, err)
}

func TestLoadPackMetadata(t *testing.T) {
	dir := writePack(t, "night")
	pack, err := LoadPackMetadata(dir)
	require.NoError(t, err)
	assert.Equal(t, "night", pack.Name)
	assert.Equal(t, "0.1.0", pack.Version)
	assert.Equal(t, "Night words", pack.Title)
	assert.Equal(t, dir, pack.Path)
	require.NoError(t, ValidatePackStructure(dir))

	empty := t.TempDir()
	_, err = LoadPackMetadata(empty)
	assert.Error(t, err)
	assert.Error(t, ValidatePackStructure(empty))

	require.NoError(t, os.WriteFile(filepath.Join(empty, packMetadataFile), []byte("name: x\n"), 0644))
	_, err = LoadPackMetadata(empty)
	assert.ErrorContains(t, err, "version")
	assert.ErrorContains(t, ValidatePackStructure(empty), packVocabFile)
}

func TestInstallFromDirectory(t *testing.T) {
	pc, err := NewPackConfig(t.TempDir())
	require.NoError(t, err)
	installer := NewPackInstaller(pc)

	src := writePack(t, "night")
	pack, err := installer.InstallFromDirectory(src, PackInstallOptions{})
	require.NoError(t, err)
	assert.Equal(t, pc.GetPackPath("night"), pack.Path)
	assert.FileExists(t, filepath.Join(pack.Path, "templates", "example.md"))
	assert.Equal(t, []string{filepath.Join(pack.Path, packVocabFile)}, pc.VocabularyPaths())
	assert.NotEmpty(t, pack.TemplatesDir())

	_, err = installer.InstallFromDirectory(src, PackInstallOptions{})
	assert.ErrorContains(t, err, "already installed")

	_, err = installer.InstallFromDirectory(src, PackInstallOptions{Force: true})
	require.NoError(t, err)

	renamed, err := installer.InstallFromDirectory(src, PackInstallOptions{Name: "dusk"})
	require.NoError(t, err)
	assert.Equal(t, "dusk", renamed.Name)
	assert.Len(t, pc.ListPacks(), 2)

	require.NoError(t, installer.UninstallPack("night"))
	assert.NoDirExists(t, pc.GetPackPath("night"))
	assert.Error(t, installer.UninstallPack("night"))
}

func TestInstallFromGit(t *testing.T) {
	pc, err := NewPackConfig(t.TempDir())
	require.NoError(t, err)
	installer := NewPackInstaller(pc)

	var gotArgs []string
	installer.git = func(_ context.Context, args ...string) ([]byte, error) {
		gotArgs = args
		return nil, CreatePackScaffold(args[len(args)-1], "harbor", "Harbor", "", "")
	}

	pack, err := installer.InstallFromGit(context.Background(), "https://github.com/someone/harbor.git", PackInstallOptions{Branch: "dev"})
	require.NoError(t, err)
	assert.Equal(t, []string{"clone", "--depth", "1", "--branch", "dev", "https://github.com/someone/harbor.git"}, gotArgs[:6])
	assert.Equal(t, "harbor", pack.Name)
	assert.Equal(t, "https://github.com/someone/harbor.git", pack.InstallURL)

	reloaded, err := NewPackConfig(filepath.Dir(pc.GetPacksDir()))
	require.NoError(t, err)
	got, err := reloaded.GetPack("harbor")
	require.NoError(t, err)
	assert.Equal(t, pack.InstallURL, got.InstallURL)
}

func TestExtractPackNameFromGitURL(t *testing.T) {
	tests := map[string]string{
		"https://github.com/user/night-words.git": "night-words",
		"git@github.com:user/dusk.git":            "dusk",
		"https://example.com/packs/harbor/":       "harbor",
		"plain":                                   "plain",
	}
	for url, want := range tests {
		assert.Equal(t, want, extractPackNameFromGitURL(url), url)
	}
}
