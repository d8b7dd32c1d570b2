package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProjectFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := "name: " + name + "\nversion: \"1.0\"\nprofile: " + name + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "jaffle_shop")

	p, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "jaffle_shop", p.Name)
	assert.Equal(t, root, p.Root)
}

func TestLoad_MissingName(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("version: \"1.0\"\n"), 0o644))

	_, err := Load(root)
	require.Error(t, err)
}

func TestLoad_NoFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "shop")
	nested := filepath.Join(root, "models", "staging")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	t.Run("from nested directory", func(t *testing.T) {
		assert.Equal(t, root, FindRoot(nested))
	})

	t.Run("from file path", func(t *testing.T) {
		file := filepath.Join(nested, "stg_orders.sql")
		require.NoError(t, os.WriteFile(file, []byte("select 1"), 0o644))
		assert.Equal(t, root, FindRoot(file))
	})

	t.Run("outside any project", func(t *testing.T) {
		assert.Equal(t, "", FindRoot(t.TempDir()))
	})
}

func TestDiscover(t *testing.T) {
	ws := t.TempDir()
	writeProjectFile(t, filepath.Join(ws, "shop"), "shop")
	writeProjectFile(t, filepath.Join(ws, "analytics"), "analytics")

	// Installed packages and build output must not register as projects.
	writeProjectFile(t, filepath.Join(ws, "shop", "dbt_packages", "dbt_utils"), "dbt_utils")
	writeProjectFile(t, filepath.Join(ws, "shop", "target", "compiled"), "compiled_copy")
	writeProjectFile(t, filepath.Join(ws, ".cache", "stale"), "stale")

	projects, err := Discover(ws)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "analytics", projects[0].Name)
	assert.Equal(t, "shop", projects[1].Name)
}

func TestDiscover_SkipsMalformedProjectFile(t *testing.T) {
	ws := t.TempDir()
	bad := filepath.Join(ws, "broken")
	require.NoError(t, os.MkdirAll(bad, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, ConfigFileName), []byte(": not yaml"), 0o644))
	writeProjectFile(t, filepath.Join(ws, "good"), "good")

	projects, err := Discover(ws)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "good", projects[0].Name)
}

func TestFinder_ProjectFor(t *testing.T) {
	outer := &Project{Name: "outer", Root: filepath.FromSlash("/ws/outer")}
	inner := &Project{Name: "inner", Root: filepath.FromSlash("/ws/outer/inner")}
	f := NewFinder([]*Project{outer, inner})

	t.Run("prefers deepest root", func(t *testing.T) {
		p := f.ProjectFor(filepath.FromSlash("/ws/outer/inner/models/a.sql"))
		require.NotNil(t, p)
		assert.Equal(t, "inner", p.Name)
	})

	t.Run("outer file stays with outer", func(t *testing.T) {
		p := f.ProjectFor(filepath.FromSlash("/ws/outer/models/b.sql"))
		require.NotNil(t, p)
		assert.Equal(t, "outer", p.Name)
	})

	t.Run("unowned path", func(t *testing.T) {
		assert.Nil(t, f.ProjectFor(filepath.FromSlash("/elsewhere/c.sql")))
	})
}
