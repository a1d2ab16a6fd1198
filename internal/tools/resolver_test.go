package tools

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	accepted := map[string]string{
		"":                       "",
		".":                      "",
		"/":                      "",
		"notes.md":               "notes.md",
		"./playground//a.py":     "playground/a.py",
		"/etc/passwd":            "etc/passwd",
		`playground\sub\x.py`:    "playground/sub/x.py",
		"  visitors/recent.txt ": "visitors/recent.txt",
	}
	for in, want := range accepted {
		got, err := CleanPath(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{
		"../etc/passwd",
		"../../etc/passwd",
		"playground/../../x",
		`..\windows`,
		"a/..",
		"~/secrets",
		"%2e%2e/x",
		"a%2Fb",
		"a%5cb",
		"a%00b",
		"a\x00b",
		".state/gpthome.db",
		"playground/.hidden",
	} {
		_, err := CleanPath(in)
		assert.ErrorIs(t, err, ErrPathRejected, in)
	}
}

func TestPathResolver_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s3cret"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))

	r, err := NewPathResolver(root, 8000)
	require.NoError(t, err)

	_, _, err = r.Resolve("link/secret.txt")
	assert.ErrorIs(t, err, ErrPathRejected)
	_, _, err = r.Resolve("link/new/file.txt")
	assert.ErrorIs(t, err, ErrPathRejected)

	require.NoError(t, os.Mkdir(filepath.Join(root, "inside"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(root, "inside"), filepath.Join(root, "alias")))
	v, rel, err := r.Resolve("alias/ok.txt")
	require.NoError(t, err)
	assert.Equal(t, "alias/ok.txt", rel)
	assert.IsType(t, &RealFile{}, v)
}

func TestPathResolver_Mounts(t *testing.T) {
	r, err := NewPathResolver(t.TempDir(), 8000)
	require.NoError(t, err)
	nv := NewNewsView(nil)
	r.Mount(MountNews, nv)

	v, rel, err := r.Resolve("/news/all.txt")
	require.NoError(t, err)
	assert.Same(t, nv, v)
	assert.Equal(t, "all.txt", rel)

	v, rel, err = r.Resolve("newsletter.md")
	require.NoError(t, err)
	assert.Equal(t, r.Real(), v)
	assert.Equal(t, "newsletter.md", rel)
}

func TestRealFile_ReadOnlyZones(t *testing.T) {
	r, err := NewPathResolver(t.TempDir(), 8000)
	require.NoError(t, err)

	for _, p := range []string{"backups/x.zip", "thoughts/a.md", "dreams/b.md", "echoes/c.md", "prompts/system.md"} {
		_, err := r.Real().Write(context.Background(), p, "x")
		assert.ErrorIs(t, err, ErrReadOnly, p)
		assert.NoFileExists(t, filepath.Join(r.Root(), filepath.FromSlash(p)))
	}
}
