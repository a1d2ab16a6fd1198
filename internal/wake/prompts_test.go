package wake

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompts_System(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "prompts", "system.md")
	layer := filepath.Join(dir, "prompt-layer.md")
	p := NewPrompts(override, layer)

	assert.Equal(t, strings.TrimSpace(baseInstructions), p.System())

	require.NoError(t, os.WriteFile(layer, []byte("  Be brief.\n"), 0o644))
	assert.Equal(t, strings.TrimSpace(baseInstructions)+layerHeading+"Be brief.", p.System())

	require.NoError(t, os.MkdirAll(filepath.Dir(override), 0o755))
	require.NoError(t, os.WriteFile(override, []byte("You are a lighthouse."), 0o644))
	assert.Equal(t, "You are a lighthouse."+layerHeading+"Be brief.", p.System())

	require.NoError(t, os.Remove(override))
	require.NoError(t, os.Remove(layer))
	assert.Equal(t, strings.TrimSpace(baseInstructions), p.System())
}

func TestPromptWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "prompts", "system.md")
	p := NewPrompts(override, filepath.Join(dir, "prompt-layer.md"))

	w, err := NewPromptWatcher(p)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()
	assert.True(t, isWatched(p))

	require.NoError(t, os.WriteFile(override, []byte("You are a tide pool."), 0o644))
	require.Eventually(t, func() bool {
		return p.System() == "You are a tide pool."
	}, 5*time.Second, 50*time.Millisecond)

	w.Stop()
	assert.False(t, isWatched(p))
}

func TestPromptWatcher_UnwatchableDirsKeepRereading(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	p := NewPrompts(filepath.Join(blocker, "prompts", "system.md"), filepath.Join(blocker, "prompt-layer.md"))

	w, err := NewPromptWatcher(p)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	assert.False(t, isWatched(p))
	assert.Equal(t, strings.TrimSpace(baseInstructions), p.System())
}

func isWatched(p *Prompts) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.watched
}
