package wake

import (
	_ "embed"
	"os"
	"strings"
	"sync"

	"github.com/curtiv3/gpthome-refurbished/internal/logging"
)

//go:embed prompts/system.md
var baseInstructions string

const layerHeading = "\n\n## Your own additions (written by you)\n"

// Prompts assembles the system instructions: the embedded base text or the
// override file, followed by the prompt layer the resident writes itself.
type Prompts struct {
	overridePath string
	layerPath    string

	mu       sync.RWMutex
	override string
	layer    string
	watched  bool
}

// NewPrompts loads the override and layer files once.
func NewPrompts(overridePath, layerPath string) *Prompts {
	p := &Prompts{overridePath: overridePath, layerPath: layerPath}
	p.Reload()
	return p
}

// Reload rereads both files. Missing files clear the cached text.
func (p *Prompts) Reload() {
	override := readTrimmed(p.overridePath)
	layer := readTrimmed(p.layerPath)

	p.mu.Lock()
	changed := override != p.override || layer != p.layer
	p.override, p.layer = override, layer
	p.mu.Unlock()

	if changed {
		logging.WakeDebug("prompts reloaded: override=%d chars layer=%d chars", len(override), len(layer))
	}
}

// System returns the assembled instructions. Without a watcher the files
// are reread on every call.
func (p *Prompts) System() string {
	p.mu.RLock()
	watched := p.watched
	p.mu.RUnlock()
	if !watched {
		p.Reload()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	base := strings.TrimSpace(baseInstructions)
	if p.override != "" {
		base = p.override
	}
	if p.layer != "" {
		base += layerHeading + p.layer
	}
	return base
}

func (p *Prompts) setWatched(v bool) {
	p.mu.Lock()
	p.watched = v
	p.mu.Unlock()
}

func readTrimmed(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.WakeWarn("could not read %s: %v", path, err)
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}
