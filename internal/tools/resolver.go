package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/curtiv3/gpthome-refurbished/internal/logging"
)

// View is one branch of the sandbox namespace. rel is the cleaned,
// slash-separated path below the view's mount point ("" for the mount
// itself).
type View interface {
	Read(ctx context.Context, rel string) (string, error)
	Write(ctx context.Context, rel, content string) (string, error)
	List(ctx context.Context, rel string) (string, error)
}

// Virtual mount points, in root-listing order.
const (
	MountVisitors = "visitors"
	MountNews     = "news"
	MountGifts    = "gifts"
	MountPages    = "pages"
)

// readOnlyZones are top-level real directories the resident may read but
// never write.
var readOnlyZones = map[string]bool{
	MountVisitors: true,
	MountNews:     true,
	MountGifts:    true,
	"backups":     true,
	"thoughts":    true,
	"dreams":      true,
	"echoes":      true,
	"prompts":     true,
}

// encodedSequences are rejected outright: the sandbox never decodes.
var encodedSequences = []string{"%2e", "%2f", "%5c", "%00"}

// PathResolver maps model-supplied paths onto views.
type PathResolver struct {
	root   string
	real   *RealFile
	mounts map[string]View
	order  []string
}

// NewPathResolver creates a resolver rooted at root, which must exist.
func NewPathResolver(root string, maxReadChars int) (*PathResolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root: %w", err)
	}
	r := &PathResolver{
		root:   resolved,
		real:   &RealFile{root: resolved, maxReadChars: maxReadChars},
		mounts: make(map[string]View),
	}
	r.real.virtualDirs = r.unshadowedMounts
	return r, nil
}

// Root returns the absolute sandbox root.
func (r *PathResolver) Root() string {
	return r.root
}

// Mount attaches a view at a top-level name.
func (r *PathResolver) Mount(name string, v View) {
	if _, exists := r.mounts[name]; !exists {
		r.order = append(r.order, name)
	}
	r.mounts[name] = v
}

// Real returns the real-file view.
func (r *PathResolver) Real() *RealFile {
	return r.real
}

// Resolve validates raw and returns the view that owns it plus the path
// below the view's mount point.
func (r *PathResolver) Resolve(raw string) (View, string, error) {
	clean, err := CleanPath(raw)
	if err != nil {
		logging.ToolsWarn("Rejected path %q: %v", raw, err)
		return nil, "", err
	}
	first, rest, _ := strings.Cut(clean, "/")
	if v, ok := r.mounts[first]; ok {
		return v, rest, nil
	}
	if err := r.real.contained(clean); err != nil {
		logging.ToolsWarn("Rejected path %q: %v", raw, err)
		return nil, "", err
	}
	return r.real, clean, nil
}

func (r *PathResolver) unshadowedMounts() []string {
	var out []string
	for _, name := range r.order {
		if _, err := os.Lstat(filepath.Join(r.root, name)); errors.Is(err, os.ErrNotExist) {
			out = append(out, name)
		}
	}
	return out
}

// CleanPath normalizes a sandbox path to slash-separated segments with no
// leading slash. The empty string is the root. Absolute paths are re-rooted.
// It rejects null bytes, "~", ".." segments, percent-encoded separators and
// dots, and hidden (dot-prefixed) segments.
func CleanPath(raw string) (string, error) {
	if strings.ContainsRune(raw, 0) {
		return "", fmt.Errorf("%w: null byte", ErrPathRejected)
	}
	if strings.Contains(raw, "~") {
		return "", fmt.Errorf("%w: home expansion", ErrPathRejected)
	}
	lower := strings.ToLower(raw)
	for _, seq := range encodedSequences {
		if strings.Contains(lower, seq) {
			return "", fmt.Errorf("%w: encoded sequence", ErrPathRejected)
		}
	}

	normalized := strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
	var segs []string
	for _, seg := range strings.Split(normalized, "/") {
		switch {
		case seg == "" || seg == ".":
			continue
		case seg == "..":
			return "", fmt.Errorf("%w: parent traversal", ErrPathRejected)
		case strings.HasPrefix(seg, "."):
			return "", fmt.Errorf("%w: hidden path", ErrPathRejected)
		}
		segs = append(segs, seg)
	}
	return strings.Join(segs, "/"), nil
}

// IsReadOnly reports whether a cleaned path lies in a read-only zone.
func IsReadOnly(clean string) bool {
	first, _, _ := strings.Cut(clean, "/")
	return readOnlyZones[first]
}
