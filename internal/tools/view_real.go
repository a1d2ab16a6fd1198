package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/curtiv3/gpthome-refurbished/internal/logging"
)

// RealFile is the view over the real data directory.
type RealFile struct {
	root         string
	maxReadChars int
	virtualDirs  func() []string
}

// abs maps a cleaned path onto the filesystem.
func (f *RealFile) abs(clean string) string {
	return filepath.Join(f.root, filepath.FromSlash(clean))
}

// contained resolves symlinks on the nearest existing ancestor of clean and
// requires the result to stay inside the root.
func (f *RealFile) contained(clean string) error {
	p := f.abs(clean)
	for {
		if _, err := os.Lstat(p); err == nil {
			break
		}
		parent := filepath.Dir(p)
		if parent == p {
			return fmt.Errorf("%w: no existing ancestor", ErrPathRejected)
		}
		p = parent
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPathRejected, err)
	}
	if resolved != f.root && !strings.HasPrefix(resolved, f.root+string(filepath.Separator)) {
		return fmt.Errorf("%w: escapes the sandbox", ErrPathRejected)
	}
	return nil
}

// Read returns file text, refusing binaries and truncating long files.
func (f *RealFile) Read(_ context.Context, rel string) (string, error) {
	if rel == "" {
		return "", errors.New("'.' is a directory. Use list_directory instead")
	}
	p := f.abs(rel)
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("'%s' does not exist", rel)
	}
	if err != nil {
		return "", fmt.Errorf("reading '%s': %w", rel, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("'%s' is a directory. Use list_directory instead", rel)
	}
	if info.Size() == 0 {
		return "(empty file)", nil
	}

	mt, err := mimetype.DetectFile(p)
	if err != nil {
		return "", fmt.Errorf("reading '%s': %w", rel, err)
	}
	if !isText(mt) {
		return "", fmt.Errorf("'%s' is a binary file (%s)", rel, mt.String())
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("reading '%s': %w", rel, err)
	}
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return truncateRead(text, f.maxReadChars), nil
}

// Write creates or overwrites a file outside the read-only zones.
func (f *RealFile) Write(_ context.Context, rel, content string) (string, error) {
	if rel == "" {
		return "", errors.New("a file name is required")
	}
	if IsReadOnly(rel) {
		return "", fmt.Errorf("'%s' is in a %w", rel, ErrReadOnly)
	}
	p := f.abs(rel)
	if info, err := os.Stat(p); err == nil && info.IsDir() {
		return "", fmt.Errorf("'%s' is a directory", rel)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("writing '%s': %w", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing '%s': %w", rel, err)
	}
	logging.ToolsDebug("Wrote %s (%d bytes)", rel, len(content))
	return fmt.Sprintf("Written: %s (%d chars)", rel, utf8.RuneCountInString(content)), nil
}

// List renders a directory. The root listing also names the virtual mounts
// that no real directory shadows.
func (f *RealFile) List(_ context.Context, rel string) (string, error) {
	p := f.abs(rel)
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("'%s' does not exist", rel)
	}
	if err != nil {
		return "", fmt.Errorf("listing '%s': %w", rel, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("'%s' is a file. Use read_file to read it", rel)
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return "", fmt.Errorf("listing '%s': %w", rel, err)
	}

	var lines []string
	if rel == "" {
		lines = append(lines, "Your home:")
	} else {
		lines = append(lines, rel+"/")
	}
	shown := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		shown++
		if e.IsDir() {
			lines = append(lines, "  "+e.Name()+"/")
			continue
		}
		size := int64(0)
		if fi, err := e.Info(); err == nil {
			size = fi.Size()
		}
		lines = append(lines, fmt.Sprintf("  %s  (%dB)", e.Name(), size))
	}
	if rel == "" && f.virtualDirs != nil {
		for _, name := range f.virtualDirs() {
			shown++
			mode := "read-only"
			if !readOnlyZones[name] {
				mode = "writable"
			}
			lines = append(lines, fmt.Sprintf("  %s/  (virtual, %s)", name, mode))
		}
	}
	if shown == 0 {
		if rel == "" {
			return "Your home is empty.", nil
		}
		return rel + "/ is empty.", nil
	}
	return strings.Join(lines, "\n"), nil
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func truncateRead(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + fmt.Sprintf("\n\n[... truncated — %d total chars]", len(runes))
}
