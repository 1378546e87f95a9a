// Package template renders the XML documents pushed to the management server.
//
// Templates are plain text holding %KEY% placeholders. Rendering replaces every
// occurrence of a known key and leaves any other %TOKEN% untouched, so a
// template may carry placeholders that a given caller does not fill.
package template

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentstation/patchpilot/internal/embedded"
	"github.com/agentstation/patchpilot/pkg/errors"
)

// Values maps placeholder keys (without the surrounding %) to replacements.
type Values map[string]string

// Render substitutes every %KEY% in text with values[KEY]. Keys are applied
// in sorted order so output does not depend on map iteration.
func Render(text string, values Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		text = strings.ReplaceAll(text, "%"+k+"%", values[k])
	}
	return text
}

// Locator finds template files in an ordered list of directories. The first
// root holding the file wins; when none does, the embedded default is used.
type Locator struct {
	Roots []string

	// Fallback is consulted after Roots. Nil disables the fallback.
	Fallback fs.FS
}

// NewLocator returns a locator over roots with the embedded defaults as
// fallback.
func NewLocator(roots ...string) *Locator {
	sub, err := fs.Sub(embedded.FS, "templates")
	if err != nil {
		// embedded.FS always contains templates/
		panic(err)
	}
	return &Locator{Roots: roots, Fallback: sub}
}

// Roots builds the lookup order used by the CLI: each override directory
// first, then the PostProcessors directory of each recipe search directory.
// A leading ~ is expanded in override directories.
func Roots(overrideDirs, searchDirs []string, postProcessorsDir string) []string {
	roots := make([]string, 0, len(overrideDirs)+len(searchDirs))
	for _, dir := range overrideDirs {
		if dir = strings.TrimSpace(dir); dir != "" {
			roots = append(roots, expandHome(dir))
		}
	}
	for _, dir := range searchDirs {
		if dir = strings.TrimSpace(dir); dir != "" {
			roots = append(roots, filepath.Join(dir, postProcessorsDir))
		}
	}
	return roots
}

// Find returns the path of the first root containing name, or "" when only
// the fallback (or nothing) provides it.
func (l *Locator) Find(name string) string {
	for _, root := range l.Roots {
		path := filepath.Join(root, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Load reads the template text for name.
func (l *Locator) Load(name string) (string, error) {
	if path := l.Find(name); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", errors.WrapIO("read", path, err)
		}
		return string(data), nil
	}

	if l.Fallback != nil {
		data, err := fs.ReadFile(l.Fallback, name)
		if err == nil {
			return string(data), nil
		}
	}

	return "", errors.NewNotFoundError("template", name)
}

// RenderFile loads name and renders it with values.
func (l *Locator) RenderFile(name string, values Values) ([]byte, error) {
	text, err := l.Load(name)
	if err != nil {
		return nil, err
	}
	return []byte(Render(text, values)), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
