package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// SeededDocument is one editor to preload at startup.
type SeededDocument struct {
	EditorID string
	Content  string
}

// SeedDocuments resolves the configured document seeds against the
// filesystem. Pattern seeds expand with doublestar globbing and key
// each match by its slash-separated path; path seeds use the explicit
// ID when given, the path otherwise. Later seeds win on id collisions.
func (c *Config) SeedDocuments() ([]SeededDocument, error) {
	byID := make(map[string]int)
	var out []SeededDocument

	add := func(editorID, content string) {
		if i, ok := byID[editorID]; ok {
			out[i].Content = content
			return
		}
		byID[editorID] = len(out)
		out = append(out, SeededDocument{EditorID: editorID, Content: content})
	}

	for i, seed := range c.Documents {
		if seed.Path != "" {
			data, err := os.ReadFile(seed.Path)
			if err != nil {
				return nil, fmt.Errorf("documents[%d]: %w", i, err)
			}
			editorID := seed.ID
			if editorID == "" {
				editorID = filepath.ToSlash(seed.Path)
			}
			add(editorID, string(data))
			continue
		}

		matches, err := doublestar.FilepathGlob(seed.Pattern)
		if err != nil {
			return nil, fmt.Errorf("documents[%d]: bad pattern %q: %w", i, seed.Pattern, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			data, err := os.ReadFile(match)
			if err != nil {
				return nil, fmt.Errorf("documents[%d]: %w", i, err)
			}
			add(filepath.ToSlash(match), string(data))
		}
	}
	return out, nil
}
