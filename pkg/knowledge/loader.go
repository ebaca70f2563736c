package knowledge

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"
)

// DocumentMeta is the frontmatter of a knowledge document.
type DocumentMeta struct {
	Title string   `json:"title" mapstructure:"title"`
	Tags  []string `json:"tags" mapstructure:"tags"`
	Draft bool     `json:"draft" mapstructure:"draft"`
}

// LoadDirectory reads every document under dir through Loam. The directory
// does not need to be a git repository.
// Drafts and empty bodies are skipped. The source label is the title, or the
// file path when no title is set.
func LoadDirectory(ctx context.Context, dir string) ([]Document, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	repo, err := loam.Init(absPath, loam.WithReadOnly(true), loam.WithVersioning(false))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	typed := loam.NewTypedRepository[DocumentMeta](repo)
	entries, err := typed.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		if entry.Data.Draft || strings.TrimSpace(entry.Content) == "" {
			continue
		}
		source := strings.TrimSpace(entry.Data.Title)
		if source == "" {
			source = filepath.ToSlash(entry.ID)
		}
		docs = append(docs, Document{Source: source, Text: entry.Content})
	}
	return docs, nil
}
