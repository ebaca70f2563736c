package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/switchboard/pkg/knowledge"
)

// ErrNoDocuments is returned when ingestion finds nothing to index.
var ErrNoDocuments = errors.New("no documents found")

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	Documents int
	Chunks    int
}

// Ingest indexes the markdown documents under dir and writes the index to indexPath.
func Ingest(ctx context.Context, dir, indexPath string, embedder knowledge.Embedder, logger *slog.Logger, opts ...knowledge.StoreOption) (IngestResult, error) {
	docs, err := knowledge.LoadDirectory(ctx, dir)
	if err != nil {
		return IngestResult{}, err
	}
	if len(docs) == 0 {
		return IngestResult{}, fmt.Errorf("%w in %s", ErrNoDocuments, dir)
	}

	store := knowledge.NewStore(embedder, opts...)
	chunks, err := store.Add(ctx, docs...)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to index documents: %w", err)
	}
	if err := store.SaveFile(indexPath); err != nil {
		return IngestResult{}, err
	}

	logger.Info("knowledge index written", "path", indexPath, "documents", len(docs), "chunks", chunks)
	return IngestResult{Documents: len(docs), Chunks: chunks}, nil
}
