package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/talentsift/talentsift/internal/domain"
	"github.com/talentsift/talentsift/internal/telemetry"
)

// IndexWriter defines the vector index operations ingestion depends on.
type IndexWriter interface {
	Upsert(ctx context.Context, collection string, entries []domain.IndexEntry) error
	DeleteBySource(ctx context.Context, collection, sourceID string) error
}

// TextExtractor produces plain text from a document file.
type TextExtractor interface {
	ExtractText(path string) (string, error)
	Supported(path string) bool
}

// IngestedDoc summarizes one successfully ingested document.
type IngestedDoc struct {
	SourceID string
	DocType  domain.DocType
	Chunks   int
}

// IngestReport is the outcome of one ingestion batch. A document failure
// never aborts the batch; all failures are collected here.
type IngestReport struct {
	Collection string
	Succeeded  []IngestedDoc
	Failed     []*domain.IngestError
}

// OK reports whether every document ingested cleanly.
func (r *IngestReport) OK() bool {
	return len(r.Failed) == 0
}

// IngestionService reads reference documents, derives their type, chunks and
// embeds them, and replaces their entries in the vector index.
type IngestionService struct {
	extractor  TextExtractor
	embedding  EmbeddingClient
	index      IndexWriter
	registry   *domain.DocTypeRegistry
	collection string
	chunkCfg   ChunkConfig
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(
	extractor TextExtractor,
	embedding EmbeddingClient,
	index IndexWriter,
	registry *domain.DocTypeRegistry,
	collection string,
	chunkCfg ChunkConfig,
) *IngestionService {
	if registry == nil {
		registry = domain.DefaultDocTypeRegistry()
	}
	return &IngestionService{
		extractor:  extractor,
		embedding:  embedding,
		index:      index,
		registry:   registry,
		collection: collection,
		chunkCfg:   chunkCfg,
	}
}

// IngestDirectory ingests every supported document in dir. Documents are
// processed independently; per-document failures are collected in the report
// and do not stop the batch.
func (s *IngestionService) IngestDirectory(ctx context.Context, dir string) (*IngestReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory %s: %w", dir, err)
	}

	report := &IngestReport{Collection: s.collection}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !s.extractor.Supported(name) {
			log.Printf("ingest: skipping unsupported file %s", name)
			continue
		}

		doc, chunks, err := s.ingestFile(ctx, filepath.Join(dir, name), name)
		if err != nil {
			var ingErr *domain.IngestError
			if ie, ok := err.(*domain.IngestError); ok {
				ingErr = ie
			} else {
				ingErr = &domain.IngestError{SourceID: name, Stage: "ingest", Err: err}
			}
			log.Printf("ingest: %v", ingErr)
			report.Failed = append(report.Failed, ingErr)
			continue
		}

		report.Succeeded = append(report.Succeeded, IngestedDoc{
			SourceID: doc.SourceID,
			DocType:  doc.DocType,
			Chunks:   chunks,
		})
		log.Printf("ingest: stored %s (%s) as %d chunks", doc.SourceID, doc.DocType, chunks)
	}

	return report, nil
}

func (s *IngestionService) ingestFile(ctx context.Context, path, name string) (*domain.Document, int, error) {
	docType, ok := s.registry.Resolve(name)
	if !ok {
		return nil, 0, &domain.IngestError{
			SourceID: name,
			Stage:    "resolve_type",
			Err:      fmt.Errorf("no document type registered for %q", name),
		}
	}

	text, err := s.extractor.ExtractText(path)
	if err != nil {
		return nil, 0, &domain.IngestError{SourceID: name, Stage: "extract", Err: err}
	}

	doc := domain.NewDocument(name, docType, text)
	chunks, err := s.IngestDocument(ctx, doc)
	if err != nil {
		return nil, 0, err
	}
	return doc, chunks, nil
}

// IngestDocument chunks, embeds, and stores one document, replacing any
// entries previously stored for the same source.
func (s *IngestionService) IngestDocument(ctx context.Context, doc *domain.Document) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.IngestDocument", telemetry.SpanAttributes{
		SourceID:  doc.SourceID,
		Operation: "ingest",
	})
	defer span.End()

	if err := domain.ValidateDocument(doc); err != nil {
		return 0, &domain.IngestError{SourceID: doc.SourceID, Stage: "chunk", Err: err}
	}

	chunks := SplitDocument(doc, s.chunkCfg)
	if len(chunks) == 0 {
		return 0, &domain.IngestError{
			SourceID: doc.SourceID,
			Stage:    "chunk",
			Err:      fmt.Errorf("document produced no chunks"),
		}
	}

	entries := make([]domain.IndexEntry, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := s.embedding.GenerateEmbedding(ctx, chunk.Text)
		if err != nil {
			return 0, &domain.IngestError{SourceID: doc.SourceID, Stage: "embed", Err: err}
		}
		entries = append(entries, domain.IndexEntry{
			SourceID:  chunk.SourceID,
			ChunkID:   chunk.ChunkID,
			DocType:   chunk.DocType,
			Text:      chunk.Text,
			Embedding: embedding,
		})
	}

	// Stale chunks from a longer previous version must not linger, so the
	// old entries go before the new ones land.
	if err := s.index.DeleteBySource(ctx, s.collection, doc.SourceID); err != nil {
		return 0, &domain.IngestError{SourceID: doc.SourceID, Stage: "upsert", Err: err}
	}
	if err := s.index.Upsert(ctx, s.collection, entries); err != nil {
		return 0, &domain.IngestError{SourceID: doc.SourceID, Stage: "upsert", Err: err}
	}

	return len(entries), nil
}
