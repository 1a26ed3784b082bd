package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raganything/rag-anything-mcp/config"
)

// Mode selects the retrieval strategy for a query.
type Mode string

const (
	ModeHybrid Mode = "hybrid"
	ModeLocal  Mode = "local"
	ModeGlobal Mode = "global"
	ModeNaive  Mode = "naive"
)

// ParseMode validates a mode string. Empty defaults to hybrid.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeHybrid, nil
	case ModeHybrid, ModeLocal, ModeGlobal, ModeNaive:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid query mode: %q", s)
	}
}

// Engine is the retrieval-augmented-generation engine behind the
// manager: it ingests document text and answers queries against it.
type Engine interface {
	Insert(ctx context.Context, content, docID, filePath string) error
	Query(ctx context.Context, query string, mode Mode, topK int) (string, error)
	IndexStats(ctx context.Context) (*CollectionInfo, error)
	Finalize(ctx context.Context) error
}

const noContextAnswer = "No relevant context was found in the knowledge base for this query."

// LightEngine implements Engine on top of an embedder, a vector store
// and an LLM completer. Inserted documents are chunked, embedded and
// upserted; queries retrieve the closest chunks and synthesize an
// answer from them. A per-document journal is written under workDir,
// which the engine owns.
type LightEngine struct {
	embedder     Embedder
	store        VectorStore
	llm          Completer
	collection   string
	workDir      string
	chunkSize    int
	chunkOverlap int
	defaultTopK  int
	logger       *zap.Logger
}

func NewLightEngine(cfg *config.Config, logger *zap.Logger) (Engine, error) {
	embedder, err := NewOpenAIEmbedder(cfg.EmbeddingModel, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	llm, err := NewOpenAICompleter(cfg.LLMModel, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create completer: %w", err)
	}

	host, portStr, err := net.SplitHostPort(cfg.QdrantURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Qdrant URL: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Qdrant port: %w", err)
	}

	store, err := NewQdrantStore(host, port, cfg.QdrantAPIKey)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureCollection(ctx, cfg.CollectionName, embedder.Dimension()); err != nil {
		store.Close()
		return nil, err
	}

	return &LightEngine{
		embedder:     embedder,
		store:        store,
		llm:          llm,
		collection:   cfg.CollectionName,
		workDir:      cfg.RAGStorageDir,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		defaultTopK:  cfg.TopK,
		logger:       logger,
	}, nil
}

func (e *LightEngine) Insert(ctx context.Context, content, docID, filePath string) error {
	chunks := ChunkText(content, e.chunkSize, e.chunkOverlap)
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks produced from content")
	}

	e.logger.Info("Inserting document",
		zap.String("doc_id", docID),
		zap.Int("chunks", len(chunks)),
	)

	// Drop stale chunks so re-processing a doc_id replaces instead of accumulating
	if err := e.store.DeleteByDoc(ctx, e.collection, docID); err != nil {
		e.logger.Warn("Failed to delete stale chunks", zap.String("doc_id", docID), zap.Error(err))
	}

	embeddings, err := e.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}

	points := make([]Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = Point{
			ID:     uuid.New().String(),
			Vector: embeddings[i],
			Payload: map[string]interface{}{
				"doc_id":      docID,
				"file_path":   filePath,
				"chunk_index": i,
				"text":        chunk,
			},
		}
	}

	if err := e.store.Upsert(ctx, e.collection, points); err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}

	if err := e.journalDocument(docID, filePath, len(content), len(chunks)); err != nil {
		e.logger.Warn("Failed to write document journal", zap.String("doc_id", docID), zap.Error(err))
	}

	return nil
}

func (e *LightEngine) Query(ctx context.Context, query string, mode Mode, topK int) (string, error) {
	if topK <= 0 {
		topK = e.defaultTopK
	}

	e.logger.Info("Engine query",
		zap.String("mode", string(mode)),
		zap.Int("top_k", topK),
	)

	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := e.store.Search(ctx, e.collection, embedding, topK)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		return noContextAnswer, nil
	}

	var contextBlock strings.Builder
	for i, result := range results {
		fmt.Fprintf(&contextBlock, "[%d] (source: %s)\n%s\n\n", i+1, filepath.Base(result.FilePath), result.Text)
	}

	prompt := fmt.Sprintf("Context passages:\n\n%s\nQuestion: %s", contextBlock.String(), query)

	answer, err := e.llm.Complete(ctx, modeInstruction(mode), prompt)
	if err != nil {
		return "", fmt.Errorf("answer synthesis failed: %w", err)
	}

	return answer, nil
}

func modeInstruction(mode Mode) string {
	base := "You answer questions using only the provided context passages. If the context does not contain the answer, say so."
	switch mode {
	case ModeLocal:
		return base + " Focus on the specific entities and details mentioned in the question."
	case ModeGlobal:
		return base + " Synthesize themes across all passages rather than quoting a single one."
	case ModeNaive:
		return base
	default: // hybrid
		return base + " Combine specific details with broader themes from the passages."
	}
}

// documentRecord is the on-disk journal entry for one inserted document.
type documentRecord struct {
	DocID         string    `json:"doc_id"`
	FilePath      string    `json:"file_path"`
	ContentLength int       `json:"content_length"`
	ChunkCount    int       `json:"chunk_count"`
	InsertedAt    time.Time `json:"inserted_at"`
}

func (e *LightEngine) journalDocument(docID, filePath string, contentLength, chunkCount int) error {
	record := documentRecord{
		DocID:         docID,
		FilePath:      filePath,
		ContentLength: contentLength,
		ChunkCount:    chunkCount,
		InsertedAt:    time.Now(),
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(e.workDir, fmt.Sprintf("kv_store_doc_%s.json", docID))
	return os.WriteFile(path, data, 0o644)
}

// IndexStats reports the point count and vector size of the backing
// collection.
func (e *LightEngine) IndexStats(ctx context.Context) (*CollectionInfo, error) {
	return e.store.GetCollectionInfo(ctx, e.collection)
}

func (e *LightEngine) Finalize(ctx context.Context) error {
	return e.store.Close()
}
