package rag

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/raganything/rag-anything-mcp/config"
	"github.com/raganything/rag-anything-mcp/errs"
)

// ProcessResult is returned by ProcessDocument.
type ProcessResult struct {
	FilePath      string `json:"file_path"`
	DocID         string `json:"doc_id"`
	Status        string `json:"status"`
	ContentLength int    `json:"content_length"`
	FileType      string `json:"file_type"`
}

// QueryResult is returned by QueryText.
type QueryResult struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
	Mode   string `json:"mode"`
}

// MultimodalResult is returned by QueryMultimodal.
type MultimodalResult struct {
	QueryResult
	MultimodalContentCount int `json:"multimodal_content_count"`
}

// InsertResult is returned by InsertContentList.
type InsertResult struct {
	Status       string `json:"status"`
	ContentCount int    `json:"content_count"`
	DocID        string `json:"doc_id"`
}

// StorageInfo describes the RAG storage directory state. PointsCount
// is the vector collection size and stays zero until the engine has
// been initialized.
type StorageInfo struct {
	StorageDir  string `json:"storage_dir"`
	UploadDir   string `json:"upload_dir"`
	Initialized bool   `json:"initialized"`
	FileCount   int    `json:"file_count"`
	PointsCount int64  `json:"points_count"`
}

// ContentItem is one element of a multimodal query or a pre-parsed
// content list. Fields not relevant to an item type stay empty.
type ContentItem struct {
	Type            string   `json:"type,omitempty"`
	Text            string   `json:"text,omitempty"`
	ImgPath         string   `json:"img_path,omitempty"`
	ImageCaption    []string `json:"image_caption,omitempty"`
	TableData       string   `json:"table_data,omitempty"`
	TableCaption    string   `json:"table_caption,omitempty"`
	Latex           string   `json:"latex,omitempty"`
	EquationCaption string   `json:"equation_caption,omitempty"`
	PageIdx         int      `json:"page_idx,omitempty"`
}

// Manager owns one lazily-initialized Engine instance and converts
// uploaded files to plain text before delegating to it.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger

	mu          sync.Mutex
	engine      Engine
	initialized bool

	// test seam; defaults to NewLightEngine
	newEngine func(cfg *config.Config, logger *zap.Logger) (Engine, error)
}

func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:       cfg,
		logger:    logger,
		newEngine: NewLightEngine,
	}
}

// Initialize constructs the engine. It is idempotent and safe under
// concurrent callers; a failed attempt leaves the manager uninitialized
// so the next call retries from scratch.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	m.logger.Info("Initializing RAG engine")

	engine, err := m.newEngine(m.cfg, m.logger)
	if err != nil {
		m.logger.Error("Failed to initialize RAG engine", zap.Error(err))
		return errs.Engine("failed to initialize RAG engine", err)
	}

	m.engine = engine
	m.initialized = true
	m.logger.Info("RAG engine initialized")

	return nil
}

func (m *Manager) ensureInitialized(ctx context.Context) (Engine, error) {
	if err := m.Initialize(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine, nil
}

// ProcessDocument extracts plain text from the file (PDF via the
// decoder, anything else read as UTF-8 with invalid bytes dropped) and
// inserts it into the engine. docID defaults to the file name stem.
func (m *Manager) ProcessDocument(ctx context.Context, filePath, parser, parseMethod, docID string) (*ProcessResult, error) {
	engine, err := m.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Processing document",
		zap.String("file", filePath),
		zap.String("parser", parser),
		zap.String("parse_method", parseMethod),
	)

	ext := strings.ToLower(filepath.Ext(filePath))

	var content string
	if ext == ".pdf" {
		content, err = extractPDFText(filePath)
		if err != nil {
			m.logger.Error("Failed to extract PDF content", zap.String("file", filePath), zap.Error(err))
			return nil, err
		}
	} else {
		data, err := os.ReadFile(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errs.NotFound("file not found: %s", filePath)
			}
			return nil, errs.Engine("failed to read file", err)
		}
		content = strings.ToValidUTF8(string(data), "")
	}

	if strings.TrimSpace(content) == "" {
		return nil, errs.Validation("file contains no content or only whitespace: %s", filePath)
	}

	if docID == "" {
		docID = fileStem(filePath)
	}

	if err := engine.Insert(ctx, content, docID, filePath); err != nil {
		m.logger.Error("Failed to insert document", zap.String("doc_id", docID), zap.Error(err))
		return nil, errs.Engine("failed to insert document", err)
	}

	result := &ProcessResult{
		FilePath:      filePath,
		DocID:         docID,
		Status:        "processed",
		ContentLength: len(content),
		FileType:      ext,
	}

	m.logger.Info("Document processed",
		zap.String("doc_id", docID),
		zap.Int("content_length", result.ContentLength),
		zap.String("file_type", ext),
	)

	return result, nil
}

// QueryText runs a text query through the engine.
func (m *Manager) QueryText(ctx context.Context, query string, mode Mode, topK int) (*QueryResult, error) {
	engine, err := m.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Text query", zap.String("mode", string(mode)), zap.Int("top_k", topK))

	answer, err := engine.Query(ctx, query, mode, topK)
	if err != nil {
		m.logger.Error("Query failed", zap.Error(err))
		return nil, errs.Engine("query failed", err)
	}

	return &QueryResult{
		Query:  query,
		Answer: answer,
		Mode:   string(mode),
	}, nil
}

// QueryMultimodal flattens the structured items into a textual context
// block appended to the query, then runs an ordinary text query.
func (m *Manager) QueryMultimodal(ctx context.Context, query string, items []ContentItem, mode Mode) (*MultimodalResult, error) {
	engine, err := m.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Multimodal query",
		zap.String("mode", string(mode)),
		zap.Int("content_items", len(items)),
	)

	contextLines := make([]string, 0, len(items))
	for _, item := range items {
		itemType := item.Type
		if itemType == "" {
			itemType = "text"
		}
		body := item.Text
		if body == "" {
			body = item.TableData
		}
		contextLines = append(contextLines, fmt.Sprintf("%s: %s", itemType, body))
	}

	fullQuery := fmt.Sprintf("%s\n\nAdditional Context:\n%s", query, strings.Join(contextLines, "\n"))

	answer, err := engine.Query(ctx, fullQuery, mode, 0)
	if err != nil {
		m.logger.Error("Multimodal query failed", zap.Error(err))
		return nil, errs.Engine("multimodal query failed", err)
	}

	return &MultimodalResult{
		QueryResult: QueryResult{
			Query:  query,
			Answer: answer,
			Mode:   string(mode),
		},
		MultimodalContentCount: len(items),
	}, nil
}

// InsertContentList concatenates the text fields of pre-parsed items
// and inserts them as one document.
func (m *Manager) InsertContentList(ctx context.Context, items []ContentItem, filePath, docID string) (*InsertResult, error) {
	engine, err := m.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Inserting content list", zap.Int("items", len(items)))

	texts := make([]string, 0, len(items))
	for _, item := range items {
		if item.Text != "" {
			texts = append(texts, item.Text)
		}
	}
	combined := strings.Join(texts, "\n\n")

	if strings.TrimSpace(combined) == "" {
		return nil, errs.Validation("content list contains no text items")
	}

	if docID == "" {
		docID = fileStem(filePath)
	}

	if err := engine.Insert(ctx, combined, docID, filePath); err != nil {
		m.logger.Error("Content insertion failed", zap.String("doc_id", docID), zap.Error(err))
		return nil, errs.Engine("content insertion failed", err)
	}

	return &InsertResult{
		Status:       "inserted",
		ContentCount: len(items),
		DocID:        docID,
	}, nil
}

// StorageInfo counts files recursively under the storage directory and
// reports the vector collection size when the engine is up.
func (m *Manager) StorageInfo(ctx context.Context) (*StorageInfo, error) {
	m.mu.Lock()
	initialized := m.initialized
	engine := m.engine
	m.mu.Unlock()

	fileCount := 0
	err := filepath.WalkDir(m.cfg.RAGStorageDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			fileCount++
		}
		return nil
	})
	if err != nil {
		return nil, errs.Engine("failed to scan storage directory", err)
	}

	info := &StorageInfo{
		StorageDir:  m.cfg.RAGStorageDir,
		UploadDir:   m.cfg.UploadDir,
		Initialized: initialized,
		FileCount:   fileCount,
	}

	if initialized && engine != nil {
		stats, err := engine.IndexStats(ctx)
		if err != nil {
			m.logger.Warn("Failed to read collection stats", zap.Error(err))
		} else {
			info.PointsCount = stats.PointsCount
		}
	}

	return info, nil
}

// Shutdown finalizes the engine best-effort. Failures are logged, never
// propagated, and internal state is always cleared.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Shutting down RAG manager")

	if m.engine != nil && m.initialized {
		if err := m.engine.Finalize(ctx); err != nil {
			m.logger.Error("Error finalizing engine storage", zap.Error(err))
		}
	}

	m.engine = nil
	m.initialized = false
}

func fileStem(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
