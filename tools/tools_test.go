package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/raganything/rag-anything-mcp/config"
	"github.com/raganything/rag-anything-mcp/rag"
)

// fakeRAG implements the RAG interface. ProcessDocument reads the file
// so content_length matches the real pipeline, and it tracks in-flight
// concurrency for the batch tests.
type fakeRAG struct {
	mu           sync.Mutex
	inFlight     int
	maxInFlight  int
	processCalls int
	processDelay time.Duration
	failPaths    map[string]bool

	lastQuery string
	lastMode  rag.Mode
	lastTopK  int
	lastItems []rag.ContentItem
}

func (f *fakeRAG) ProcessDocument(ctx context.Context, filePath, parser, parseMethod, docID string) (*rag.ProcessResult, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.processCalls++
	// The upload path is doc_id-prefixed, so match on suffix
	fail := false
	for suffix := range f.failPaths {
		if strings.HasSuffix(filePath, suffix) {
			fail = true
		}
	}
	f.mu.Unlock()

	if f.processDelay > 0 {
		time.Sleep(f.processDelay)
	}

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if fail {
		return nil, fmt.Errorf("engine rejected %s", filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return &rag.ProcessResult{
		FilePath:      filePath,
		DocID:         docID,
		Status:        "processed",
		ContentLength: len(data),
		FileType:      strings.ToLower(filepath.Ext(filePath)),
	}, nil
}

func (f *fakeRAG) QueryText(ctx context.Context, query string, mode rag.Mode, topK int) (*rag.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery, f.lastMode, f.lastTopK = query, mode, topK
	return &rag.QueryResult{Query: query, Answer: "an answer", Mode: string(mode)}, nil
}

func (f *fakeRAG) QueryMultimodal(ctx context.Context, query string, items []rag.ContentItem, mode rag.Mode) (*rag.MultimodalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery, f.lastMode, f.lastItems = query, mode, items
	return &rag.MultimodalResult{
		QueryResult:            rag.QueryResult{Query: query, Answer: "mm answer", Mode: string(mode)},
		MultimodalContentCount: len(items),
	}, nil
}

func (f *fakeRAG) InsertContentList(ctx context.Context, items []rag.ContentItem, filePath, docID string) (*rag.InsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastItems = items
	if docID == "" {
		docID = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	return &rag.InsertResult{Status: "inserted", ContentCount: len(items), DocID: docID}, nil
}

func (f *fakeRAG) StorageInfo(ctx context.Context) (*rag.StorageInfo, error) {
	return &rag.StorageInfo{StorageDir: "/tmp/storage", UploadDir: "/tmp/uploads", Initialized: true, FileCount: 2, PointsCount: 42}, nil
}

func newTestTools(t *testing.T) (*Tools, *fakeRAG, *config.Config) {
	t.Helper()

	cfg := &config.Config{
		UploadDir:          t.TempDir(),
		RAGStorageDir:      t.TempDir(),
		MaxFileSizeMB:      1,
		MaxConcurrentFiles: 3,
	}

	manager := &fakeRAG{failPaths: map[string]bool{}}
	return New(cfg, manager, zap.NewNop()), manager, cfg
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateCatalogMatchesDispatch(t *testing.T) {
	tl, _, _ := newTestTools(t)
	require.NoError(t, tl.Validate())
	assert.Len(t, tl.Definitions(), 10)
}

func TestUnknownTool(t *testing.T) {
	tl, _, _ := newTestTools(t)

	result := tl.HandleToolCall(context.Background(), "definitely_not_a_tool", nil)
	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "unknown tool")
	assert.Equal(t, "protocol", result["kind"])
}

func TestUploadMissingFile(t *testing.T) {
	tl, _, _ := newTestTools(t)

	result := tl.HandleToolCall(context.Background(), "upload_document", map[string]interface{}{
		"file_path": filepath.Join(t.TempDir(), "nope.txt"),
	})

	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "file not found")
	assert.Equal(t, "not_found", result["kind"])
	assert.Equal(t, 0, tl.store.Len())
}

func TestUploadTooLarge(t *testing.T) {
	tl, _, _ := newTestTools(t)

	// Config ceiling is 1MB
	path := writeTempFile(t, "big.bin", strings.Repeat("x", 1100*1024))

	result := tl.HandleToolCall(context.Background(), "upload_document", map[string]interface{}{
		"file_path": path,
	})

	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "file too large")
	assert.Equal(t, "validation", result["kind"])
	assert.Equal(t, 0, tl.store.Len())
}

func TestUploadSuccessAndList(t *testing.T) {
	tl, _, cfg := newTestTools(t)

	path := writeTempFile(t, "doc.txt", "hello world")

	result := tl.HandleToolCall(context.Background(), "upload_document", map[string]interface{}{
		"file_path": path,
		"doc_id":    "my-doc",
	})

	require.Equal(t, true, result["success"])
	assert.Equal(t, "my-doc", result["doc_id"])
	assert.Equal(t, "doc.txt", result["file_name"])
	assert.Equal(t, StatusUploaded, result["status"])

	// The copied file exists under the doc_id-prefixed name
	uploadPath := filepath.Join(cfg.UploadDir, "my-doc_doc.txt")
	copied, err := os.ReadFile(uploadPath)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(copied))

	listResult := tl.HandleToolCall(context.Background(), "list_documents", nil)
	require.Equal(t, true, listResult["success"])
	assert.Equal(t, 1, listResult["count"])

	documents := listResult["documents"].([]UploadRecord)
	require.Len(t, documents, 1)
	assert.Equal(t, "my-doc", documents[0].DocID)
	assert.Equal(t, StatusUploaded, documents[0].Status)
}

func TestUploadGeneratesDocID(t *testing.T) {
	tl, _, _ := newTestTools(t)

	path := writeTempFile(t, "auto.txt", "content")
	result := tl.HandleToolCall(context.Background(), "upload_document", map[string]interface{}{
		"file_path": path,
	})

	require.Equal(t, true, result["success"])
	docID := result["doc_id"].(string)
	assert.NotEmpty(t, docID)

	_, ok := tl.store.Get(docID)
	assert.True(t, ok)
}

func TestProcessUnknownDoc(t *testing.T) {
	tl, manager, _ := newTestTools(t)

	result := tl.HandleToolCall(context.Background(), "process_document", map[string]interface{}{
		"doc_id": "ghost",
	})

	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "document not found")
	assert.Equal(t, "not_found", result["kind"])
	assert.Equal(t, 0, manager.processCalls)
}

func TestUploadProcessRoundTrip(t *testing.T) {
	tl, _, _ := newTestTools(t)
	ctx := context.Background()

	text := "some document body for the round trip"
	path := writeTempFile(t, "x.txt", text)

	uploadResult := tl.HandleToolCall(ctx, "upload_document", map[string]interface{}{
		"file_path": path,
	})
	require.Equal(t, true, uploadResult["success"])
	docID := uploadResult["doc_id"].(string)

	processResult := tl.HandleToolCall(ctx, "process_document", map[string]interface{}{
		"doc_id": docID,
	})
	require.Equal(t, true, processResult["success"])
	assert.Equal(t, StatusProcessed, processResult["status"])

	details := processResult["details"].(*rag.ProcessResult)
	assert.Equal(t, len(text), details.ContentLength)

	record, ok := tl.store.Get(docID)
	require.True(t, ok)
	assert.Equal(t, StatusProcessed, record.Status)
	require.NotNil(t, record.ProcessingResult)
	assert.Equal(t, len(text), record.ProcessingResult.ContentLength)
}

func TestBatchProcessBoundedConcurrencyAndIsolation(t *testing.T) {
	tl, manager, _ := newTestTools(t)
	manager.processDelay = 20 * time.Millisecond
	manager.failPaths["bad.txt"] = true

	dir := t.TempDir()
	var filePaths []interface{}
	for i := 0; i < 4; i++ {
		path := filepath.Join(dir, fmt.Sprintf("file%d.txt", i))
		require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
		filePaths = append(filePaths, path)
	}

	badPath := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(badPath, []byte("content"), 0o644))
	filePaths = append(filePaths, badPath)

	// One path that does not exist at all
	filePaths = append(filePaths, filepath.Join(dir, "missing.txt"))

	result := tl.HandleToolCall(context.Background(), "batch_process_documents", map[string]interface{}{
		"file_paths":     filePaths,
		"max_concurrent": float64(2),
	})

	require.Equal(t, true, result["success"])
	assert.Equal(t, 6, result["total"])
	assert.Equal(t, 4, result["successful"])
	assert.Equal(t, 2, result["failed"])
	assert.Equal(t, result["total"], result["successful"].(int)+result["failed"].(int))

	results := result["results"].([]map[string]interface{})
	require.Len(t, results, 6)
	for i, itemResult := range results {
		assert.Equal(t, filePaths[i], itemResult["file_path"])
	}
	assert.Equal(t, false, results[4]["success"])
	assert.Contains(t, results[4]["error"], "engine rejected")
	assert.Equal(t, false, results[5]["success"])

	assert.LessOrEqual(t, manager.maxInFlight, 2, "no more than max_concurrent processing calls in flight")
}

func TestBatchProcessDefaultsConcurrencyFromConfig(t *testing.T) {
	tl, manager, _ := newTestTools(t)
	manager.processDelay = 10 * time.Millisecond

	dir := t.TempDir()
	var filePaths []interface{}
	for i := 0; i < 6; i++ {
		path := filepath.Join(dir, fmt.Sprintf("f%d.txt", i))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		filePaths = append(filePaths, path)
	}

	result := tl.HandleToolCall(context.Background(), "batch_process_documents", map[string]interface{}{
		"file_paths": filePaths,
	})

	require.Equal(t, true, result["success"])
	assert.Equal(t, 6, result["successful"])
	assert.LessOrEqual(t, manager.maxInFlight, 3) // config default
}

func TestQueryTextPassThrough(t *testing.T) {
	tl, manager, _ := newTestTools(t)

	result := tl.HandleToolCall(context.Background(), "query_text", map[string]interface{}{
		"query": "what is in the docs?",
		"mode":  "naive",
		"top_k": float64(7),
	})

	require.Equal(t, true, result["success"])
	assert.Equal(t, "what is in the docs?", result["query"])
	assert.Equal(t, "an answer", result["answer"])
	assert.Equal(t, "naive", result["mode"])

	assert.Equal(t, rag.ModeNaive, manager.lastMode)
	assert.Equal(t, 7, manager.lastTopK)
}

func TestQueryTextDefaultsToHybrid(t *testing.T) {
	tl, manager, _ := newTestTools(t)

	result := tl.HandleToolCall(context.Background(), "query_text", map[string]interface{}{
		"query": "q",
	})

	require.Equal(t, true, result["success"])
	assert.Equal(t, rag.ModeHybrid, manager.lastMode)
	assert.Equal(t, 0, manager.lastTopK)
}

func TestQueryTextInvalidMode(t *testing.T) {
	tl, _, _ := newTestTools(t)

	result := tl.HandleToolCall(context.Background(), "query_text", map[string]interface{}{
		"query": "q",
		"mode":  "psychic",
	})

	assert.Equal(t, false, result["success"])
	assert.Equal(t, "validation", result["kind"])
}

func TestQueryMultimodalDecodesItems(t *testing.T) {
	tl, manager, _ := newTestTools(t)

	result := tl.HandleToolCall(context.Background(), "query_multimodal", map[string]interface{}{
		"query": "compare these",
		"multimodal_content": []interface{}{
			map[string]interface{}{"type": "table", "table_data": "a,b\n1,2"},
			map[string]interface{}{"type": "equation", "latex": "e=mc^2"},
		},
	})

	require.Equal(t, true, result["success"])
	assert.Equal(t, 2, result["multimodal_content_count"])

	require.Len(t, manager.lastItems, 2)
	assert.Equal(t, "table", manager.lastItems[0].Type)
	assert.Equal(t, "a,b\n1,2", manager.lastItems[0].TableData)
	assert.Equal(t, "e=mc^2", manager.lastItems[1].Latex)
}

func TestQueryMultimodalRequiresContent(t *testing.T) {
	tl, _, _ := newTestTools(t)

	result := tl.HandleToolCall(context.Background(), "query_multimodal", map[string]interface{}{
		"query": "q",
	})

	assert.Equal(t, false, result["success"])
	assert.Equal(t, "validation", result["kind"])
}

func TestGetDocumentInfo(t *testing.T) {
	tl, _, _ := newTestTools(t)
	ctx := context.Background()

	path := writeTempFile(t, "info.txt", "data")
	uploadResult := tl.HandleToolCall(ctx, "upload_document", map[string]interface{}{
		"file_path": path,
		"doc_id":    "info-doc",
	})
	require.Equal(t, true, uploadResult["success"])

	result := tl.HandleToolCall(ctx, "get_document_info", map[string]interface{}{
		"doc_id": "info-doc",
	})
	require.Equal(t, true, result["success"])

	document := result["document"].(UploadRecord)
	assert.Equal(t, "info-doc", document.DocID)
	assert.Equal(t, "info.txt", document.FileName)

	missing := tl.HandleToolCall(ctx, "get_document_info", map[string]interface{}{
		"doc_id": "unknown",
	})
	assert.Equal(t, false, missing["success"])
	assert.Equal(t, "not_found", missing["kind"])
}

func TestDeleteDocumentRemovesRecordAndFile(t *testing.T) {
	tl, _, cfg := newTestTools(t)
	ctx := context.Background()

	path := writeTempFile(t, "del.txt", "bye")
	uploadResult := tl.HandleToolCall(ctx, "upload_document", map[string]interface{}{
		"file_path": path,
		"doc_id":    "del-doc",
	})
	require.Equal(t, true, uploadResult["success"])

	uploadPath := filepath.Join(cfg.UploadDir, "del-doc_del.txt")
	require.FileExists(t, uploadPath)

	result := tl.HandleToolCall(ctx, "delete_document", map[string]interface{}{
		"doc_id": "del-doc",
	})
	require.Equal(t, true, result["success"])
	assert.Equal(t, "deleted", result["status"])

	assert.NoFileExists(t, uploadPath)
	assert.Equal(t, 0, tl.store.Len())

	// Second delete of the same id is a not-found failure
	again := tl.HandleToolCall(ctx, "delete_document", map[string]interface{}{
		"doc_id": "del-doc",
	})
	assert.Equal(t, false, again["success"])
	assert.Equal(t, "not_found", again["kind"])
}

func TestGetStorageInfoIncludesUploadCount(t *testing.T) {
	tl, _, _ := newTestTools(t)
	ctx := context.Background()

	path := writeTempFile(t, "s.txt", "x")
	tl.HandleToolCall(ctx, "upload_document", map[string]interface{}{"file_path": path})

	result := tl.HandleToolCall(ctx, "get_storage_info", nil)
	require.Equal(t, true, result["success"])
	assert.Equal(t, 2, result["file_count"])
	assert.Equal(t, int64(42), result["points_count"])
	assert.Equal(t, 1, result["uploaded_documents"])
	assert.Equal(t, true, result["initialized"])
}

func TestInsertContentList(t *testing.T) {
	tl, manager, _ := newTestTools(t)

	result := tl.HandleToolCall(context.Background(), "insert_content_list", map[string]interface{}{
		"content_list": []interface{}{
			map[string]interface{}{"type": "text", "text": "block one", "page_idx": float64(1)},
			map[string]interface{}{"type": "text", "text": "block two", "page_idx": float64(2)},
		},
		"file_path": "/data/report.pdf",
	})

	require.Equal(t, true, result["success"])
	assert.Equal(t, "inserted", result["status"])
	assert.Equal(t, 2, result["content_count"])
	assert.Equal(t, "report", result["doc_id"])

	require.Len(t, manager.lastItems, 2)
	assert.Equal(t, 1, manager.lastItems[0].PageIdx)
}

func TestInsertContentListRequiresFields(t *testing.T) {
	tl, _, _ := newTestTools(t)

	result := tl.HandleToolCall(context.Background(), "insert_content_list", map[string]interface{}{
		"content_list": []interface{}{},
	})

	assert.Equal(t, false, result["success"])
	assert.Equal(t, "validation", result["kind"])
	assert.Contains(t, result["error"], "file_path")
}
