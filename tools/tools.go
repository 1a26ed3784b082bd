// Package tools declares the MCP tool catalog, tracks per-document
// upload state, and dispatches named tool invocations to handlers.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/raganything/rag-anything-mcp/config"
	"github.com/raganything/rag-anything-mcp/errs"
	"github.com/raganything/rag-anything-mcp/rag"
)

// RAG is the slice of the manager the tool handlers need.
type RAG interface {
	ProcessDocument(ctx context.Context, filePath, parser, parseMethod, docID string) (*rag.ProcessResult, error)
	QueryText(ctx context.Context, query string, mode rag.Mode, topK int) (*rag.QueryResult, error)
	QueryMultimodal(ctx context.Context, query string, items []rag.ContentItem, mode rag.Mode) (*rag.MultimodalResult, error)
	InsertContentList(ctx context.Context, items []rag.ContentItem, filePath, docID string) (*rag.InsertResult, error)
	StorageInfo(ctx context.Context) (*rag.StorageInfo, error)
}

type handlerFunc func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error)

type Tools struct {
	cfg      *config.Config
	manager  RAG
	store    *UploadStore
	logger   *zap.Logger
	handlers map[string]handlerFunc
}

func New(cfg *config.Config, manager RAG, logger *zap.Logger) *Tools {
	t := &Tools{
		cfg:     cfg,
		manager: manager,
		store:   NewUploadStore(),
		logger:  logger,
	}

	t.handlers = map[string]handlerFunc{
		"upload_document":         t.uploadDocument,
		"process_document":        t.processDocument,
		"batch_process_documents": t.batchProcessDocuments,
		"query_text":              t.queryText,
		"query_multimodal":        t.queryMultimodal,
		"list_documents":          t.listDocuments,
		"get_document_info":       t.getDocumentInfo,
		"delete_document":         t.deleteDocument,
		"get_storage_info":        t.getStorageInfo,
		"insert_content_list":     t.insertContentList,
	}

	return t
}

// Validate checks that the catalog and the dispatch table agree. Run at
// startup so a mismatch fails the process instead of a tool call.
func (t *Tools) Validate() error {
	declared := make(map[string]bool, len(t.handlers))
	for _, def := range t.Definitions() {
		if _, ok := t.handlers[def.Name]; !ok {
			return fmt.Errorf("tool %q is declared but has no handler", def.Name)
		}
		declared[def.Name] = true
	}
	for name := range t.handlers {
		if !declared[name] {
			return fmt.Errorf("handler %q has no catalog entry", name)
		}
	}
	return nil
}

// HandleToolCall routes a named invocation to its handler. This is the
// single boundary where failures are absorbed: every error becomes a
// {success:false, error, kind} payload instead of propagating.
func (t *Tools) HandleToolCall(ctx context.Context, name string, args map[string]interface{}) map[string]interface{} {
	t.logger.Info("Handling tool call", zap.String("tool", name))

	if args == nil {
		args = map[string]interface{}{}
	}

	handler, ok := t.handlers[name]
	if !ok {
		err := errs.Protocol("unknown tool: %s", name)
		t.logger.Error("Tool call failed", zap.String("tool", name), zap.Error(err))
		return failure(err)
	}

	result, err := handler(ctx, args)
	if err != nil {
		t.logger.Error("Tool call failed", zap.String("tool", name), zap.Error(err))
		return failure(err)
	}

	return result
}

func failure(err error) map[string]interface{} {
	return map[string]interface{}{
		"success": false,
		"error":   err.Error(),
		"kind":    string(errs.KindOf(err)),
	}
}

// argument helpers: MCP arguments arrive as generic JSON values

func stringArg(args map[string]interface{}, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", errs.Validation("%s is required", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", errs.Validation("%s must be a string", key)
	}
	return s, nil
}

func optionalStringArg(args map[string]interface{}, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}

func optionalIntArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func stringSliceArg(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok {
		return nil, errs.Validation("%s is required", key)
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, errs.Validation("%s must be an array of strings", key)
	}
	result := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, errs.Validation("%s must be an array of strings", key)
		}
		result[i] = s
	}
	return result, nil
}

// contentItemsArg decodes a generic JSON array into typed content items.
func contentItemsArg(args map[string]interface{}, key string) ([]rag.ContentItem, error) {
	raw, ok := args[key]
	if !ok {
		return nil, errs.Validation("%s is required", key)
	}
	if _, isList := raw.([]interface{}); !isList {
		return nil, errs.Validation("%s must be an array", key)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, errs.Validation("%s is not valid JSON: %v", key, err)
	}

	var items []rag.ContentItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errs.Validation("%s has malformed items: %v", key, err)
	}

	return items, nil
}

func modeArg(args map[string]interface{}) (rag.Mode, error) {
	mode, err := rag.ParseMode(optionalStringArg(args, "mode"))
	if err != nil {
		return "", errs.Validation("%v", err)
	}
	return mode, nil
}
