package tools

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raganything/rag-anything-mcp/errs"
)

func (t *Tools) uploadDocument(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	filePath, err := stringArg(args, "file_path")
	if err != nil {
		return nil, err
	}
	docID := optionalStringArg(args, "doc_id")

	record, err := t.upload(filePath, docID)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success":      true,
		"doc_id":       record.DocID,
		"file_name":    record.FileName,
		"file_size_mb": math.Round(record.FileSizeMB*100) / 100,
		"status":       record.Status,
	}, nil
}

// upload validates the source file, copies it into the uploads
// directory under the doc_id-prefixed name and records it.
func (t *Tools) upload(filePath, docID string) (UploadRecord, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return UploadRecord{}, errs.NotFound("file not found: %s", filePath)
		}
		return UploadRecord{}, errs.Engine("failed to stat file", err)
	}
	if info.IsDir() {
		return UploadRecord{}, errs.Validation("path is a directory: %s", filePath)
	}

	fileSizeMB := float64(info.Size()) / (1024 * 1024)
	if fileSizeMB > float64(t.cfg.MaxFileSizeMB) {
		return UploadRecord{}, errs.Validation("file too large: %.2fMB (max: %dMB)", fileSizeMB, t.cfg.MaxFileSizeMB)
	}

	if docID == "" {
		docID = uuid.New().String()
	}

	fileName := filepath.Base(filePath)
	uploadPath := filepath.Join(t.cfg.UploadDir, docID+"_"+fileName)

	if err := copyFile(filePath, uploadPath); err != nil {
		return UploadRecord{}, errs.Engine("failed to copy file to uploads", err)
	}

	record := UploadRecord{
		DocID:        docID,
		OriginalPath: filePath,
		UploadPath:   uploadPath,
		FileName:     fileName,
		FileSizeMB:   fileSizeMB,
		Status:       StatusUploaded,
	}
	t.store.Put(record)

	t.logger.Info("Document uploaded",
		zap.String("doc_id", docID),
		zap.String("file", fileName),
		zap.Float64("size_mb", fileSizeMB),
	)

	return record, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (t *Tools) processDocument(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	docID, err := stringArg(args, "doc_id")
	if err != nil {
		return nil, err
	}
	parser := optionalStringArg(args, "parser")
	parseMethod := optionalStringArg(args, "parse_method")

	return t.process(ctx, docID, parser, parseMethod)
}

func (t *Tools) process(ctx context.Context, docID, parser, parseMethod string) (map[string]interface{}, error) {
	record, ok := t.store.Get(docID)
	if !ok {
		return nil, errs.NotFound("document not found: %s", docID)
	}

	result, err := t.manager.ProcessDocument(ctx, record.UploadPath, parser, parseMethod, docID)
	if err != nil {
		return nil, err
	}

	t.store.MarkProcessed(docID, result)

	return map[string]interface{}{
		"success": true,
		"doc_id":  docID,
		"status":  StatusProcessed,
		"details": result,
	}, nil
}

func (t *Tools) batchProcessDocuments(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	filePaths, err := stringSliceArg(args, "file_paths")
	if err != nil {
		return nil, err
	}

	maxConcurrent := optionalIntArg(args, "max_concurrent")
	if maxConcurrent <= 0 {
		maxConcurrent = t.cfg.MaxConcurrentFiles
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	t.logger.Info("Batch processing documents",
		zap.Int("files", len(filePaths)),
		zap.Int("max_concurrent", maxConcurrent),
	)

	results := make([]map[string]interface{}, len(filePaths))
	var successful int64

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrent)

	for i, filePath := range filePaths {
		g.Go(func() error {
			// Failures are isolated per file; the group error is never set
			record, err := t.upload(filePath, "")
			if err != nil {
				results[i] = map[string]interface{}{
					"file_path": filePath,
					"success":   false,
					"error":     err.Error(),
				}
				return nil
			}

			processResult, err := t.process(ctx, record.DocID, "", "")
			if err != nil {
				results[i] = map[string]interface{}{
					"file_path": filePath,
					"success":   false,
					"error":     err.Error(),
				}
				return nil
			}

			atomic.AddInt64(&successful, 1)
			results[i] = map[string]interface{}{
				"file_path": filePath,
				"success":   true,
				"doc_id":    record.DocID,
				"result":    processResult,
			}
			return nil
		})
	}

	_ = g.Wait()

	failed := len(filePaths) - int(successful)

	return map[string]interface{}{
		"success":    true,
		"total":      len(filePaths),
		"successful": int(successful),
		"failed":     failed,
		"results":    results,
	}, nil
}

func (t *Tools) queryText(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	mode, err := modeArg(args)
	if err != nil {
		return nil, err
	}
	topK := optionalIntArg(args, "top_k")

	result, err := t.manager.QueryText(ctx, query, mode, topK)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success": true,
		"query":   result.Query,
		"answer":  result.Answer,
		"mode":    result.Mode,
	}, nil
}

func (t *Tools) queryMultimodal(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	items, err := contentItemsArg(args, "multimodal_content")
	if err != nil {
		return nil, err
	}
	mode, err := modeArg(args)
	if err != nil {
		return nil, err
	}

	result, err := t.manager.QueryMultimodal(ctx, query, items, mode)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success":                  true,
		"query":                    result.Query,
		"answer":                   result.Answer,
		"mode":                     result.Mode,
		"multimodal_content_count": result.MultimodalContentCount,
	}, nil
}

func (t *Tools) listDocuments(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	documents := t.store.List()
	return map[string]interface{}{
		"success":   true,
		"count":     len(documents),
		"documents": documents,
	}, nil
}

func (t *Tools) getDocumentInfo(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	docID, err := stringArg(args, "doc_id")
	if err != nil {
		return nil, err
	}

	record, ok := t.store.Get(docID)
	if !ok {
		return nil, errs.NotFound("document not found: %s", docID)
	}

	return map[string]interface{}{
		"success":  true,
		"document": record,
	}, nil
}

func (t *Tools) deleteDocument(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	docID, err := stringArg(args, "doc_id")
	if err != nil {
		return nil, err
	}

	record, ok := t.store.Delete(docID)
	if !ok {
		return nil, errs.NotFound("document not found: %s", docID)
	}

	// Remove the copied upload; the file may already be gone
	if err := os.Remove(record.UploadPath); err != nil && !os.IsNotExist(err) {
		t.logger.Warn("Failed to remove upload file",
			zap.String("doc_id", docID),
			zap.String("path", record.UploadPath),
			zap.Error(err),
		)
	}

	t.logger.Info("Document deleted", zap.String("doc_id", docID))

	return map[string]interface{}{
		"success": true,
		"doc_id":  docID,
		"status":  "deleted",
	}, nil
}

func (t *Tools) getStorageInfo(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	info, err := t.manager.StorageInfo(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success":            true,
		"storage_dir":        info.StorageDir,
		"upload_dir":         info.UploadDir,
		"initialized":        info.Initialized,
		"file_count":         info.FileCount,
		"points_count":       info.PointsCount,
		"uploaded_documents": t.store.Len(),
	}, nil
}

func (t *Tools) insertContentList(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	items, err := contentItemsArg(args, "content_list")
	if err != nil {
		return nil, err
	}
	filePath, err := stringArg(args, "file_path")
	if err != nil {
		return nil, err
	}
	docID := optionalStringArg(args, "doc_id")

	result, err := t.manager.InsertContentList(ctx, items, filePath, docID)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success":       true,
		"status":        result.Status,
		"content_count": result.ContentCount,
		"doc_id":        result.DocID,
	}, nil
}
