package tools

import (
	"sort"
	"sync"

	"github.com/raganything/rag-anything-mcp/rag"
)

const (
	StatusUploaded  = "uploaded"
	StatusProcessed = "processed"
)

// UploadRecord tracks one uploaded document. Lifetime is bound to
// process memory; a restart loses all tracking.
type UploadRecord struct {
	DocID            string             `json:"doc_id"`
	OriginalPath     string             `json:"original_path"`
	UploadPath       string             `json:"upload_path"`
	FileName         string             `json:"file_name"`
	FileSizeMB       float64            `json:"file_size_mb"`
	Status           string             `json:"status"`
	ProcessingResult *rag.ProcessResult `json:"processing_result,omitempty"`
}

// UploadStore is the mutex-guarded doc_id -> record map shared by all
// tool handlers.
type UploadStore struct {
	mu      sync.RWMutex
	records map[string]UploadRecord
}

func NewUploadStore() *UploadStore {
	return &UploadStore{
		records: make(map[string]UploadRecord),
	}
}

func (s *UploadStore) Put(record UploadRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.DocID] = record
}

// Get returns a copy of the record, so callers never hold a reference
// into the map.
func (s *UploadStore) Get(docID string) (UploadRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[docID]
	return record, ok
}

// MarkProcessed flips the record to processed and attaches the result.
func (s *UploadStore) MarkProcessed(docID string, result *rag.ProcessResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[docID]
	if !ok {
		return false
	}

	record.Status = StatusProcessed
	record.ProcessingResult = result
	s.records[docID] = record
	return true
}

// Delete removes the record and returns it for cleanup of the copied
// upload file.
func (s *UploadStore) Delete(docID string) (UploadRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[docID]
	if ok {
		delete(s.records, docID)
	}
	return record, ok
}

// List returns all records sorted by doc_id.
func (s *UploadStore) List() []UploadRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]UploadRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].DocID < records[j].DocID
	})
	return records
}

func (s *UploadStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
