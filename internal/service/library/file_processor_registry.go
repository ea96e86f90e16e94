package library

import (
	"context"
	"io"
	"sync"
)

// FileProcessor is the strategy interface for processing uploaded files.
// Implementations handle one family of uploads (zip archives, individual
// convertible files).
type FileProcessor interface {
	// CanProcess returns true if this processor can handle the given filename
	CanProcess(filename string) bool

	// Process imports the file's documents into the workspace. If overwrite
	// is true, existing documents are updated; if false, duplicates are
	// skipped. Per-file failures are recorded in the result rather than
	// returned, so one bad file does not abort a batch.
	Process(
		ctx context.Context,
		workspaceID string,
		userID string,
		file io.Reader,
		filename string,
		folderPath string,
		overwrite bool,
	) (*ImportResult, error)

	// Name returns the processor name for logging
	Name() string
}

// UploadedFile is one file from a multipart import request
type UploadedFile struct {
	Filename string
	Content  io.Reader
}

// FileProcessorRegistry routes uploaded files to the first processor that
// can handle them. The zip processor is registered before the individual
// file processor, so archives never fall through to single-file handling.
//
// Thread-safe for concurrent access during request handling.
type FileProcessorRegistry struct {
	mu         sync.RWMutex
	processors []FileProcessor
}

// NewFileProcessorRegistry creates a new file processor registry
func NewFileProcessorRegistry() *FileProcessorRegistry {
	return &FileProcessorRegistry{
		processors: make([]FileProcessor, 0),
	}
}

// Register adds a file processor to the registry
func (r *FileProcessorRegistry) Register(processor FileProcessor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors = append(r.processors, processor)
}

// GetProcessor returns the first processor that can handle the given
// filename, or nil if none can.
func (r *FileProcessorRegistry) GetProcessor(filename string) FileProcessor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, processor := range r.processors {
		if processor.CanProcess(filename) {
			return processor
		}
	}
	return nil
}
