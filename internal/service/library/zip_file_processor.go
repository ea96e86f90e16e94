package library

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	libraryRepo "atelier/internal/domain/repositories/library"
	"atelier/internal/service/library/converter"
)

// zipFileProcessor imports the contents of a zip archive, preserving the
// archive's folder structure. Each entry is routed through the converter
// registry by extension; unsupported entries are counted as skipped.
type zipFileProcessor struct {
	docRepo           libraryRepo.DocumentRepository
	docService        *DocumentService
	converterRegistry *converter.ConverterRegistry
	logger            *slog.Logger
}

// NewZipFileProcessor creates a new zip file processor
func NewZipFileProcessor(
	docRepo libraryRepo.DocumentRepository,
	docService *DocumentService,
	converterRegistry *converter.ConverterRegistry,
	logger *slog.Logger,
) FileProcessor {
	return &zipFileProcessor{
		docRepo:           docRepo,
		docService:        docService,
		converterRegistry: converterRegistry,
		logger:            logger,
	}
}

// CanProcess returns true for .zip files
func (p *zipFileProcessor) CanProcess(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".zip"
}

// Process extracts and imports documents from a zip archive. The folderPath
// argument is ignored: archive entries carry their own directory structure.
func (p *zipFileProcessor) Process(
	ctx context.Context,
	workspaceID string,
	userID string,
	file io.Reader,
	filename string,
	folderPath string,
	overwrite bool,
) (*ImportResult, error) {
	// Read zip file into memory
	zipData, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read zip file: %w", err)
	}

	zipReaderAt := bytes.NewReader(zipData)
	zipFile, err := zip.NewReader(zipReaderAt, int64(len(zipData)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip file: %w", err)
	}

	// Load all existing documents once so each entry gets an O(1) dedup
	// lookup instead of a per-file query.
	existingDocs, err := p.docRepo.GetAllMetadataByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing documents: %w", err)
	}

	// Lookup map "path|name" → document_id (see BuildLookupKey)
	docMap := make(map[string]string)
	for _, doc := range existingDocs {
		path, err := p.docRepo.GetPath(ctx, &doc)
		if err != nil {
			p.logger.Warn("failed to compute path for existing document",
				"doc_id", doc.ID,
				"error", err,
			)
			continue
		}
		docMap[BuildLookupKey(path, doc.Name)] = doc.ID
	}

	result := newImportResult()

	for _, zipEntry := range zipFile.File {
		// Skip directories
		if zipEntry.FileInfo().IsDir() {
			continue
		}

		// Check if file extension is supported
		ext := filepath.Ext(zipEntry.Name)
		if p.converterRegistry.GetConverter(ext) == nil {
			p.logger.Debug("skipping unsupported file type", "file", zipEntry.Name, "ext", ext)
			result.Summary.Skipped++
			result.Summary.TotalFiles++
			continue
		}

		p.processZipEntry(ctx, workspaceID, userID, zipEntry, docMap, overwrite, result)
	}

	p.logger.Info("zip file processing complete",
		"filename", filename,
		"workspace_id", workspaceID,
		"created", result.Summary.Created,
		"updated", result.Summary.Updated,
		"skipped", result.Summary.Skipped,
		"failed", result.Summary.Failed,
		"total_files", result.Summary.TotalFiles,
	)

	return result, nil
}

// Name returns the processor name
func (p *zipFileProcessor) Name() string {
	return "ZipFileProcessor"
}

// processZipEntry imports a single file from the zip archive
func (p *zipFileProcessor) processZipEntry(
	ctx context.Context,
	workspaceID string,
	userID string,
	file *zip.File,
	docMap map[string]string,
	overwrite bool,
	result *ImportResult,
) {
	result.Summary.TotalFiles++

	fileReader, err := file.Open()
	if err != nil {
		result.addError(p.logger, file.Name, fmt.Sprintf("failed to open file: %v", err))
		return
	}
	defer fileReader.Close()

	fileContent, err := io.ReadAll(fileReader)
	if err != nil {
		result.addError(p.logger, file.Name, fmt.Sprintf("failed to read file: %v", err))
		return
	}

	// Convert to markdown; the source kind records the original format
	markdown, source, err := p.converterRegistry.Convert(ctx, file.Name, fileContent)
	if err != nil {
		result.addError(p.logger, file.Name, fmt.Sprintf("failed to convert file: %v", err))
		return
	}

	// Extract folder path and document name from the zip entry path.
	// Zip entries use forward slashes regardless of OS: "folder/sub/file.md"
	//
	// Examples:
	//   - "chapter1.md" → folderPath="", docName="chapter1"
	//   - "book/chapter1.md" → folderPath="book", docName="chapter1"
	//   - "book/part1/intro.md" → folderPath="book/part1", docName="intro"
	var folderPath string
	dirPath := filepath.Dir(file.Name)
	if dirPath != "." {
		folderPath = dirPath
	}

	baseName := filepath.Base(file.Name)
	ext := filepath.Ext(baseName)
	docName := SanitizeDocName(strings.TrimSuffix(baseName, ext))

	// Dedup against existing documents by full path
	fullPath := BuildFullPath(folderPath, docName)
	lookupKey := BuildLookupKey(fullPath, docName)
	existingDocID, exists := docMap[lookupKey]

	if exists {
		if overwrite {
			p.updateDocument(ctx, workspaceID, userID, existingDocID, markdown, source, result)
		} else {
			p.skipDocument(result, folderPath, docName, existingDocID)
		}
	} else {
		p.createDocument(ctx, workspaceID, userID, folderPath, docName, markdown, source, result)
	}
}

// createDocument creates a new document
func (p *zipFileProcessor) createDocument(
	ctx context.Context,
	workspaceID string,
	userID string,
	folderPath string,
	docName string,
	content string,
	source string,
	result *ImportResult,
) {
	doc, err := p.docService.CreateDocument(ctx, &CreateDocumentRequest{
		WorkspaceID: workspaceID,
		UserID:      userID,
		FolderPath:  &folderPath, // Empty string is valid for root
		Name:        docName,
		Content:     content,
		Source:      source,
	})

	if err != nil {
		result.addError(p.logger, BuildFullPath(folderPath, docName), fmt.Sprintf("failed to create document: %v", err))
		return
	}

	result.Summary.Created++
	result.Documents = append(result.Documents, ImportDocument{
		ID:     doc.ID,
		Path:   doc.Path,
		Name:   doc.Name,
		Action: "created",
	})

	p.logger.Debug("document created",
		"id", doc.ID,
		"folder_path", folderPath,
		"name", docName,
	)
}

// updateDocument overwrites an existing document's content
func (p *zipFileProcessor) updateDocument(
	ctx context.Context,
	workspaceID string,
	userID string,
	docID string,
	content string,
	source string,
	result *ImportResult,
) {
	doc, err := p.docService.UpdateDocument(ctx, docID, workspaceID, userID, &UpdateDocumentRequest{
		Content: &content,
		Source:  &source,
	})

	if err != nil {
		result.addError(p.logger, docID, fmt.Sprintf("failed to update document: %v", err))
		return
	}

	result.Summary.Updated++
	result.Documents = append(result.Documents, ImportDocument{
		ID:     doc.ID,
		Path:   doc.Path,
		Name:   doc.Name,
		Action: "updated",
	})

	p.logger.Debug("document updated",
		"id", doc.ID,
		"path", doc.Path,
	)
}

// skipDocument records a skipped duplicate document
func (p *zipFileProcessor) skipDocument(
	result *ImportResult,
	folderPath string,
	docName string,
	existingDocID string,
) {
	fullPath := BuildFullPath(folderPath, docName)
	result.Summary.Skipped++
	result.Documents = append(result.Documents, ImportDocument{
		ID:     existingDocID,
		Path:   fullPath,
		Name:   docName,
		Action: "skipped",
	})

	p.logger.Debug("document skipped (duplicate)",
		"folder_path", folderPath,
		"name", docName,
	)
}
