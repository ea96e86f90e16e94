package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	models "atelier/internal/domain/models/library"
	libraryRepo "atelier/internal/domain/repositories/library"
	"atelier/internal/service/library/converter"
)

// individualFileProcessor imports single convertible files (.md, .txt,
// .html, .pdf) into the folder given by the request's folder_path.
type individualFileProcessor struct {
	docRepo           libraryRepo.DocumentRepository
	docService        *DocumentService
	converterRegistry *converter.ConverterRegistry
	logger            *slog.Logger
}

// NewIndividualFileProcessor creates a new individual file processor
func NewIndividualFileProcessor(
	docRepo libraryRepo.DocumentRepository,
	docService *DocumentService,
	converterRegistry *converter.ConverterRegistry,
	logger *slog.Logger,
) FileProcessor {
	return &individualFileProcessor{
		docRepo:           docRepo,
		docService:        docService,
		converterRegistry: converterRegistry,
		logger:            logger,
	}
}

// CanProcess returns true if a converter is registered for the file's extension
func (p *individualFileProcessor) CanProcess(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return p.converterRegistry.GetConverter(ext) != nil
}

// Process imports a single file as a document. Failures are recorded in the
// result rather than returned so a batch of uploads continues past them.
func (p *individualFileProcessor) Process(
	ctx context.Context,
	workspaceID string,
	userID string,
	file io.Reader,
	filename string,
	folderPath string,
	overwrite bool,
) (*ImportResult, error) {
	result := newImportResult()
	result.Summary.TotalFiles = 1

	content, err := io.ReadAll(file)
	if err != nil {
		result.addError(p.logger, filename, fmt.Sprintf("failed to read file: %v", err))
		return result, nil
	}

	// Convert to markdown; the source kind records the original format
	markdown, source, err := p.converterRegistry.Convert(ctx, filename, content)
	if err != nil {
		result.addError(p.logger, filename, fmt.Sprintf("failed to convert file: %v", err))
		return result, nil
	}

	// Document name is the filename without extension
	baseName := filepath.Base(filename)
	ext := filepath.Ext(baseName)
	docName := SanitizeDocName(strings.TrimSuffix(baseName, ext))

	existingDoc, err := p.findExistingDocument(ctx, workspaceID, folderPath, docName)
	if err != nil {
		result.addError(p.logger, filename, fmt.Sprintf("failed to check for existing document: %v", err))
		return result, nil
	}

	if existingDoc != nil {
		if overwrite {
			p.updateDocument(ctx, workspaceID, userID, existingDoc.ID, filename, markdown, source, result)
		} else {
			fullPath := BuildFullPath(folderPath, docName)
			result.Summary.Skipped = 1
			result.Documents = append(result.Documents, ImportDocument{
				ID:     existingDoc.ID,
				Path:   fullPath,
				Name:   docName,
				Action: "skipped",
			})

			p.logger.Debug("individual file skipped (duplicate)",
				"filename", filename,
				"folder_path", folderPath,
			)
		}
		return result, nil
	}

	doc, err := p.docService.CreateDocument(ctx, &CreateDocumentRequest{
		WorkspaceID: workspaceID,
		UserID:      userID,
		FolderPath:  &folderPath, // Empty string is valid for root
		Name:        docName,
		Content:     markdown,
		Source:      source,
	})

	if err != nil {
		result.addError(p.logger, filename, fmt.Sprintf("failed to create document: %v", err))
		return result, nil
	}

	result.Summary.Created = 1
	result.Documents = append(result.Documents, ImportDocument{
		ID:     doc.ID,
		Path:   doc.Path,
		Name:   doc.Name,
		Action: "created",
	})

	p.logger.Debug("individual file imported",
		"filename", filename,
		"doc_id", doc.ID,
		"folder_path", folderPath,
	)

	return result, nil
}

// updateDocument overwrites an existing document's content
func (p *individualFileProcessor) updateDocument(
	ctx context.Context,
	workspaceID string,
	userID string,
	docID string,
	filename string,
	content string,
	source string,
	result *ImportResult,
) {
	doc, err := p.docService.UpdateDocument(ctx, docID, workspaceID, userID, &UpdateDocumentRequest{
		Content: &content,
		Source:  &source,
	})
	if err != nil {
		result.addError(p.logger, filename, fmt.Sprintf("failed to update document: %v", err))
		return
	}

	result.Summary.Updated = 1
	result.Documents = append(result.Documents, ImportDocument{
		ID:     doc.ID,
		Path:   doc.Path,
		Name:   doc.Name,
		Action: "updated",
	})

	p.logger.Debug("individual file updated",
		"filename", filename,
		"doc_id", doc.ID,
	)
}

// findExistingDocument checks whether a document with the given name already
// exists at the target folder path
func (p *individualFileProcessor) findExistingDocument(
	ctx context.Context,
	workspaceID string,
	folderPath string,
	docName string,
) (*models.Document, error) {
	docs, err := p.docRepo.GetAllMetadataByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	targetKey := BuildLookupKey(BuildFullPath(folderPath, docName), docName)

	for _, doc := range docs {
		path, err := p.docRepo.GetPath(ctx, &doc)
		if err != nil {
			continue
		}

		if BuildLookupKey(path, doc.Name) == targetKey {
			return &doc, nil
		}
	}

	return nil, nil
}

// Name returns the processor name
func (p *individualFileProcessor) Name() string {
	return "IndividualFileProcessor"
}
