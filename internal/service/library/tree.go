package library

import (
	"context"
	"log/slog"

	models "atelier/internal/domain/models/library"
	libraryRepo "atelier/internal/domain/repositories/library"
)

// TreeService builds the nested folder/document tree for a workspace
type TreeService struct {
	folderRepo libraryRepo.FolderRepository
	docRepo    libraryRepo.DocumentRepository
	validator  *ResourceValidator
	logger     *slog.Logger
}

// NewTreeService creates a new tree service
func NewTreeService(
	folderRepo libraryRepo.FolderRepository,
	docRepo libraryRepo.DocumentRepository,
	validator *ResourceValidator,
	logger *slog.Logger,
) *TreeService {
	return &TreeService{
		folderRepo: folderRepo,
		docRepo:    docRepo,
		validator:  validator,
		logger:     logger,
	}
}

// GetWorkspaceTree builds and returns the nested folder/document tree for a
// workspace. Documents appear as metadata only; content is not loaded.
func (s *TreeService) GetWorkspaceTree(ctx context.Context, workspaceID, userID string) (*models.TreeNode, error) {
	if err := s.validator.ValidateWorkspace(ctx, workspaceID, userID); err != nil {
		return nil, err
	}

	allFolders, err := s.folderRepo.GetAllByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	allDocuments, err := s.docRepo.GetAllMetadataByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	// Build folder hierarchy using 3-pass algorithm

	// First pass: create all folder nodes
	folderMap := make(map[string]*models.FolderTreeNode)
	var rootFolderIDs []string
	for _, folder := range allFolders {
		folderMap[folder.ID] = &models.FolderTreeNode{
			ID:        folder.ID,
			Name:      folder.Name,
			ParentID:  folder.ParentID,
			CreatedAt: folder.CreatedAt,
			Folders:   []*models.FolderTreeNode{},
			Documents: []models.DocumentTreeNode{},
		}
	}

	// Second pass: nest folders by connecting children to parents
	for _, folder := range allFolders {
		node := folderMap[folder.ID]
		if folder.ParentID == nil {
			rootFolderIDs = append(rootFolderIDs, folder.ID)
		} else {
			// Add to parent (as pointer reference for proper nesting)
			if parent, exists := folderMap[*folder.ParentID]; exists {
				parent.Folders = append(parent.Folders, node)
			}
		}
	}

	// Third pass: add documents to their folders
	rootDocuments := make([]models.DocumentTreeNode, 0)
	for _, doc := range allDocuments {
		docNode := models.DocumentTreeNode{
			ID:        doc.ID,
			Name:      doc.Name,
			FolderID:  doc.FolderID,
			Source:    doc.Source,
			WordCount: doc.WordCount,
			UpdatedAt: doc.UpdatedAt,
		}

		if doc.FolderID == nil {
			rootDocuments = append(rootDocuments, docNode)
		} else {
			if parent, exists := folderMap[*doc.FolderID]; exists {
				parent.Documents = append(parent.Documents, docNode)
			}
		}
	}

	// Build final tree using root folder pointers
	rootFolders := make([]*models.FolderTreeNode, 0)
	for _, folderID := range rootFolderIDs {
		if node, exists := folderMap[folderID]; exists {
			rootFolders = append(rootFolders, node)
		}
	}

	tree := &models.TreeNode{
		Folders:   rootFolders,
		Documents: rootDocuments,
	}

	s.logger.Info("workspace tree built",
		"workspace_id", workspaceID,
		"folder_count", len(allFolders),
		"document_count", len(allDocuments),
	)

	return tree, nil
}
