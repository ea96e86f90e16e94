package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"atelier/internal/domain"
	models "atelier/internal/domain/models/library"
	"atelier/internal/domain/repositories"
	libraryRepo "atelier/internal/domain/repositories/library"
)

// In-memory repository fakes shared across the package tests. Embedding the
// interface keeps the fakes small; tests only exercise the implemented
// methods.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWorkspaceRepo struct {
	libraryRepo.WorkspaceRepository
	workspaces map[string]*models.Workspace
}

func newFakeWorkspaceRepo(workspaces ...*models.Workspace) *fakeWorkspaceRepo {
	m := make(map[string]*models.Workspace)
	for _, ws := range workspaces {
		m[ws.ID] = ws
	}
	return &fakeWorkspaceRepo{workspaces: m}
}

func (f *fakeWorkspaceRepo) GetByID(ctx context.Context, id, userID string) (*models.Workspace, error) {
	if ws, ok := f.workspaces[id]; ok && ws.UserID == userID {
		return ws, nil
	}
	return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
}

type fakeFolderRepo struct {
	libraryRepo.FolderRepository
	mu      sync.Mutex
	nextID  int
	folders map[string]*models.Folder
}

func newFakeFolderRepo() *fakeFolderRepo {
	return &fakeFolderRepo{folders: make(map[string]*models.Folder)}
}

func (f *fakeFolderRepo) add(workspaceID string, parentID *string, name string) *models.Folder {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	folder := &models.Folder{
		ID:          fmt.Sprintf("folder-%d", f.nextID),
		WorkspaceID: workspaceID,
		ParentID:    parentID,
		Name:        name,
	}
	f.folders[folder.ID] = folder
	return folder
}

func (f *fakeFolderRepo) Create(ctx context.Context, folder *models.Folder) error {
	created := f.add(folder.WorkspaceID, folder.ParentID, folder.Name)
	folder.ID = created.ID
	return nil
}

func (f *fakeFolderRepo) GetByID(ctx context.Context, id, workspaceID string) (*models.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if folder, ok := f.folders[id]; ok && folder.WorkspaceID == workspaceID {
		copied := *folder
		return &copied, nil
	}
	return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
}

func (f *fakeFolderRepo) Update(ctx context.Context, folder *models.Folder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.folders[folder.ID]; !ok {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}
	copied := *folder
	f.folders[folder.ID] = &copied
	return nil
}

func (f *fakeFolderRepo) Delete(ctx context.Context, id, workspaceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.folders, id)
	return nil
}

func (f *fakeFolderRepo) ListChildren(ctx context.Context, folderID *string, workspaceID string) ([]models.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var children []models.Folder
	for _, folder := range f.folders {
		if folder.WorkspaceID != workspaceID {
			continue
		}
		if (folderID == nil && folder.ParentID == nil) ||
			(folderID != nil && folder.ParentID != nil && *folder.ParentID == *folderID) {
			children = append(children, *folder)
		}
	}
	return children, nil
}

func (f *fakeFolderRepo) CreateIfNotExists(ctx context.Context, workspaceID string, parentID *string, name string) (*models.Folder, error) {
	children, _ := f.ListChildren(ctx, parentID, workspaceID)
	for _, child := range children {
		if child.Name == name {
			copied := child
			return &copied, nil
		}
	}
	return f.add(workspaceID, parentID, name), nil
}

func (f *fakeFolderRepo) GetPath(ctx context.Context, folderID *string, workspaceID string) (string, error) {
	if folderID == nil {
		return "", nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var segments []string
	currentID := *folderID
	for {
		folder, ok := f.folders[currentID]
		if !ok {
			return "", fmt.Errorf("folder %s: %w", currentID, domain.ErrNotFound)
		}
		segments = append([]string{folder.Name}, segments...)
		if folder.ParentID == nil {
			break
		}
		currentID = *folder.ParentID
	}
	return strings.Join(segments, "/"), nil
}

func (f *fakeFolderRepo) GetAllByWorkspace(ctx context.Context, workspaceID string) ([]models.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var folders []models.Folder
	for _, folder := range f.folders {
		if folder.WorkspaceID == workspaceID {
			folders = append(folders, *folder)
		}
	}
	return folders, nil
}

type fakeDocumentRepo struct {
	libraryRepo.DocumentRepository
	folderRepo *fakeFolderRepo // for GetPath; may be nil when paths aren't exercised
	nextID     int
	docs       []models.Document
	searchOpts *models.SearchOptions
}

func (f *fakeDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	f.nextID++
	doc.ID = fmt.Sprintf("doc-%d", f.nextID)
	f.docs = append(f.docs, *doc)
	return nil
}

func (f *fakeDocumentRepo) GetByID(ctx context.Context, id, workspaceID string) (*models.Document, error) {
	for _, doc := range f.docs {
		if doc.ID == id && doc.WorkspaceID == workspaceID {
			copied := doc
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
}

func (f *fakeDocumentRepo) Update(ctx context.Context, doc *models.Document) error {
	for i := range f.docs {
		if f.docs[i].ID == doc.ID && f.docs[i].WorkspaceID == doc.WorkspaceID {
			f.docs[i] = *doc
			return nil
		}
	}
	return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
}

func (f *fakeDocumentRepo) GetPath(ctx context.Context, doc *models.Document) (string, error) {
	if doc.FolderID == nil || f.folderRepo == nil {
		return doc.Name, nil
	}
	folderPath, err := f.folderRepo.GetPath(ctx, doc.FolderID, doc.WorkspaceID)
	if err != nil {
		return "", err
	}
	return BuildFullPath(folderPath, doc.Name), nil
}

func (f *fakeDocumentRepo) SearchDocuments(ctx context.Context, opts *models.SearchOptions) (*models.SearchResults, error) {
	f.searchOpts = opts
	return models.NewSearchResults([]models.SearchResult{}, 0, opts), nil
}

func (f *fakeDocumentRepo) GetAllMetadataByWorkspace(ctx context.Context, workspaceID string) ([]models.Document, error) {
	var docs []models.Document
	for _, doc := range f.docs {
		if doc.WorkspaceID == workspaceID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (f *fakeDocumentRepo) ListByFolder(ctx context.Context, folderID *string, workspaceID string) ([]models.Document, error) {
	var docs []models.Document
	for _, doc := range f.docs {
		if doc.WorkspaceID != workspaceID {
			continue
		}
		if (folderID == nil && doc.FolderID == nil) ||
			(folderID != nil && doc.FolderID != nil && *doc.FolderID == *folderID) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (f *fakeDocumentRepo) Delete(ctx context.Context, id, workspaceID string) error {
	for i, doc := range f.docs {
		if doc.ID == id && doc.WorkspaceID == workspaceID {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
}

// fakeTxManager runs the function directly; the fakes have no transactions
type fakeTxManager struct{}

func (fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}
