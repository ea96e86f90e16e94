package library

import (
	"context"
	"errors"
	"strings"
	"testing"

	"atelier/internal/domain"
	models "atelier/internal/domain/models/library"
)

func strPtr(s string) *string { return &s }

func newTestFolderService(wsRepo *fakeWorkspaceRepo, folderRepo *fakeFolderRepo, docRepo *fakeDocumentRepo) *FolderService {
	resolver := NewPathResolver(folderRepo, fakeTxManager{})
	validator := NewResourceValidator(wsRepo, folderRepo)
	return NewFolderService(folderRepo, docRepo, resolver, validator, testLogger())
}

func TestCreateFolderWithPathNotation(t *testing.T) {
	ctx := context.Background()
	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	folderRepo := newFakeFolderRepo()
	svc := newTestFolderService(wsRepo, folderRepo, &fakeDocumentRepo{})

	folder, err := svc.CreateFolder(ctx, &CreateFolderRequest{
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Name:        "chapters/act-one/scene-1",
	})
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}

	if folder.Name != "scene-1" {
		t.Errorf("Name = %q, want %q", folder.Name, "scene-1")
	}
	if folder.Path != "chapters/act-one/scene-1" {
		t.Errorf("Path = %q, want %q", folder.Path, "chapters/act-one/scene-1")
	}

	// Intermediate folders must exist after the create
	all, _ := folderRepo.GetAllByWorkspace(ctx, "ws-1")
	if len(all) != 3 {
		t.Errorf("folder count = %d, want 3 (chapters, act-one, scene-1)", len(all))
	}
}

func TestCreateFolderReusesIntermediateFolders(t *testing.T) {
	ctx := context.Background()
	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	folderRepo := newFakeFolderRepo()
	existing := folderRepo.add("ws-1", nil, "chapters")
	svc := newTestFolderService(wsRepo, folderRepo, &fakeDocumentRepo{})

	folder, err := svc.CreateFolder(ctx, &CreateFolderRequest{
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Name:        "chapters/act-two",
	})
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}

	if folder.ParentID == nil || *folder.ParentID != existing.ID {
		t.Errorf("ParentID = %v, want existing chapters folder %s", folder.ParentID, existing.ID)
	}
	all, _ := folderRepo.GetAllByWorkspace(ctx, "ws-1")
	if len(all) != 2 {
		t.Errorf("folder count = %d, want 2 (chapters reused)", len(all))
	}
}

func TestCreateFolderSiblingConflict(t *testing.T) {
	ctx := context.Background()
	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	folderRepo := newFakeFolderRepo()
	existing := folderRepo.add("ws-1", nil, "drafts")
	svc := newTestFolderService(wsRepo, folderRepo, &fakeDocumentRepo{})

	_, err := svc.CreateFolder(ctx, &CreateFolderRequest{
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Name:        "drafts",
	})
	if err == nil {
		t.Fatal("expected conflict error for duplicate sibling name")
	}

	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %T, want *domain.ConflictError", err)
	}
	if conflict.ResourceID != existing.ID {
		t.Errorf("ResourceID = %q, want existing folder %q", conflict.ResourceID, existing.ID)
	}
	if conflict.ResourceType != "folder" {
		t.Errorf("ResourceType = %q, want %q", conflict.ResourceType, "folder")
	}
}

func TestUpdateFolderRejectsCircularMove(t *testing.T) {
	ctx := context.Background()
	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	folderRepo := newFakeFolderRepo()
	a := folderRepo.add("ws-1", nil, "a")
	b := folderRepo.add("ws-1", &a.ID, "b")
	c := folderRepo.add("ws-1", &b.ID, "c")
	svc := newTestFolderService(wsRepo, folderRepo, &fakeDocumentRepo{})

	tests := []struct {
		name        string
		folderID    string
		newParentID string
		wantErr     string
	}{
		{"into itself", a.ID, a.ID, "into itself"},
		{"into own subtree", a.ID, c.ID, "into its own subtree"},
		{"into direct child", a.ID, b.ID, "into its own subtree"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateFolder(ctx, tt.folderID, "ws-1", "user-1", &UpdateFolderRequest{
				FolderID: &tt.newParentID,
			})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tt.wantErr)
			}
		})
	}

	// Moving a leaf to the root is fine
	updated, err := svc.UpdateFolder(ctx, c.ID, "ws-1", "user-1", &UpdateFolderRequest{
		FolderID: strPtr(""),
	})
	if err != nil {
		t.Fatalf("UpdateFolder() move to root error = %v", err)
	}
	if updated.ParentID != nil {
		t.Errorf("ParentID = %v, want nil after move to root", updated.ParentID)
	}
}

func TestDeleteFolderRemovesDescendants(t *testing.T) {
	ctx := context.Background()
	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	folderRepo := newFakeFolderRepo()
	parent := folderRepo.add("ws-1", nil, "parent")
	child := folderRepo.add("ws-1", &parent.ID, "child")
	keep := folderRepo.add("ws-1", nil, "keep")

	docRepo := &fakeDocumentRepo{docs: []models.Document{
		{ID: "doc-1", WorkspaceID: "ws-1", FolderID: &parent.ID, Name: "in-parent"},
		{ID: "doc-2", WorkspaceID: "ws-1", FolderID: &child.ID, Name: "in-child"},
		{ID: "doc-3", WorkspaceID: "ws-1", Name: "at-root"},
	}}
	svc := newTestFolderService(wsRepo, folderRepo, docRepo)

	if err := svc.DeleteFolder(ctx, parent.ID, "ws-1", "user-1"); err != nil {
		t.Fatalf("DeleteFolder() error = %v", err)
	}

	remaining, _ := folderRepo.GetAllByWorkspace(ctx, "ws-1")
	if len(remaining) != 1 || remaining[0].ID != keep.ID {
		t.Errorf("remaining folders = %+v, want only %s", remaining, keep.ID)
	}
	if len(docRepo.docs) != 1 || docRepo.docs[0].ID != "doc-3" {
		t.Errorf("remaining documents = %+v, want only doc-3", docRepo.docs)
	}
}

func TestUpdateFolderRequiresField(t *testing.T) {
	ctx := context.Background()
	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	folderRepo := newFakeFolderRepo()
	folder := folderRepo.add("ws-1", nil, "drafts")
	svc := newTestFolderService(wsRepo, folderRepo, &fakeDocumentRepo{})

	_, err := svc.UpdateFolder(ctx, folder.ID, "ws-1", "user-1", &UpdateFolderRequest{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation for empty update", err)
	}
}
