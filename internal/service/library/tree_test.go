package library

import (
	"context"
	"testing"

	models "atelier/internal/domain/models/library"
)

func findFolderNode(nodes []*models.FolderTreeNode, name string) *models.FolderTreeNode {
	for _, node := range nodes {
		if node.Name == name {
			return node
		}
	}
	return nil
}

func TestGetWorkspaceTree(t *testing.T) {
	ctx := context.Background()

	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	folderRepo := newFakeFolderRepo()
	chapters := folderRepo.add("ws-1", nil, "chapters")
	actOne := folderRepo.add("ws-1", &chapters.ID, "act-one")
	folderRepo.add("ws-1", nil, "characters")

	docRepo := &fakeDocumentRepo{docs: []models.Document{
		{ID: "doc-1", WorkspaceID: "ws-1", Name: "readme", Source: models.SourceMarkdown, WordCount: 12},
		{ID: "doc-2", WorkspaceID: "ws-1", FolderID: &actOne.ID, Name: "opening", Source: models.SourcePDF, WordCount: 1200},
	}}

	svc := NewTreeService(folderRepo, docRepo, NewResourceValidator(wsRepo, folderRepo), testLogger())

	tree, err := svc.GetWorkspaceTree(ctx, "ws-1", "user-1")
	if err != nil {
		t.Fatalf("GetWorkspaceTree() error = %v", err)
	}

	if len(tree.Folders) != 2 {
		t.Fatalf("root folders = %d, want 2", len(tree.Folders))
	}

	chaptersNode := findFolderNode(tree.Folders, "chapters")
	if chaptersNode == nil {
		t.Fatal("chapters folder missing from root")
	}
	actOneNode := findFolderNode(chaptersNode.Folders, "act-one")
	if actOneNode == nil {
		t.Fatal("act-one folder not nested under chapters")
	}

	charactersNode := findFolderNode(tree.Folders, "characters")
	if charactersNode == nil {
		t.Fatal("characters folder missing from root")
	}
	if len(charactersNode.Folders) != 0 || len(charactersNode.Documents) != 0 {
		t.Errorf("characters should be empty, got %d folders and %d documents",
			len(charactersNode.Folders), len(charactersNode.Documents))
	}

	if len(tree.Documents) != 1 {
		t.Fatalf("root documents = %d, want 1", len(tree.Documents))
	}
	if tree.Documents[0].Name != "readme" || tree.Documents[0].Source != models.SourceMarkdown {
		t.Errorf("root document = %q source %q, want readme/markdown",
			tree.Documents[0].Name, tree.Documents[0].Source)
	}

	if len(actOneNode.Documents) != 1 {
		t.Fatalf("act-one documents = %d, want 1", len(actOneNode.Documents))
	}
	doc := actOneNode.Documents[0]
	if doc.ID != "doc-2" || doc.Source != models.SourcePDF || doc.WordCount != 1200 {
		t.Errorf("nested document = %+v, want doc-2/pdf/1200", doc)
	}
}

func TestGetWorkspaceTreeDeniesForeignWorkspace(t *testing.T) {
	ctx := context.Background()

	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	folderRepo := newFakeFolderRepo()
	docRepo := &fakeDocumentRepo{}

	svc := NewTreeService(folderRepo, docRepo, NewResourceValidator(wsRepo, folderRepo), testLogger())

	if _, err := svc.GetWorkspaceTree(ctx, "ws-1", "someone-else"); err == nil {
		t.Error("expected error for workspace owned by another user")
	}
	if _, err := svc.GetWorkspaceTree(ctx, "ws-missing", "user-1"); err == nil {
		t.Error("expected error for unknown workspace")
	}
}
