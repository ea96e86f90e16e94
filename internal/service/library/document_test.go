package library

import (
	"context"
	"errors"
	"testing"

	"atelier/internal/domain"
	models "atelier/internal/domain/models/library"
)

func newTestDocumentService(wsRepo *fakeWorkspaceRepo, folderRepo *fakeFolderRepo, docRepo *fakeDocumentRepo) *DocumentService {
	docRepo.folderRepo = folderRepo
	return NewDocumentService(
		docRepo,
		folderRepo,
		NewContentAnalyzer(),
		NewPathResolver(folderRepo, fakeTxManager{}),
		NewResourceValidator(wsRepo, folderRepo),
		testLogger(),
	)
}

func TestCreateDocumentDefaults(t *testing.T) {
	ctx := context.Background()
	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	docRepo := &fakeDocumentRepo{}
	svc := newTestDocumentService(wsRepo, newFakeFolderRepo(), docRepo)

	doc, err := svc.CreateDocument(ctx, &CreateDocumentRequest{
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Name:        "notes",
		Content:     "Hello world from here",
	})
	if err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}

	if doc.Source != models.SourceMarkdown {
		t.Errorf("Source = %q, want default %q", doc.Source, models.SourceMarkdown)
	}
	if doc.WordCount != 4 {
		t.Errorf("WordCount = %d, want 4", doc.WordCount)
	}
	if doc.FolderID != nil {
		t.Errorf("FolderID = %v, want nil (root)", doc.FolderID)
	}
	if doc.Path != "notes" {
		t.Errorf("Path = %q, want %q", doc.Path, "notes")
	}
}

func TestCreateDocumentWithPathNotation(t *testing.T) {
	ctx := context.Background()
	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	folderRepo := newFakeFolderRepo()
	docRepo := &fakeDocumentRepo{}
	svc := newTestDocumentService(wsRepo, folderRepo, docRepo)

	doc, err := svc.CreateDocument(ctx, &CreateDocumentRequest{
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Name:        "chapters/intro",
		Content:     "Once upon a time",
	})
	if err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}

	if doc.Name != "intro" {
		t.Errorf("Name = %q, want %q", doc.Name, "intro")
	}
	if doc.FolderID == nil {
		t.Fatal("FolderID = nil, want the auto-created chapters folder")
	}
	if doc.Path != "chapters/intro" {
		t.Errorf("Path = %q, want %q", doc.Path, "chapters/intro")
	}

	folders, _ := folderRepo.GetAllByWorkspace(ctx, "ws-1")
	if len(folders) != 1 || folders[0].Name != "chapters" {
		t.Errorf("folders = %+v, want one auto-created chapters folder", folders)
	}
}

func TestCreateDocumentRejectsUnknownSource(t *testing.T) {
	ctx := context.Background()
	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	svc := newTestDocumentService(wsRepo, newFakeFolderRepo(), &fakeDocumentRepo{})

	_, err := svc.CreateDocument(ctx, &CreateDocumentRequest{
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Name:        "notes",
		Content:     "body",
		Source:      "docx",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation for unknown source kind", err)
	}
}

func TestUpdateDocumentMoveAndRecount(t *testing.T) {
	ctx := context.Background()
	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	folderRepo := newFakeFolderRepo()
	folder := folderRepo.add("ws-1", nil, "drafts")
	docRepo := &fakeDocumentRepo{docs: []models.Document{
		{ID: "doc-1", WorkspaceID: "ws-1", FolderID: &folder.ID, Name: "scene", Content: "old", WordCount: 1},
	}}
	svc := newTestDocumentService(wsRepo, folderRepo, docRepo)

	doc, err := svc.UpdateDocument(ctx, "doc-1", "ws-1", "user-1", &UpdateDocumentRequest{
		FolderID: strPtr(""),
		Content:  strPtr("brand new content for the scene"),
	})
	if err != nil {
		t.Fatalf("UpdateDocument() error = %v", err)
	}

	if doc.FolderID != nil {
		t.Errorf("FolderID = %v, want nil after move to root", doc.FolderID)
	}
	if doc.WordCount != 6 {
		t.Errorf("WordCount = %d, want 6 after content change", doc.WordCount)
	}
	if doc.Path != "scene" {
		t.Errorf("Path = %q, want %q at root", doc.Path, "scene")
	}
}

func TestSearchDocumentsAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	docRepo := &fakeDocumentRepo{}
	svc := newTestDocumentService(wsRepo, newFakeFolderRepo(), docRepo)

	_, err := svc.SearchDocuments(ctx, &SearchDocumentsRequest{
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Query:       "  dragons  ",
	})
	if err != nil {
		t.Fatalf("SearchDocuments() error = %v", err)
	}

	opts := docRepo.searchOpts
	if opts == nil {
		t.Fatal("repository never received search options")
	}
	if opts.Query != "dragons" {
		t.Errorf("Query = %q, want trimmed %q", opts.Query, "dragons")
	}
	if opts.Limit != models.DefaultSearchLimit {
		t.Errorf("Limit = %d, want default %d", opts.Limit, models.DefaultSearchLimit)
	}
	if opts.Language != models.DefaultSearchLanguage {
		t.Errorf("Language = %q, want default %q", opts.Language, models.DefaultSearchLanguage)
	}
	if opts.Strategy != models.SearchStrategyFullText {
		t.Errorf("Strategy = %q, want fulltext", opts.Strategy)
	}
	if len(opts.Fields) != 2 {
		t.Errorf("Fields = %v, want name and content by default", opts.Fields)
	}
}

func TestSearchDocumentsValidation(t *testing.T) {
	ctx := context.Background()
	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	svc := newTestDocumentService(wsRepo, newFakeFolderRepo(), &fakeDocumentRepo{})

	tests := []struct {
		name string
		req  *SearchDocumentsRequest
	}{
		{"empty query", &SearchDocumentsRequest{WorkspaceID: "ws-1", UserID: "user-1", Query: "   "}},
		{"bad field", &SearchDocumentsRequest{WorkspaceID: "ws-1", UserID: "user-1", Query: "x", Fields: []string{"title"}}},
		{"limit too large", &SearchDocumentsRequest{WorkspaceID: "ws-1", UserID: "user-1", Query: "x", Limit: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SearchDocuments(ctx, tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}
