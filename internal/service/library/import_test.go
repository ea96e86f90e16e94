package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"atelier/internal/domain"
	models "atelier/internal/domain/models/library"
)

type fakeProcessor struct {
	ext    string
	result *ImportResult
	err    error
	calls  int
}

func (p *fakeProcessor) CanProcess(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), p.ext)
}

func (p *fakeProcessor) Process(ctx context.Context, workspaceID, userID string, file io.Reader, filename, folderPath string, overwrite bool) (*ImportResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func (p *fakeProcessor) Name() string { return "FakeProcessor" }

func newTestImportService(processors ...FileProcessor) *ImportService {
	wsRepo := newFakeWorkspaceRepo(&models.Workspace{ID: "ws-1", UserID: "user-1", Name: "Novel"})
	folderRepo := newFakeFolderRepo()
	registry := NewFileProcessorRegistry()
	for _, p := range processors {
		registry.Register(p)
	}
	return NewImportService(
		registry,
		&fakeDocumentRepo{},
		NewPathResolver(folderRepo, fakeTxManager{}),
		NewResourceValidator(wsRepo, folderRepo),
		testLogger(),
	)
}

func TestProcessFilesMergesResults(t *testing.T) {
	ctx := context.Background()

	mdResult := newImportResult()
	mdResult.Summary.Created = 1
	mdResult.Summary.TotalFiles = 1
	mdResult.Documents = append(mdResult.Documents, ImportDocument{
		ID: "doc-1", Path: "notes", Name: "notes", Action: "created",
	})

	mdProcessor := &fakeProcessor{ext: ".md", result: mdResult}
	svc := newTestImportService(mdProcessor)

	files := []UploadedFile{
		{Filename: "notes.md", Content: strings.NewReader("# Notes")},
		{Filename: "photo.png", Content: strings.NewReader("binary")},
	}

	result, err := svc.ProcessFiles(ctx, "ws-1", "user-1", files, "", false)
	if err != nil {
		t.Fatalf("ProcessFiles() error = %v", err)
	}

	if mdProcessor.calls != 1 {
		t.Errorf("processor calls = %d, want 1", mdProcessor.calls)
	}
	if result.Summary.Created != 1 {
		t.Errorf("Created = %d, want 1", result.Summary.Created)
	}
	if result.Summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Summary.Failed)
	}
	if result.Summary.TotalFiles != 2 {
		t.Errorf("TotalFiles = %d, want 2", result.Summary.TotalFiles)
	}
	if len(result.Errors) != 1 || result.Errors[0].File != "photo.png" {
		t.Fatalf("Errors = %+v, want one entry for photo.png", result.Errors)
	}
	if result.Errors[0].Error != "unsupported file type" {
		t.Errorf("error message = %q, want %q", result.Errors[0].Error, "unsupported file type")
	}
	if len(result.Documents) != 1 || result.Documents[0].Action != "created" {
		t.Errorf("Documents = %+v, want the processor's created entry", result.Documents)
	}
}

func TestProcessFilesRecordsProcessorFailure(t *testing.T) {
	ctx := context.Background()

	broken := &fakeProcessor{ext: ".zip", err: fmt.Errorf("not a valid zip archive")}
	svc := newTestImportService(broken)

	files := []UploadedFile{
		{Filename: "corrupt.zip", Content: strings.NewReader("not a zip")},
	}

	result, err := svc.ProcessFiles(ctx, "ws-1", "user-1", files, "", false)
	if err != nil {
		t.Fatalf("ProcessFiles() error = %v", err)
	}

	if result.Summary.Failed != 1 || result.Summary.TotalFiles != 1 {
		t.Errorf("summary = %+v, want 1 failed of 1", result.Summary)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0].Error, "not a valid zip") {
		t.Errorf("Errors = %+v, want the processor error recorded", result.Errors)
	}
}

func TestProcessFilesValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestImportService(&fakeProcessor{ext: ".md", result: newImportResult()})

	// Unknown workspace
	if _, err := svc.ProcessFiles(ctx, "ws-missing", "user-1", []UploadedFile{{Filename: "a.md"}}, "", false); err == nil {
		t.Error("expected error for unknown workspace")
	}

	// Empty batch
	_, err := svc.ProcessFiles(ctx, "ws-1", "user-1", nil, "", false)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation for empty batch", err)
	}

	// Bad folder path
	_, err = svc.ProcessFiles(ctx, "ws-1", "user-1", []UploadedFile{{Filename: "a.md"}}, "bad/../path", false)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation for traversal in folder path", err)
	}
}

func TestFileProcessorRegistryFirstMatch(t *testing.T) {
	first := &fakeProcessor{ext: ".md"}
	second := &fakeProcessor{ext: ".md"}

	registry := NewFileProcessorRegistry()
	registry.Register(first)
	registry.Register(second)

	if got := registry.GetProcessor("notes.md"); got != first {
		t.Error("GetProcessor should return the first registered match")
	}
	if got := registry.GetProcessor("photo.png"); got != nil {
		t.Errorf("GetProcessor for unsupported type = %v, want nil", got)
	}
}
