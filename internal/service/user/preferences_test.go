package user

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"atelier/internal/domain/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePrefsRepo struct {
	prefs map[uuid.UUID]*models.UserPreferences
}

func newFakePrefsRepo() *fakePrefsRepo {
	return &fakePrefsRepo{prefs: make(map[uuid.UUID]*models.UserPreferences)}
}

func (f *fakePrefsRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserPreferences, error) {
	if p, ok := f.prefs[userID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (f *fakePrefsRepo) Upsert(ctx context.Context, prefs *models.UserPreferences) error {
	copied := *prefs
	f.prefs[prefs.UserID] = &copied
	return nil
}

func strPtr(s string) *string { return &s }

func TestGetPreferencesDefaults(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	svc := NewPreferencesService(newFakePrefsRepo(), testLogger())

	prefs, err := svc.GetPreferences(ctx, userID)
	if err != nil {
		t.Fatalf("GetPreferences() error = %v", err)
	}
	if prefs.UserID != userID {
		t.Errorf("UserID = %v, want %v", prefs.UserID, userID)
	}

	ui, err := prefs.GetUI()
	if err != nil {
		t.Fatalf("GetUI() error = %v", err)
	}
	if ui.Theme != "light" {
		t.Errorf("default theme = %q, want light", ui.Theme)
	}

	m, err := prefs.GetModels()
	if err != nil {
		t.Fatalf("GetModels() error = %v", err)
	}
	if len(m.Favorites) != 0 || m.Default != nil {
		t.Errorf("default models = %+v, want empty favorites and nil default", m)
	}

	if got := prefs.GetSystemInstructions(); got != nil {
		t.Errorf("default system instructions = %q, want nil", *got)
	}
}

func TestUpdatePreferencesPartial(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	repo := newFakePrefsRepo()
	svc := NewPreferencesService(repo, testLogger())

	// Seed with a models preference the update must not touch.
	_, err := svc.UpdatePreferences(ctx, userID, &models.UpdatePreferencesRequest{
		Models: &models.ModelsPreferences{
			Favorites: []models.ProviderModel{{Provider: "anthropic", Model: "claude-sonnet-4-5"}},
		},
	})
	if err != nil {
		t.Fatalf("seed UpdatePreferences() error = %v", err)
	}

	fontSize := 14
	updated, err := svc.UpdatePreferences(ctx, userID, &models.UpdatePreferencesRequest{
		UI: &models.UIPreferences{Theme: "dark", FontSize: &fontSize},
	})
	if err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}

	ui, err := updated.GetUI()
	if err != nil {
		t.Fatalf("GetUI() error = %v", err)
	}
	if ui.Theme != "dark" || ui.FontSize == nil || *ui.FontSize != 14 {
		t.Errorf("ui = %+v, want dark/14", ui)
	}

	m, err := updated.GetModels()
	if err != nil {
		t.Fatalf("GetModels() error = %v", err)
	}
	if len(m.Favorites) != 1 || m.Favorites[0].Model != "claude-sonnet-4-5" {
		t.Errorf("models namespace changed by a ui-only update: %+v", m)
	}

	// The update must be persisted, not just returned.
	stored, _ := repo.GetByUserID(ctx, userID)
	if stored == nil {
		t.Fatal("preferences not persisted")
	}
	storedUI, _ := stored.GetUI()
	if storedUI.Theme != "dark" {
		t.Errorf("persisted theme = %q, want dark", storedUI.Theme)
	}
}

func TestSystemInstructionsTriState(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	svc := NewPreferencesService(newFakePrefsRepo(), testLogger())

	// Set a value first.
	prefs, err := svc.UpdatePreferences(ctx, userID, &models.UpdatePreferencesRequest{
		SystemInstructions: models.OptionalSystemInstructions{Present: true, Value: strPtr("be brief")},
	})
	if err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}
	if got := prefs.GetSystemInstructions(); got == nil || *got != "be brief" {
		t.Fatalf("system instructions = %v, want \"be brief\"", got)
	}

	// Absent field: unchanged.
	prefs, err = svc.UpdatePreferences(ctx, userID, &models.UpdatePreferencesRequest{
		UI: &models.UIPreferences{Theme: "dark"},
	})
	if err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}
	if got := prefs.GetSystemInstructions(); got == nil || *got != "be brief" {
		t.Errorf("absent field changed system instructions: %v", got)
	}

	// Explicit null: cleared.
	prefs, err = svc.UpdatePreferences(ctx, userID, &models.UpdatePreferencesRequest{
		SystemInstructions: models.OptionalSystemInstructions{Present: true, Value: nil},
	})
	if err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}
	if got := prefs.GetSystemInstructions(); got != nil {
		t.Errorf("explicit null did not clear system instructions: %q", *got)
	}
}

func TestUpdateNotifications(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	svc := NewPreferencesService(newFakePrefsRepo(), testLogger())

	on := true
	prefs, err := svc.UpdatePreferences(ctx, userID, &models.UpdatePreferencesRequest{
		Notifications: &models.NotificationPreferences{EmailUpdates: &on},
	})
	if err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}

	n, err := prefs.GetNotifications()
	if err != nil {
		t.Fatalf("GetNotifications() error = %v", err)
	}
	if n.EmailUpdates == nil || !*n.EmailUpdates {
		t.Errorf("notifications = %+v, want email_updates true", n)
	}
	if n.InAppAlerts != nil {
		t.Errorf("unset flag should stay null, got %v", *n.InAppAlerts)
	}
}
