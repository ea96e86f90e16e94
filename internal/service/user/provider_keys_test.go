package user

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/google/uuid"

	"atelier/internal/domain"
	"atelier/internal/domain/models"
	"atelier/internal/secrets"
)

type fakeKeyRepo struct {
	keys map[string]*models.ProviderKey // userID/provider
}

func newFakeKeyRepo() *fakeKeyRepo {
	return &fakeKeyRepo{keys: make(map[string]*models.ProviderKey)}
}

func keyID(userID uuid.UUID, provider string) string {
	return userID.String() + "/" + provider
}

func (f *fakeKeyRepo) Upsert(ctx context.Context, key *models.ProviderKey) error {
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	copied := *key
	f.keys[keyID(key.UserID, key.Provider)] = &copied
	return nil
}

func (f *fakeKeyRepo) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*models.ProviderKey, error) {
	if k, ok := f.keys[keyID(userID, provider)]; ok {
		copied := *k
		return &copied, nil
	}
	return nil, fmt.Errorf("provider key for %s: %w", provider, domain.ErrNotFound)
}

func (f *fakeKeyRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ProviderKey, error) {
	var keys []models.ProviderKey
	for _, k := range f.keys {
		if k.UserID == userID {
			keys = append(keys, *k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Provider < keys[j].Provider })
	if keys == nil {
		keys = []models.ProviderKey{}
	}
	return keys, nil
}

func (f *fakeKeyRepo) Delete(ctx context.Context, userID uuid.UUID, provider string) error {
	id := keyID(userID, provider)
	if _, ok := f.keys[id]; !ok {
		return fmt.Errorf("provider key for %s: %w", provider, domain.ErrNotFound)
	}
	delete(f.keys, id)
	return nil
}

func newTestKeyService(t *testing.T) (*ProviderKeyService, *fakeKeyRepo) {
	t.Helper()
	box, err := secrets.NewBox("test-master-key")
	if err != nil {
		t.Fatalf("NewBox() error: %v", err)
	}
	repo := newFakeKeyRepo()
	return NewProviderKeyService(repo, box, testLogger()), repo
}

func TestStoreAndResolveKey(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	svc, repo := newTestKeyService(t)

	summary, err := svc.StoreKey(ctx, userID, "anthropic", "sk-ant-test123")
	if err != nil {
		t.Fatalf("StoreKey() error = %v", err)
	}
	if summary.Provider != "anthropic" {
		t.Errorf("Provider = %q", summary.Provider)
	}
	if want := secrets.Fingerprint([]byte("sk-ant-test123")); summary.Fingerprint != want {
		t.Errorf("Fingerprint = %q, want %q", summary.Fingerprint, want)
	}

	// The stored row must not contain the plaintext.
	stored := repo.keys[keyID(userID, "anthropic")]
	if string(stored.Ciphertext) == "sk-ant-test123" {
		t.Error("key stored unencrypted")
	}

	key, err := svc.KeyForProvider(ctx, userID.String(), "anthropic")
	if err != nil {
		t.Fatalf("KeyForProvider() error = %v", err)
	}
	if key != "sk-ant-test123" {
		t.Errorf("resolved key = %q, want the original plaintext", key)
	}
}

func TestStoreKeyValidation(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	svc, _ := newTestKeyService(t)

	tests := []struct {
		name     string
		provider string
		apiKey   string
	}{
		{"unknown provider", "bogus", "sk-123"},
		{"keyless provider", "lorem", "sk-123"},
		{"empty key", "anthropic", "   "},
		{"oversized key", "anthropic", string(make([]byte, maxAPIKeyLength+1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.StoreKey(ctx, userID, tt.provider, tt.apiKey); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestStoreKeyReplaces(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	svc, _ := newTestKeyService(t)

	if _, err := svc.StoreKey(ctx, userID, "gemini", "old-key"); err != nil {
		t.Fatalf("StoreKey() error = %v", err)
	}
	if _, err := svc.StoreKey(ctx, userID, "gemini", "new-key"); err != nil {
		t.Fatalf("StoreKey() error = %v", err)
	}

	summaries, err := svc.ListKeys(ctx, userID)
	if err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("keys = %d, want 1 after replace", len(summaries))
	}
	if want := secrets.Fingerprint([]byte("new-key")); summaries[0].Fingerprint != want {
		t.Error("fingerprint still shows the replaced key")
	}

	key, err := svc.KeyForProvider(ctx, userID.String(), "gemini")
	if err != nil {
		t.Fatalf("KeyForProvider() error = %v", err)
	}
	if key != "new-key" {
		t.Errorf("resolved key = %q, want the replacement", key)
	}
}

func TestKeyForProviderFallbacks(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestKeyService(t)

	tests := []struct {
		name     string
		userID   string
		provider string
	}{
		{"no stored key", uuid.NewString(), "anthropic"},
		{"non-uuid user", "dev-user", "anthropic"},
		{"keyless provider", uuid.NewString(), "lorem"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := svc.KeyForProvider(ctx, tt.userID, tt.provider)
			if err != nil {
				t.Fatalf("KeyForProvider() error = %v", err)
			}
			if key != "" {
				t.Errorf("key = %q, want empty fallback", key)
			}
		})
	}
}

func TestKeyForProviderOpenFailure(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	svc, repo := newTestKeyService(t)

	if _, err := svc.StoreKey(ctx, userID, "openrouter", "sk-or-123"); err != nil {
		t.Fatalf("StoreKey() error = %v", err)
	}

	// Same rows, different master secret: the key must fail closed.
	otherBox, err := secrets.NewBox("rotated-master-key")
	if err != nil {
		t.Fatalf("NewBox() error: %v", err)
	}
	rotated := NewProviderKeyService(repo, otherBox, testLogger())

	_, err = rotated.KeyForProvider(ctx, userID.String(), "openrouter")
	if !errors.Is(err, secrets.ErrOpenFailed) {
		t.Errorf("error = %v, want ErrOpenFailed after master key rotation", err)
	}
}

func TestListKeysRedacted(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	svc, _ := newTestKeyService(t)

	for provider, key := range map[string]string{
		"anthropic": "sk-ant-1",
		"gemini":    "gm-2",
	} {
		if _, err := svc.StoreKey(ctx, userID, provider, key); err != nil {
			t.Fatalf("StoreKey(%s) error = %v", provider, err)
		}
	}

	summaries, err := svc.ListKeys(ctx, userID)
	if err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("keys = %d, want 2", len(summaries))
	}
	// Repository orders by provider.
	if summaries[0].Provider != "anthropic" || summaries[1].Provider != "gemini" {
		t.Errorf("order = %q, %q", summaries[0].Provider, summaries[1].Provider)
	}
	for _, s := range summaries {
		if s.Fingerprint == "" {
			t.Errorf("missing fingerprint for %s", s.Provider)
		}
	}

	// Another user sees nothing.
	other, err := svc.ListKeys(ctx, uuid.New())
	if err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("foreign user sees %d keys", len(other))
	}
}

func TestDeleteKey(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	svc, _ := newTestKeyService(t)

	if _, err := svc.StoreKey(ctx, userID, "anthropic", "sk-ant-1"); err != nil {
		t.Fatalf("StoreKey() error = %v", err)
	}
	if err := svc.DeleteKey(ctx, userID, "anthropic"); err != nil {
		t.Fatalf("DeleteKey() error = %v", err)
	}

	key, err := svc.KeyForProvider(ctx, userID.String(), "anthropic")
	if err != nil || key != "" {
		t.Errorf("after delete: key = %q, err = %v, want empty fallback", key, err)
	}

	if err := svc.DeleteKey(ctx, userID, "anthropic"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}
