package secrets

import (
	"bytes"
	"errors"
	"testing"
)

func TestBox_SealOpen_RoundTrip(t *testing.T) {
	box, err := NewBox("test-master-key")
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	plaintext := []byte("sk-ant-api03-abcdef123456")

	sealed, err := box.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if len(sealed.Salt) != SaltBytes {
		t.Errorf("salt length = %d, want %d", len(sealed.Salt), SaltBytes)
	}
	if len(sealed.Nonce) != NonceBytes {
		t.Errorf("nonce length = %d, want %d", len(sealed.Nonce), NonceBytes)
	}
	if bytes.Contains(sealed.Ciphertext, plaintext) {
		t.Error("ciphertext contains plaintext")
	}

	opened, err := box.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("Open = %q, want %q", opened, plaintext)
	}
}

func TestBox_Open_WrongMasterKey(t *testing.T) {
	box1, _ := NewBox("master-one")
	box2, _ := NewBox("master-two")

	sealed, err := box1.Seal([]byte("secret-value"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	_, err = box2.Open(sealed)
	if !errors.Is(err, ErrOpenFailed) {
		t.Errorf("Open with wrong master = %v, want ErrOpenFailed", err)
	}
}

func TestBox_Open_TamperedCiphertext(t *testing.T) {
	box, _ := NewBox("test-master-key")

	sealed, err := box.Seal([]byte("secret-value"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	sealed.Ciphertext[0] ^= 0xFF

	_, err = box.Open(sealed)
	if !errors.Is(err, ErrOpenFailed) {
		t.Errorf("Open with tampered ciphertext = %v, want ErrOpenFailed", err)
	}
}

func TestBox_Open_BadSaltSize(t *testing.T) {
	box, _ := NewBox("test-master-key")

	sealed, err := box.Seal([]byte("secret-value"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	sealed.Salt = sealed.Salt[:8]

	if _, err := box.Open(sealed); err == nil {
		t.Error("Open with truncated salt succeeded, want error")
	}
}

func TestBox_Seal_FreshSaltAndNonce(t *testing.T) {
	box, _ := NewBox("test-master-key")
	plaintext := []byte("same-secret")

	first, err := box.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	second, err := box.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if bytes.Equal(first.Salt, second.Salt) {
		t.Error("two seals produced the same salt")
	}
	if bytes.Equal(first.Nonce, second.Nonce) {
		t.Error("two seals produced the same nonce")
	}
	if bytes.Equal(first.Ciphertext, second.Ciphertext) {
		t.Error("two seals produced the same ciphertext")
	}
}

func TestNewBox_EmptyMaster(t *testing.T) {
	if _, err := NewBox(""); err == nil {
		t.Error("NewBox(\"\") succeeded, want error")
	}
	if _, err := NewBox("   "); err == nil {
		t.Error("NewBox of whitespace succeeded, want error")
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("sk-ant-key-one"))
	b := Fingerprint([]byte("sk-ant-key-two"))

	if len(a) != 20 {
		t.Errorf("fingerprint length = %d, want 20", len(a))
	}
	if a == b {
		t.Error("different secrets produced the same fingerprint")
	}
	if a != Fingerprint([]byte("sk-ant-key-one")) {
		t.Error("fingerprint is not deterministic")
	}
}

func TestWipe(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	Wipe(buf)
	for i, v := range buf {
		if v != 0 {
			t.Errorf("buf[%d] = %d after Wipe, want 0", i, v)
		}
	}
}
