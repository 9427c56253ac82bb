package cli

import (
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/gophkeeper/internal/cryptox"
)

func TestIsLoggedIn(t *testing.T) {
	a := &App{}
	if a.isLoggedIn() {
		t.Fatal("expected fresh App to be logged out")
	}
	a.userName = "bob"
	if !a.isLoggedIn() {
		t.Fatal("expected App to be logged in once userName is set")
	}
}

func TestSaveAndLoadCachedPublicKey(t *testing.T) {
	priv, err := cryptox.GenerateRSAKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "server.pub")

	if err := saveCachedPublicKey(path, &priv.PublicKey); err != nil {
		t.Fatal(err)
	}

	got, err := loadCachedPublicKey(path)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(&priv.PublicKey) {
		t.Fatal("loaded public key does not match saved one")
	}
}

func TestLoadCachedPublicKey_MissingFile(t *testing.T) {
	if _, err := loadCachedPublicKey(filepath.Join(t.TempDir(), "missing.pub")); err == nil {
		t.Fatal("expected error for missing cache file")
	}
}

func TestLoadCachedPublicKey_EmptyPath(t *testing.T) {
	if _, err := loadCachedPublicKey(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSaveCachedPublicKey_EmptyPathIsNoop(t *testing.T) {
	if err := saveCachedPublicKey("", nil); err != nil {
		t.Fatalf("expected no-op for empty path, got %v", err)
	}
}
