package token

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStatic_Token(t *testing.T) {
	src := Static("bearer-abc")

	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok != "bearer-abc" {
		t.Errorf("token = %q, want bearer-abc", tok)
	}
}

func TestStatic_Empty(t *testing.T) {
	src := Static("")

	_, err := src.Token(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
}

func TestFileSource_Token(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("bearer-xyz\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	src := FileSource{Path: path}

	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok != "bearer-xyz" {
		t.Errorf("token = %q, want bearer-xyz", tok)
	}
}

func TestFileSource_RereadsOnEachCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("first"), 0o600); err != nil {
		t.Fatal(err)
	}

	src := FileSource{Path: path}

	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok != "first" {
		t.Errorf("token = %q, want first", tok)
	}

	// Simulate a session refresh between connect attempts.
	if err := os.WriteFile(path, []byte("second"), 0o600); err != nil {
		t.Fatal(err)
	}

	tok, err = src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok != "second" {
		t.Errorf("token = %q, want second", tok)
	}
}

func TestFileSource_Missing(t *testing.T) {
	src := FileSource{Path: filepath.Join(t.TempDir(), "absent")}

	_, err := src.Token(context.Background())
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileSource_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	src := FileSource{Path: path}

	_, err := src.Token(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
}
