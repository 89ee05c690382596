package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestLocalRedirectURL(t *testing.T) {
	cases := map[string]string{
		"urn:ietf:wg:oauth:2.0:oob":            "http://localhost:6789/oauth2callback",
		"http://localhost":                     "http://localhost:6789",
		"http://localhost:8080/cb":             "http://localhost:6789/cb",
		"http://127.0.0.1:6789/oauth2callback": "http://127.0.0.1:6789/oauth2callback",
		"https://example.com/callback":         "https://example.com/callback",
	}
	for in, want := range cases {
		if got := localRedirectURL(in); got != want {
			t.Errorf("localRedirectURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", TokenFile)
	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := saveToken(path, tok); err != nil {
		t.Fatalf("saveToken failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected token file mode 0600, got %v", info.Mode().Perm())
	}

	got, err := tokenFromFile(path)
	if err != nil {
		t.Fatalf("tokenFromFile failed: %v", err)
	}
	if got.AccessToken != "access" || got.RefreshToken != "refresh" || !got.Expiry.Equal(tok.Expiry) {
		t.Errorf("Unexpected token %+v", got)
	}
}

func TestReset(t *testing.T) {
	dir := t.TempDir()
	if err := Reset(dir); err != nil {
		t.Fatalf("Reset on missing token failed: %v", err)
	}
	if err := saveToken(filepath.Join(dir, TokenFile), &oauth2.Token{AccessToken: "x"}); err != nil {
		t.Fatalf("saveToken failed: %v", err)
	}
	if err := Reset(dir); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, TokenFile)); !os.IsNotExist(err) {
		t.Errorf("Expected token file to be removed, got %v", err)
	}
}
