package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/filesearch/pkg/errors"
)

func TestDocument(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	doc := filepath.Join(root, "notes", "fish.txt")
	unindexed := filepath.Join(root, "notes", "other.txt")
	secret := filepath.Join(outside, "secret.txt")
	for path, text := range map[string]string{doc: "red fish blue fish", unindexed: "nope", secret: "top secret"} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	traversal := filepath.Join(root, "notes") + "/../../" + filepath.Base(outside) + "/secret.txt"
	link := filepath.Join(root, "link.txt")
	haveLink := os.Symlink(secret, link) == nil

	s := &fakeSearcher{documents: map[string]bool{
		doc:                                true,
		secret:                             true,
		traversal:                          true,
		link:                               true,
		filepath.Join(root, "deleted.txt"): true,
		filepath.Join(root, "notes"):       true,
	}}
	c := cfg
	c.DocumentRoots = []string{root}
	mux := newMux(New(s, nil, nil, nil, c))

	get := func(name string) (int, string) {
		rec := do(t, mux, http.MethodGet, "/api/v1/documents?name="+url.QueryEscape(name))
		return rec.Code, rec.Body.String()
	}

	tests := []struct {
		name string
		doc  string
		code int
	}{
		{"indexed under root", doc, http.StatusOK},
		{"not indexed", unindexed, http.StatusNotFound},
		{"outside root", secret, http.StatusForbidden},
		{"dot-dot escape", traversal, http.StatusForbidden},
		{"deleted since indexing", filepath.Join(root, "deleted.txt"), http.StatusNotFound},
		{"directory", filepath.Join(root, "notes"), http.StatusNotFound},
		{"missing name", "", http.StatusBadRequest},
	}
	if haveLink {
		tests = append(tests, struct {
			name string
			doc  string
			code int
		}{"symlink out of root", link, http.StatusForbidden})
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(tt.doc)
			if code != tt.code {
				t.Fatalf("status = %d, want %d: %s", code, tt.code, body)
			}
			if code == http.StatusOK && body != "red fish blue fish" {
				t.Errorf("body = %q", body)
			}
			if code != http.StatusOK && body == "top secret" {
				t.Error("served a file outside the root")
			}
		})
	}
}

func TestDocumentDisabledAndFailures(t *testing.T) {
	s := &fakeSearcher{documents: map[string]bool{"a.txt": true}}
	mux := newMux(New(s, nil, nil, nil, cfg))
	if rec := do(t, mux, http.MethodGet, "/api/v1/documents?name=a.txt"); rec.Code != http.StatusNotFound {
		t.Errorf("without roots: status = %d", rec.Code)
	}

	c := cfg
	c.DocumentRoots = []string{t.TempDir()}
	s.documentErr = fmt.Errorf("shard a.idx: %w", apperrors.ErrIndexCorrupt)
	mux = newMux(New(s, nil, nil, nil, c))
	if rec := do(t, mux, http.MethodGet, "/api/v1/documents?name=a.txt"); rec.Code != http.StatusBadGateway {
		t.Errorf("corrupt shard: status = %d", rec.Code)
	}
}
