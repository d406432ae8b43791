package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/docoutline/internal/doctree"
)

type fakeKV struct {
	mu      sync.Mutex
	nodes   map[string]json.RawMessage
	deleted []string
	status  int // forced status for every request when non-zero
}

func newFakeKV(t *testing.T) (*fakeKV, *httptest.Server) {
	t.Helper()
	kv := &fakeKV{nodes: make(map[string]json.RawMessage)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kv.mu.Lock()
		defer kv.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if kv.status != 0 {
			w.WriteHeader(kv.status)
			io.WriteString(w, "forced")
			return
		}

		key := strings.TrimPrefix(r.URL.Path, "/kv/")
		switch r.Method {
		case http.MethodPut:
			var req struct {
				Value json.RawMessage `json:"value"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			kv.nodes[key] = req.Value
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			v, ok := kv.nodes[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"key_path": key, "value": v})
		case http.MethodDelete:
			kv.deleted = append(kv.deleted, key+"?"+r.URL.RawQuery)
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(srv.Close)
	return kv, srv
}

func TestClient_PutGetNode(t *testing.T) {
	_, srv := newFakeKV(t)
	c := NewClient(srv.URL+"/", "secret")
	ctx := context.Background()

	if err := c.PutNode(ctx, "a/b", NodeRequest{Value: map[string]int{"n": 1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	node, err := c.GetNode(ctx, "a/b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node == nil || string(node.Value) != `{"n":1}` {
		t.Errorf("expected value %q, got %+v", `{"n":1}`, node)
	}

	missing, err := c.GetNode(ctx, "a/missing")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing node, got %+v, %v", missing, err)
	}
}

func TestClient_RetryableStatus(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusServiceUnavailable, true},
		{http.StatusTooManyRequests, true},
		{http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		kv, srv := newFakeKV(t)
		kv.status = tt.status
		c := NewClient(srv.URL, "secret")

		err := c.PutNode(context.Background(), "k", NodeRequest{Value: 1})
		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		var re *RetryableError
		if errors.As(err, &re) != tt.retryable {
			t.Errorf("status %d: expected retryable=%v, got %v", tt.status, tt.retryable, err)
		}
	}
}

func TestClient_Unauthorized(t *testing.T) {
	_, srv := newFakeKV(t)
	c := NewClient(srv.URL, "wrong")
	err := c.PutNode(context.Background(), "k", NodeRequest{Value: 1})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("expected 401 error, got %v", err)
	}
}

func TestMirror_SaveAndDelete(t *testing.T) {
	kv, srv := newFakeKV(t)
	m := NewMirror(NewClient(srv.URL, "secret"), "")

	doc := &doctree.Document{
		ID:          "doc-1",
		Filename:    "report.pdf",
		ContentHash: "abc",
		Blocks:      []doctree.Block{{Text: "Intro", Page: 1}},
		Outline: doctree.Outline{Title: "Report", Entries: []doctree.HeadingEntry{
			{Level: doctree.H1, Text: "Intro", Page: 1},
		}},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := m.Save(context.Background(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, key := range []string{"meta", "outline", "blocks"} {
		if _, ok := kv.nodes["docoutline/documents/doc-1/"+key]; !ok {
			t.Errorf("expected node %q to be written", key)
		}
	}
	outline := string(kv.nodes["docoutline/documents/doc-1/outline"])
	want := `{"title":"Report","outline":[{"level":"H1","text":"Intro","page":1}]}`
	if outline != want {
		t.Errorf("expected outline %s, got %s", want, outline)
	}

	if err := m.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kv.deleted) != 1 || kv.deleted[0] != "docoutline/documents/doc-1?children=true" {
		t.Errorf("unexpected deletes %v", kv.deleted)
	}
}
