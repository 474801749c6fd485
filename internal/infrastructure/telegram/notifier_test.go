package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ArticleEnricher/internal/domain"
)

func TestPublishSummary(t *testing.T) {
	t.Parallel()

	var gotText, gotChat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken-1/sendMessage" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotText = r.PostForm.Get("text")
		gotChat = r.PostForm.Get("chat_id")
	}))
	defer server.Close()

	n := NewNotifier("token-1", "42")
	n.apiBase = server.URL
	n.client = server.Client()

	if err := n.PublishSummary(context.Background(), "run ok: 3 new articles"); err != nil {
		t.Fatalf("PublishSummary: %v", err)
	}
	if gotText != "run ok: 3 new articles" || gotChat != "42" {
		t.Fatalf("unexpected form: text=%q chat=%q", gotText, gotChat)
	}
}

func TestPublishSummaryErrors(t *testing.T) {
	t.Parallel()

	if err := NewNotifier("", "").PublishSummary(context.Background(), "x"); err == nil {
		t.Fatal("expected misconfiguration error")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	n := NewNotifier("t", "c")
	n.apiBase = server.URL
	n.client = server.Client()
	if err := n.PublishSummary(context.Background(), "x"); err == nil {
		t.Fatal("expected error on non-200")
	}
}

func TestPublishSummaryReportsAPIErrorAndTruncates(t *testing.T) {
	t.Parallel()

	var gotLen int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotLen = len([]rune(r.PostForm.Get("text")))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	n := NewNotifier("t", "c")
	n.apiBase = server.URL
	n.client = server.Client()

	err := n.PublishSummary(context.Background(), strings.Repeat("x", 5000))
	if !errors.Is(err, domain.ErrCollaborator) || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("unexpected error %v", err)
	}
	if gotLen != maxMessageRunes {
		t.Fatalf("message length %d, want %d", gotLen, maxMessageRunes)
	}
}
