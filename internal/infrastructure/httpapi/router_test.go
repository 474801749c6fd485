package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/logging"
)

type stubAudio map[int64]error

func (s stubAudio) ParagraphAudio(_ context.Context, id int64) ([]byte, error) {
	if err, ok := s[id]; ok {
		return nil, err
	}
	return []byte(fmt.Sprintf("mp3-%d", id)), nil
}

func TestParagraphAudioRoute(t *testing.T) {
	t.Parallel()

	router := NewRouter(stubAudio{
		2: fmt.Errorf("%w: paragraph 2", domain.ErrNotFound),
		3: fmt.Errorf("%w: upstream down", domain.ErrAudioUnavailable),
		4: domain.ErrPersistence,
	}, logging.Discard())

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{"/api/paragraphs/1/audio", http.StatusOK, "mp3-1"},
		{"/api/paragraphs/2/audio", http.StatusNotFound, ""},
		{"/api/paragraphs/3/audio", http.StatusServiceUnavailable, ""},
		{"/api/paragraphs/4/audio", http.StatusInternalServerError, ""},
		{"/api/paragraphs/abc/audio", http.StatusBadRequest, ""},
		{"/healthz", http.StatusOK, "ok"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.status {
			t.Fatalf("%s: status %d, want %d", tc.path, rec.Code, tc.status)
		}
		if tc.body != "" && rec.Body.String() != tc.body {
			t.Fatalf("%s: body %q", tc.path, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/paragraphs/1/audio", nil))
	if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Fatalf("content type = %q", ct)
	}
}
