package static

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func bundle() fstest.MapFS {
	return fstest.MapFS{
		"index.html":        {Data: []byte("<html>entry</html>")},
		"assets/app.css":    {Data: []byte("body{}")},
		"assets/js/main.js": {Data: []byte("console.log(1)")},
	}
}

func get(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestServesExistingFile(t *testing.T) {
	h := New(bundle(), "index.html", discard)

	rec := get(h, http.MethodGet, "/assets/app.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{}", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}

func TestFallbackToEntry(t *testing.T) {
	h := New(bundle(), "index.html", discard)

	for _, target := range []string{"/", "/index.html", "/results/42", "/assets", "/assets/missing.png", "/../../etc/passwd"} {
		rec := get(h, http.MethodGet, target)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, "<html>entry</html>", rec.Body.String(), target)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html", target)
	}
}

func TestHeadEntry(t *testing.T) {
	rec := get(New(bundle(), "index.html", discard), http.MethodHead, "/deep/link")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestMissingEntryIsServerError(t *testing.T) {
	fsys := bundle()
	delete(fsys, "index.html")

	rec := get(New(fsys, "index.html", discard), http.MethodGet, "/anything")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = get(New(fsys, "index.html", discard), http.MethodGet, "/assets/app.css")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRejectsOtherMethods(t *testing.T) {
	rec := get(New(bundle(), "index.html", discard), http.MethodPost, "/")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
