package material

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chineduoko/exam-rag/internal/exam"
)

func TestIsSupportedURL(t *testing.T) {
	assert.True(t, IsSupportedURL("https://example.com/lecture-1.pdf"))
	assert.True(t, IsSupportedURL("https://example.com/notes.MD"))
	assert.True(t, IsSupportedURL("https://example.com/slides.html"))
	assert.True(t, IsSupportedURL("https://example.com/readme.txt"))

	assert.False(t, IsSupportedURL("https://example.com/archive.zip"))
	assert.False(t, IsSupportedURL("https://example.com/lecture"))
	assert.False(t, IsSupportedURL(""))
}

func TestFetchDocumentNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := FetchDocument(context.Background(), srv.Client(), srv.URL+"/missing.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, exam.ErrFetch)
}

func TestFetchDocumentSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("lecture notes"))
	}))
	defer srv.Close()

	data, err := FetchDocument(context.Background(), srv.Client(), srv.URL+"/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "lecture notes", string(data))
}

func TestExtractTextPlain(t *testing.T) {
	text, err := ExtractText("https://example.com/notes.txt", []byte("  plain body  "))
	require.NoError(t, err)
	assert.Equal(t, "plain body", text)
}

func TestExtractTextHTMLStripsMarkup(t *testing.T) {
	page := `<html><head><script>ignored()</script><style>.x{}</style></head>
<body><h1>Thermodynamics</h1><p>First law of thermodynamics.</p></body></html>`

	text, err := ExtractText("https://example.com/page.html", []byte(page))
	require.NoError(t, err)
	assert.Contains(t, text, "Thermodynamics")
	assert.Contains(t, text, "First law of thermodynamics.")
	assert.NotContains(t, text, "ignored")
	assert.NotContains(t, text, ".x{}")
}

func TestExtractTextDropsInvalidUTF8(t *testing.T) {
	text, err := ExtractText("https://example.com/notes.txt", []byte{'o', 'k', 0xff, '!'})
	require.NoError(t, err)
	assert.Equal(t, "ok!", text)
}
