package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_EmptyQuery(t *testing.T) {
	client := NewClient()

	_, err := client.Lookup(context.Background(), "   ")

	require.Error(t, err)
}

func TestLookup_Wikipedia(t *testing.T) {
	wiki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/w/api.php"):
			w.Write([]byte(`{"query":{"search":[{"title":"Go (programming language)"}]}}`))
		case strings.HasPrefix(r.URL.Path, "/api/rest_v1/page/summary/"):
			w.Write([]byte(`{"title":"Go (programming language)","extract":"Go is a statically typed language.","content_urls":{"desktop":{"page":"https://en.wikipedia.org/wiki/Go"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer wiki.Close()

	client := NewClient(WithWikipediaURL(wiki.URL))

	res, err := client.Lookup(context.Background(), "golang")

	require.NoError(t, err)
	assert.Equal(t, "wikipedia", res.Source)
	assert.Equal(t, "Go (programming language)", res.Title)
	assert.Contains(t, res.Summary, "statically typed")
	assert.Equal(t, "https://en.wikipedia.org/wiki/Go", res.URL)
}

func TestLookup_FallsBackToDuckDuckGo(t *testing.T) {
	wiki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"search":[]}}`))
	}))
	defer wiki.Close()

	ddg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Heading":"Gopher","AbstractText":"A gopher is a burrowing rodent.","AbstractURL":"https://ddg.example/gopher"}`))
	}))
	defer ddg.Close()

	client := NewClient(WithWikipediaURL(wiki.URL), WithDuckDuckGoURL(ddg.URL))

	res, err := client.Lookup(context.Background(), "gopher")

	require.NoError(t, err)
	assert.Equal(t, "duckduckgo", res.Source)
	assert.Contains(t, res.Summary, "burrowing rodent")
}

func TestLookup_DuckDuckGoRelatedTopics(t *testing.T) {
	wiki := httptest.NewServer(http.NotFoundHandler())
	defer wiki.Close()

	ddg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Heading":"","AbstractText":"","RelatedTopics":[{"Text":"first"},{"Text":"second"}]}`))
	}))
	defer ddg.Close()

	client := NewClient(WithWikipediaURL(wiki.URL), WithDuckDuckGoURL(ddg.URL))

	res, err := client.Lookup(context.Background(), "obscure term")

	require.NoError(t, err)
	assert.Equal(t, "obscure term", res.Title)
	assert.Equal(t, "first | second", res.Summary)
}

func TestLookup_NoResultsAnywhere(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer empty.Close()

	client := NewClient(WithWikipediaURL(empty.URL), WithDuckDuckGoURL(empty.URL))

	_, err := client.Lookup(context.Background(), "nothing")

	require.Error(t, err)
}

func TestLookup_SummaryClipped(t *testing.T) {
	long := strings.Repeat("x", 5000)
	wiki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/w/api.php"):
			w.Write([]byte(`{"query":{"search":[{"title":"Long"}]}}`))
		default:
			w.Write([]byte(`{"title":"Long","extract":"` + long + `"}`))
		}
	}))
	defer wiki.Close()

	client := NewClient(WithWikipediaURL(wiki.URL))

	res, err := client.Lookup(context.Background(), "long")

	require.NoError(t, err)
	assert.Len(t, res.Summary, maxSummaryLen)
}
