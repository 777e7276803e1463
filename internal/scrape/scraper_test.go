package scrape_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gopost/gopost/internal/logger"
	"github.com/gopost/gopost/internal/scrape"
)

func serveHTML(t *testing.T, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEnricher_Enrich(t *testing.T) {
	recent := time.Now().Add(-24 * time.Hour).Format(time.RFC3339)
	page := fmt.Sprintf(`<!DOCTYPE html>
<html><head>
<title>Go 1.25 Released</title>
<meta property="og:image" content="/images/gopher.png">
<meta property="article:published_time" content="%s">
</head><body>
<nav>Home About Contact</nav>
<article>
<h1>Go 1.25 Released</h1>
<p>The latest release brings substantial improvements to the runtime.</p>
<p>Garbage collection pauses are shorter and the compiler is faster.</p>
</article>
<footer>Copyright</footer>
</body></html>`, recent)

	server := serveHTML(t, page)
	enricher := scrape.NewEnricher(0, logger.NewNopLogger())

	content, err := enricher.Enrich(context.Background(), server.URL+"/article")
	if err != nil {
		t.Fatalf("Enrich() error: %v", err)
	}
	if content.Title != "Go 1.25 Released" {
		t.Errorf("Title = %q", content.Title)
	}
	if content.ImageURL != server.URL+"/images/gopher.png" {
		t.Errorf("ImageURL = %q, want resolved absolute url", content.ImageURL)
	}
	if !strings.Contains(content.Body, "Garbage collection pauses") {
		t.Errorf("Body missing article text: %q", content.Body)
	}
	if strings.Contains(content.Body, "Home About Contact") {
		t.Errorf("Body should exclude nav boilerplate: %q", content.Body)
	}
	if content.PublishedAt.IsZero() {
		t.Error("PublishedAt should be parsed")
	}
}

func TestEnricher_StaleArticleRejected(t *testing.T) {
	old := time.Now().Add(-30 * 24 * time.Hour).Format(time.RFC3339)
	page := fmt.Sprintf(`<html><head>
<meta property="article:published_time" content="%s">
</head><body><article><p>ancient news</p></article></body></html>`, old)

	server := serveHTML(t, page)
	enricher := scrape.NewEnricher(0, logger.NewNopLogger())

	_, err := enricher.Enrich(context.Background(), server.URL)
	if !errors.Is(err, scrape.ErrStale) {
		t.Fatalf("Enrich() error = %v, want %v", err, scrape.ErrStale)
	}
}

func TestEnricher_UndatedPageKept(t *testing.T) {
	page := `<html><head><title>No Date Here</title></head>
<body><article><p>evergreen content</p></article></body></html>`

	server := serveHTML(t, page)
	enricher := scrape.NewEnricher(0, logger.NewNopLogger())

	content, err := enricher.Enrich(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("a page without a date must be kept, got: %v", err)
	}
	if !content.PublishedAt.IsZero() {
		t.Errorf("PublishedAt should be zero, got %v", content.PublishedAt)
	}
}

func TestEnricher_BodyCapped(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<html><body><article>`)
	for range 200 {
		sb.WriteString("<p>")
		sb.WriteString(strings.Repeat("word ", 10))
		sb.WriteString("</p>")
	}
	sb.WriteString(`</article></body></html>`)

	server := serveHTML(t, sb.String())
	enricher := scrape.NewEnricher(0, logger.NewNopLogger())

	content, err := enricher.Enrich(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Enrich() error: %v", err)
	}
	if got := len([]rune(content.Body)); got > 3000 {
		t.Errorf("Body length = %d, want at most 3000", got)
	}
}

func TestEnricher_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	enricher := scrape.NewEnricher(0, logger.NewNopLogger())
	if _, err := enricher.Enrich(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestEnricher_ExtractLinks(t *testing.T) {
	page := `<html><body>
<a href="/local/one">one</a>
<a href="https://other.example.com/two#section">two</a>
<a href="/local/one">duplicate</a>
<a href="mailto:hi@example.com">mail</a>
<a href="javascript:void(0)">js</a>
<a>no href</a>
</body></html>`

	server := serveHTML(t, page)
	enricher := scrape.NewEnricher(0, logger.NewNopLogger())

	links, err := enricher.ExtractLinks(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("ExtractLinks() error: %v", err)
	}

	want := []string{
		server.URL + "/local/one",
		"https://other.example.com/two",
	}
	if len(links) != len(want) {
		t.Fatalf("got %d links %v, want %d", len(links), links, len(want))
	}
	for i, link := range want {
		if links[i] != link {
			t.Errorf("links[%d] = %q, want %q", i, links[i], link)
		}
	}
}
