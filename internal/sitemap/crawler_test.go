package sitemap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func urlsetDoc(locs ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?><urlset xmlns=%q>`, Namespace)
	for _, loc := range locs {
		fmt.Fprintf(&b, "<url><loc>%s</loc></url>", loc)
	}
	b.WriteString("</urlset>")
	return b.String()
}

func indexDoc(locs ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?><sitemapindex xmlns=%q>`, Namespace)
	for _, loc := range locs {
		fmt.Fprintf(&b, "<sitemap><loc>%s</loc></sitemap>", loc)
	}
	b.WriteString("</sitemapindex>")
	return b.String()
}

// newSitemapServer serves documents by path, 404 otherwise. The returned map
// is read per request, so entries can reference the server's own URL.
func newSitemapServer(t *testing.T) (*httptest.Server, map[string]string) {
	t.Helper()
	docs := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, ok := docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(doc))
	}))
	t.Cleanup(srv.Close)
	return srv, docs
}

func TestCrawler_ExtractURLs_Leaf(t *testing.T) {
	t.Parallel()

	srv, docs := newSitemapServer(t)
	docs["/sitemap.xml"] = urlsetDoc("https://example.com/a", "https://example.com/b")

	c := New(Config{}, zap.NewNop())
	urls, err := c.ExtractURLs(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
}

func TestCrawler_ExtractURLs_IndexPreservesChildOrder(t *testing.T) {
	t.Parallel()

	srv, docs := newSitemapServer(t)
	docs["/index.xml"] = indexDoc(srv.URL+"/first.xml", srv.URL+"/second.xml")
	docs["/first.xml"] = urlsetDoc("https://example.com/1", "https://example.com/2")
	docs["/second.xml"] = urlsetDoc("https://example.com/3")

	c := New(Config{}, zap.NewNop())
	urls, err := c.ExtractURLs(context.Background(), srv.URL+"/index.xml")
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/3",
	}, urls)
}

func TestCrawler_ExtractURLs_BadChildDoesNotAbortSiblings(t *testing.T) {
	t.Parallel()

	srv, docs := newSitemapServer(t)
	docs["/index.xml"] = indexDoc(srv.URL+"/missing.xml", srv.URL+"/broken.xml", srv.URL+"/good.xml")
	docs["/broken.xml"] = "<html>not a sitemap</html>"
	docs["/good.xml"] = urlsetDoc("https://example.com/ok")

	c := New(Config{}, zap.NewNop())
	urls, err := c.ExtractURLs(context.Background(), srv.URL+"/index.xml")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/ok"}, urls)
}

func TestCrawler_ExtractURLs_UnreachableRootYieldsEmpty(t *testing.T) {
	t.Parallel()

	srv, _ := newSitemapServer(t)

	c := New(Config{}, zap.NewNop())
	urls, err := c.ExtractURLs(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	require.Empty(t, urls)
}

func TestCrawler_ExtractURLs_CycleTerminates(t *testing.T) {
	t.Parallel()

	srv, docs := newSitemapServer(t)
	docs["/a.xml"] = indexDoc(srv.URL + "/b.xml")
	docs["/b.xml"] = indexDoc(srv.URL+"/a.xml", srv.URL+"/leaf.xml")
	docs["/leaf.xml"] = urlsetDoc("https://example.com/x")

	c := New(Config{}, zap.NewNop())
	urls, err := c.ExtractURLs(context.Background(), srv.URL+"/a.xml")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/x"}, urls)
}

func TestCrawler_ExtractURLs_DepthGuard(t *testing.T) {
	t.Parallel()

	srv, docs := newSitemapServer(t)
	docs["/0.xml"] = indexDoc(srv.URL + "/1.xml")
	docs["/1.xml"] = indexDoc(srv.URL + "/2.xml")
	docs["/2.xml"] = urlsetDoc("https://example.com/deep")

	c := New(Config{MaxDepth: 1}, zap.NewNop())
	urls, err := c.ExtractURLs(context.Background(), srv.URL+"/0.xml")
	require.NoError(t, err)
	require.Empty(t, urls, "node below max depth contributes nothing")
}

func TestCrawler_ExtractURLs_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(Config{}, zap.NewNop())
	_, err := c.ExtractURLs(ctx, "https://example.com/sitemap.xml")
	require.ErrorIs(t, err, context.Canceled)
}

func TestCrawler_SendsUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(urlsetDoc("https://example.com/a")))
	}))
	t.Cleanup(srv.Close)

	c := New(Config{UserAgent: "indexer-test/1.0"}, zap.NewNop())
	_, err := c.ExtractURLs(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	require.Equal(t, "indexer-test/1.0", gotUA)
}

func TestParseDocument(t *testing.T) {
	t.Parallel()

	t.Run("urlset skips empty loc", func(t *testing.T) {
		t.Parallel()
		leaves, children, err := parseDocument([]byte(
			`<urlset><url><loc>https://example.com/a</loc></url><url><loc></loc></url></urlset>`))
		require.NoError(t, err)
		require.Equal(t, []string{"https://example.com/a"}, leaves)
		require.Empty(t, children)
	})

	t.Run("sitemapindex", func(t *testing.T) {
		t.Parallel()
		leaves, children, err := parseDocument([]byte(indexDoc("https://example.com/child.xml")))
		require.NoError(t, err)
		require.Empty(t, leaves)
		require.Equal(t, []string{"https://example.com/child.xml"}, children)
	})

	t.Run("unexpected root", func(t *testing.T) {
		t.Parallel()
		_, _, err := parseDocument([]byte(`<rss></rss>`))
		require.ErrorContains(t, err, "unexpected root element")
	})

	t.Run("not xml", func(t *testing.T) {
		t.Parallel()
		_, _, err := parseDocument([]byte("totally not xml"))
		require.Error(t, err)
	})
}
