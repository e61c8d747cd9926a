// Package sitemap fetches sitemap documents over HTTP and recursively
// resolves nested sitemap indexes into a flat, order-preserving URL sequence.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Namespace is the sitemap 0.9 XML namespace.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// maxDocumentBytes caps a single sitemap document read. Anything larger is
// treated as malformed.
const maxDocumentBytes = 32 << 20

type urlEntry struct {
	Loc string `xml:"loc"`
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []urlEntry `xml:"url"`
}

type sitemapRef struct {
	Loc string `xml:"loc"`
}

type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []sitemapRef `xml:"sitemap"`
}

// Config holds the settings for a crawl.
type Config struct {
	// Timeout bounds each document fetch.
	Timeout time.Duration
	// MaxDepth bounds index nesting; nodes beyond it contribute nothing.
	MaxDepth int
	// UserAgent is sent with every fetch.
	UserAgent string
}

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxDepth = 8
)

// Crawler resolves sitemap trees. A failed or malformed node yields zero
// URLs and a warning; it is never fatal to the rest of the crawl.
type Crawler struct {
	client    *http.Client
	maxDepth  int
	userAgent string
	logger    *zap.Logger
}

// New constructs a Crawler.
func New(cfg Config, logger *zap.Logger) *Crawler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultMaxDepth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		client:    &http.Client{Timeout: cfg.Timeout},
		maxDepth:  cfg.MaxDepth,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// ExtractURLs crawls the tree rooted at root and returns every leaf URL in
// depth-first document order. Duplicates across branches are preserved; the
// caller deduplicates if it needs to. The only error returned is context
// cancellation — per-node failures degrade to empty results.
func (c *Crawler) ExtractURLs(ctx context.Context, root string) ([]string, error) {
	visited := make(map[string]struct{})
	urls := c.crawl(ctx, root, 0, visited)
	if ctx.Err() != nil {
		return nil, fmt.Errorf("crawl canceled: %w", ctx.Err())
	}
	c.logger.Info("sitemap crawl finished",
		zap.String("root", root),
		zap.Int("urls", len(urls)),
		zap.Int("documents", len(visited)),
	)
	return urls, nil
}

func (c *Crawler) crawl(ctx context.Context, docURL string, depth int, visited map[string]struct{}) []string {
	if ctx.Err() != nil {
		return nil
	}
	if depth > c.maxDepth {
		c.logger.Warn("sitemap nesting exceeds max depth; skipping node",
			zap.String("url", docURL), zap.Int("max_depth", c.maxDepth))
		return nil
	}
	if _, seen := visited[docURL]; seen {
		c.logger.Warn("sitemap references itself or an ancestor; skipping node",
			zap.String("url", docURL))
		return nil
	}
	visited[docURL] = struct{}{}

	data, err := c.fetch(ctx, docURL)
	if err != nil {
		c.logger.Warn("sitemap fetch failed", zap.String("url", docURL), zap.Error(err))
		return nil
	}

	leaves, children, err := parseDocument(data)
	if err != nil {
		c.logger.Warn("sitemap parse failed", zap.String("url", docURL), zap.Error(err))
		return nil
	}

	if len(children) == 0 {
		return leaves
	}

	c.logger.Info("processing sitemap index",
		zap.String("url", docURL), zap.Int("children", len(children)))
	var urls []string
	for _, child := range children {
		urls = append(urls, c.crawl(ctx, child, depth+1, visited)...)
	}
	return urls
}

func (c *Crawler) fetch(ctx context.Context, docURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read error takes precedence

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read sitemap body: %w", err)
	}
	if len(data) > maxDocumentBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", maxDocumentBytes)
	}
	return data, nil
}

// parseDocument dispatches on the document's root element: a urlset yields
// leaf URLs, a sitemapindex yields child sitemap URLs. Anything else is
// malformed.
func parseDocument(data []byte) (leaves []string, children []string, err error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, nil, err
	}

	switch root {
	case "urlset":
		var doc urlSet
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, nil, fmt.Errorf("parse urlset: %w", err)
		}
		for _, entry := range doc.URLs {
			if entry.Loc == "" {
				continue
			}
			leaves = append(leaves, entry.Loc)
		}
		return leaves, nil, nil
	case "sitemapindex":
		var doc sitemapIndex
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, nil, fmt.Errorf("parse sitemapindex: %w", err)
		}
		for _, ref := range doc.Sitemaps {
			if ref.Loc == "" {
				continue
			}
			children = append(children, ref.Loc)
		}
		return nil, children, nil
	default:
		return nil, nil, fmt.Errorf("unexpected root element %q", root)
	}
}

func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("scan document: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}
