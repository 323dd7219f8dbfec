// Package metadata fetches a web page and extracts the metadata a discussion
// is seeded with: title, description, image, and the page's canonical URL.
package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
)

// Fetch failure modes. Callers match with errors.Is.
var (
	ErrFetch   = errors.New("page fetch failed")
	ErrTimeout = errors.New("page fetch timed out")
)

// PageMetadata holds the extracted metadata of a single page.
type PageMetadata struct {
	Title       string
	Description string
	Image       string
	URL         string
}

// Config holds the outbound-fetch contract: a fixed User-Agent, an optional
// HTTP proxy, and a hard timeout so an unresponsive site cannot hold a
// request open indefinitely.
type Config struct {
	UserAgent string
	ProxyURL  string
	Timeout   time.Duration
}

// LoadConfig loads fetcher configuration from environment variables.
func LoadConfig() Config {
	cfg := Config{
		UserAgent: "Horizont-News",
		Timeout:   15 * time.Second,
	}
	if ua := os.Getenv("FETCH_USER_AGENT"); ua != "" {
		cfg.UserAgent = ua
	}
	cfg.ProxyURL = os.Getenv("FETCH_PROXY_URL")
	if secs := os.Getenv("FETCH_TIMEOUT_SECONDS"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil && n > 0 {
			cfg.Timeout = time.Duration(n) * time.Second
		}
	}
	return cfg
}

// Extractor fetches pages and runs the metadata rule set over them. It keeps
// no per-request state and is safe for concurrent use.
type Extractor struct {
	client *resty.Client
}

// NewExtractor creates an extractor from the given fetch configuration.
func NewExtractor(cfg Config) *Extractor {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if cfg.ProxyURL != "" {
		client.SetProxy(cfg.ProxyURL)
	}

	return &Extractor{client: client}
}

// Fetch issues a GET for the page and extracts its metadata. The returned
// URL is the page's canonical URL when one is declared, otherwise the
// fetched URL itself.
func (e *Extractor) Fetch(ctx context.Context, pageURL string) (*PageMetadata, error) {
	resp, err := e.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFetch, resp.StatusCode())
	}

	doc, err := html.Parse(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable HTML: %v", ErrFetch, err)
	}

	return extract(doc, pageURL), nil
}

// pageScan collects the raw signals one DOM walk finds; the rule precedence
// is applied afterwards.
type pageScan struct {
	meta       map[string]string // property/name -> content, first wins
	titleTag   string
	canonical  string
	imageLink  string // <link rel="image_src">
	firstImage string // first <img src> on the page
}

func extract(doc *html.Node, pageURL string) *PageMetadata {
	scan := &pageScan{meta: make(map[string]string)}
	scan.walk(doc)

	m := &PageMetadata{
		Title:       firstOf(scan.meta, "og:title", "twitter:title"),
		Description: firstOf(scan.meta, "og:description", "twitter:description", "description"),
		Image:       firstOf(scan.meta, "og:image", "og:image:url", "twitter:image"),
		URL:         firstNonEmpty(scan.canonical, scan.meta["og:url"], pageURL),
	}

	if m.Title == "" {
		m.Title = scan.titleTag
	}
	// No image metadata tag on the page: fall back to the first <img src>.
	if m.Image == "" {
		m.Image = firstNonEmpty(scan.imageLink, scan.firstImage)
	}
	m.Image = absoluteURL(pageURL, m.Image)
	m.URL = absoluteURL(pageURL, m.URL)

	return m
}

func (s *pageScan) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "meta":
			key := firstNonEmpty(attrValue(n, "property"), attrValue(n, "name"))
			content := attrValue(n, "content")
			if key != "" && content != "" {
				if _, seen := s.meta[key]; !seen {
					s.meta[key] = content
				}
			}
		case "title":
			if s.titleTag == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				s.titleTag = strings.TrimSpace(n.FirstChild.Data)
			}
		case "link":
			switch attrValue(n, "rel") {
			case "canonical":
				if s.canonical == "" {
					s.canonical = attrValue(n, "href")
				}
			case "image_src":
				if s.imageLink == "" {
					s.imageLink = attrValue(n, "href")
				}
			}
		case "img":
			if s.firstImage == "" {
				s.firstImage = attrValue(n, "src")
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s.walk(c)
	}
}

func attrValue(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

func firstOf(meta map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := meta[key]; v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// absoluteURL resolves ref against the page URL so relative image and
// canonical links come back absolute.
func absoluteURL(pageURL, ref string) string {
	if ref == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	resolved, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return resolved.String()
}
