package pipeline

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// Source is itinerary text together with where it came from
type Source struct {
	Text        string
	Origin      string
	ContentType string
}

// Loader reads itinerary text from a file, stdin ("-") or an http(s) URL
type Loader struct {
	httpClient *http.Client
	maxBytes   int64
	stdin      io.Reader
}

// NewLoader creates a loader; maxBytes caps both downloads and local reads
func NewLoader(httpClient *http.Client, maxBytes int64) *Loader {
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Loader{httpClient: httpClient, maxBytes: maxBytes, stdin: os.Stdin}
}

// Load resolves ref to text. HTML pages are reduced to their visible text.
func (l *Loader) Load(ctx context.Context, ref string) (*Source, error) {
	switch {
	case ref == "" || ref == "-":
		text, err := l.read(l.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return &Source{Text: text, Origin: "stdin", ContentType: "text/plain"}, nil
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		return l.fetch(ctx, ref)
	default:
		f, err := os.Open(ref)
		if err != nil {
			return nil, fmt.Errorf("open itinerary: %w", err)
		}
		defer func() { _ = f.Close() }()

		text, err := l.read(f)
		if err != nil {
			return nil, fmt.Errorf("read itinerary: %w", err)
		}
		ct := "text/plain"
		if strings.HasSuffix(strings.ToLower(ref), ".html") || strings.HasSuffix(strings.ToLower(ref), ".htm") {
			ct = "text/html"
			text = visibleText(text)
		}
		return &Source{Text: text, Origin: ref, ContentType: ct}, nil
	}
}

func (l *Loader) read(r io.Reader) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r, l.maxBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (*Source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain,text/markdown,text/html;q=0.9,*/*;q=0.5")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	text, err := l.read(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	ct, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if ct == "text/html" || ct == "application/xhtml+xml" {
		text = visibleText(text)
	}

	return &Source{Text: text, Origin: resp.Request.URL.String(), ContentType: ct}, nil
}

// blockElements end a line of visible text
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "blockquote": true,
}

// visibleText flattens an HTML page to text lines, one per block element
func visibleText(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return page
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "nav", "footer", "header", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	return strings.TrimSpace(b.String())
}
