// Package tool's URLFetcher backs the RepoMapGeneration/SemanticSearch
// tools' ability to pull in a referenced URL's content as extra
// context, converting HTML to markdown or plain text.
package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

const (
	maxResponseSize = 5 * 1024 * 1024 // 5MB
	defaultTimeout  = 30 * time.Second
	maxTimeout      = 120 * time.Second
)

// URLFetcher fetches a URL and renders it as markdown or plain text.
type URLFetcher struct {
	client *http.Client
}

// NewURLFetcher creates a URL fetcher with a bounded default timeout.
func NewURLFetcher() *URLFetcher {
	return &URLFetcher{
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// Fetch retrieves url and renders its body in the given format
// ("markdown", "text", or "html"), returning a display title and the
// rendered content.
func (t *URLFetcher) Fetch(ctx context.Context, url, format string, timeoutSec int) (title, output string, err error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", "", fmt.Errorf("URL must start with http:// or https://")
	}
	if format != "text" && format != "markdown" && format != "html" {
		return "", "", fmt.Errorf("format must be 'text', 'markdown', or 'html'")
	}

	timeout := defaultTimeout
	if timeoutSec > 0 {
		timeout = time.Duration(timeoutSec) * time.Second
		if timeout > maxTimeout {
			timeout = maxTimeout
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, reqErr := http.NewRequestWithContext(reqCtx, "GET", url, nil)
	if reqErr != nil {
		return "", "", fmt.Errorf("failed to create request: %w", reqErr)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	switch format {
	case "markdown":
		req.Header.Set("Accept", "text/markdown;q=1.0, text/x-markdown;q=0.9, text/plain;q=0.8, text/html;q=0.7, */*;q=0.1")
	case "text":
		req.Header.Set("Accept", "text/plain;q=1.0, text/markdown;q=0.9, text/html;q=0.8, */*;q=0.1")
	case "html":
		req.Header.Set("Accept", "text/html;q=1.0, application/xhtml+xml;q=0.9, text/plain;q=0.8, text/markdown;q=0.7, */*;q=0.1")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("request failed with status code: %d", resp.StatusCode)
	}
	if resp.ContentLength > maxResponseSize {
		return "", "", fmt.Errorf("response too large (exceeds 5MB limit)")
	}

	limitedReader := io.LimitReader(resp.Body, maxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return "", "", fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > maxResponseSize {
		return "", "", fmt.Errorf("response too large (exceeds 5MB limit)")
	}

	content := string(body)
	contentType := resp.Header.Get("Content-Type")
	title = fmt.Sprintf("%s (%s)", url, contentType)

	switch format {
	case "markdown":
		if strings.Contains(contentType, "text/html") {
			output, err = convertHTMLToMarkdown(content)
			if err != nil {
				return "", "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
			}
		} else {
			output = content
		}
	case "text":
		if strings.Contains(contentType, "text/html") {
			output, err = extractTextFromHTML(content)
			if err != nil {
				return "", "", fmt.Errorf("failed to extract text from HTML: %w", err)
			}
		} else {
			output = content
		}
	default:
		output = content
	}

	return title, output, nil
}

// extractTextFromHTML extracts plain text from HTML, removing scripts, styles, and other non-content elements.
func extractTextFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	// Remove non-content elements
	doc.Find("script, style, noscript, iframe, object, embed").Remove()

	// Get text content
	text := doc.Text()

	// Clean up whitespace
	text = strings.TrimSpace(text)

	return text, nil
}

// convertHTMLToMarkdown converts HTML content to Markdown format.
func convertHTMLToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:    "atx",
		HorizontalRule:  "---",
		BulletListMarker: "-",
		CodeBlockStyle:  "fenced",
		EmDelimiter:     "*",
	})

	// Remove non-content elements
	converter.Remove("script", "style", "meta", "link")

	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", err
	}

	return markdown, nil
}
