package material

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	pdf "github.com/dslipak/pdf"
	"golang.org/x/net/html"

	"github.com/chineduoko/exam-rag/internal/exam"
)

// Extensions accepted for course material. Anything else is rejected
// before any download happens.
var supportedExtensions = []string{".pdf", ".md", ".txt", ".html", ".htm"}

// IsSupportedURL reports whether the URL ends in a recognized document
// extension.
func IsSupportedURL(rawURL string) bool {
	l := strings.ToLower(strings.TrimSpace(rawURL))
	for _, ext := range supportedExtensions {
		if strings.HasSuffix(l, ext) {
			return true
		}
	}
	return false
}

// FetchDocument downloads the document bytes. Transport failures and
// non-2xx statuses surface as fetch errors.
func FetchDocument(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", exam.ErrValidation, rawURL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", exam.ErrFetch, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: download %s: status %d", exam.ErrFetch, rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body %s: %v", exam.ErrFetch, rawURL, err)
	}
	return data, nil
}

// ExtractText converts raw document bytes to plain text based on the
// source extension.
func ExtractText(rawURL string, data []byte) (string, error) {
	l := strings.ToLower(rawURL)

	var text string
	switch {
	case strings.HasSuffix(l, ".pdf"):
		extracted, err := extractTextFromPDF(data)
		if err != nil {
			return "", fmt.Errorf("%w: pdf %s: %v", exam.ErrFetch, rawURL, err)
		}
		text = extracted

	case strings.HasSuffix(l, ".html"), strings.HasSuffix(l, ".htm"):
		text = extractMainText(string(data))

	default:
		text = string(data)
	}

	return sanitizeUTF8(strings.TrimSpace(text)), nil
}

// extractTextFromPDF pulls text page by page. A page that cannot be
// extracted contributes empty text instead of aborting the document.
func extractTextFromPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n"), nil
}

func extractMainText(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node, bool)

	walk = func(n *html.Node, skip bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				skip = true
			}
		}

		if n.Type == html.TextNode && !skip {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				b.WriteString(t)
				b.WriteString("\n")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, skip)
		}
	}
	walk(doc, false)

	lines := strings.Split(b.String(), "\n")
	var filtered []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" && len(l) > 1 {
			filtered = append(filtered, l)
		}
	}
	return strings.Join(filtered, "\n")
}

// remove bytes inválidos para UTF-8 (evita erro 22021 no Postgres)
func sanitizeUTF8(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		b.WriteRune(r)
		s = s[size:]
	}
	return b.String()
}
