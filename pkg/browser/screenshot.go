package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/net/html"
)

// Capture writes a full-page PNG and a full HTML dump of the active page as
// a timestamped file pair under dir, returning both paths.
func Capture(page playwright.Page, dir string) (pngPath, htmlPath string, err error) {
	content, err := page.Content()
	if err != nil {
		return "", "", fmt.Errorf("failed to read page HTML: %w", err)
	}

	title, titleErr := page.Title()
	if titleErr != nil || strings.TrimSpace(title) == "" {
		title = htmlTitle(content)
	}

	base := artifactBaseName(title, time.Now().UTC())
	pngPath = filepath.Join(dir, base+".png")
	htmlPath = filepath.Join(dir, base+".html")

	if _, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Path:     playwright.String(pngPath),
	}); err != nil {
		return "", "", fmt.Errorf("failed to capture screenshot: %w", err)
	}

	if err := os.WriteFile(htmlPath, []byte(content), 0600); err != nil {
		return "", "", fmt.Errorf("failed to write HTML dump: %w", err)
	}

	return pngPath, htmlPath, nil
}

// htmlTitle extracts the <title> element from an HTML dump. Used when the
// page reports no title of its own.
func htmlTitle(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = n.FirstChild.Data
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(title)
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// artifactBaseName builds <sanitized-title>-<ISO timestamp with ':' and '.'
// replaced> so the pair sorts chronologically and is safe on any filesystem.
func artifactBaseName(title string, now time.Time) string {
	name := unsafeNameChars.ReplaceAllString(title, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		name = "untitled"
	}

	timestamp := strings.NewReplacer(":", "-", ".", "-").Replace(now.Format(time.RFC3339))
	return name + "-" + timestamp
}
