package fetch

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

// Extract parses HTML and pulls out the SEO signals for one page.
// PageBytes, FetchDuration, and StatusCode are left for the caller to fill.
func Extract(pageURL string, body []byte) (seo.MetricsBundle, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return seo.MetricsBundle{}, fmt.Errorf("parse page url: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return seo.MetricsBundle{}, fmt.Errorf("parse html: %w", err)
	}

	bundle := seo.MetricsBundle{
		Title:           strings.TrimSpace(doc.Find("title").First().Text()),
		MetaDescription: metaContent(doc, "description"),
		MetaKeywords:    metaContent(doc, "keywords"),
		H1Tags:          headingTexts(doc, "h1"),
		H2Tags:          headingTexts(doc, "h2"),
		H3Tags:          headingTexts(doc, "h3"),
		Images:          extractImages(doc, base),
	}

	if canonical, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		bundle.CanonicalURL = strings.TrimSpace(canonical)
	}

	bundle.InternalLinks, bundle.ExternalLinks = extractLinks(doc, base)
	return bundle, nil
}

func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).Attr("content")
	return strings.TrimSpace(content)
}

func headingTexts(doc *goquery.Document, tag string) []string {
	var out []string
	doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

// extractLinks resolves every anchor href against the page base and splits
// them into de-duplicated internal and external sets. Internal means the
// resolved authority equals the page's; external means a different authority
// over absolute http(s). Anything else (mailto:, javascript:) is discarded.
func extractLinks(doc *goquery.Document, base *url.URL) (internal, external []string) {
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		full := resolved.String()
		if seen[full] {
			return
		}
		seen[full] = true

		if resolved.Host == base.Host {
			internal = append(internal, full)
		} else {
			external = append(external, full)
		}
	})
	return internal, external
}

func extractImages(doc *goquery.Document, base *url.URL) []seo.ImageInfo {
	var images []seo.ImageInfo
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}
		ref, err := url.Parse(src)
		if err != nil {
			return
		}
		alt, _ := s.Attr("alt")
		title, _ := s.Attr("title")
		images = append(images, seo.ImageInfo{
			Src:   base.ResolveReference(ref).String(),
			Alt:   alt,
			Title: title,
		})
	})
	return images
}
