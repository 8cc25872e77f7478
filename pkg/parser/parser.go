package parser

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/dtnitsch/news-digest/internal/common"
	"github.com/dtnitsch/news-digest/models"
)

var (
	// ErrNoContent is returned when a page has no readable text blocks.
	ErrNoContent = errors.New("parser: no readable content")
	// ErrNoURL is returned when no URL is given and the page declares none.
	ErrNoURL = errors.New("parser: page has no url")
)

const blockSelector = "h1,h2,h3,h4,p,li,blockquote"

// metaDateSelectors lists page metadata that commonly carries the
// publication date, most specific first.
var metaDateSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="article:published_time"]`, "content"},
	{`meta[name="article:published_time"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`meta[name="pubdate"]`, "content"},
	{`meta[name="publish-date"]`, "content"},
	{`meta[name="date"]`, "content"},
	{`meta[name="dc.date"]`, "content"},
	{`time[datetime]`, "datetime"},
}

// Document is the readable content of one HTML page.
type Document struct {
	URL      string
	Title    string
	SiteName string
	Blocks   []models.ContentBlock

	// Published is set when readability found a publication time.
	Published *time.Time
	// MetaDates holds raw date strings from page metadata, in preference order.
	MetaDates []string
}

// Text joins the document's blocks into plain text.
func (d *Document) Text() string {
	return models.JoinBlocks(d.Blocks)
}

// Page converts the document into a SourcePage fetched at position order.
func (d *Document) Page(order int) models.SourcePage {
	return models.SourcePage{
		URL:        d.URL,
		Domain:     common.DomainOf(d.URL),
		Title:      d.Title,
		SiteName:   d.SiteName,
		Content:    strings.TrimSpace(d.Text()),
		FetchOrder: order,
	}
}

type Parser struct{}

// Parse uses go-readability to find the main article content and goquery
// to split it into text blocks. When readability yields nothing usable the
// raw document body is used instead. An empty rawURL is replaced by the
// page's canonical link or og:url.
func (p *Parser) Parse(rawURL, html string) (*Document, error) {
	raw, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to read html: %w", err)
	}

	if strings.TrimSpace(rawURL) == "" {
		rawURL = declaredURL(raw)
		if rawURL == "" {
			return nil, ErrNoURL
		}
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url %q: %w", rawURL, err)
	}

	doc := &Document{
		URL:       rawURL,
		MetaDates: metaDates(raw),
	}

	rp := readability.NewParser()
	article, err := rp.Parse(strings.NewReader(html), parsedURL)
	if err == nil {
		doc.Title = normalizeText(article.Title)
		doc.SiteName = normalizeText(article.SiteName)
		doc.Published = article.PublishedTime

		clean, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
		if err == nil {
			doc.Blocks = extractBlocks(clean.Selection)
		}
	}

	if len(doc.Blocks) == 0 {
		doc.Blocks = extractBlocks(raw.Find("body"))
	}
	if doc.Title == "" {
		doc.Title = fallbackTitle(raw)
	}
	if doc.SiteName == "" {
		doc.SiteName = normalizeText(attr(raw, `meta[property="og:site_name"]`, "content"))
	}

	if len(doc.Blocks) == 0 {
		return doc, ErrNoContent
	}
	return doc, nil
}

func extractBlocks(sel *goquery.Selection) []models.ContentBlock {
	var content []models.ContentBlock
	sel.Find(blockSelector).Each(func(i int, s *goquery.Selection) {
		// Nested matches (p inside li, p inside blockquote) are read once
		// through their outer block.
		if s.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		text := normalizeText(s.Text())
		if text == "" {
			return
		}
		content = append(content, models.ContentBlock{
			Type: goquery.NodeName(s),
			Text: text,
		})
	})
	return content
}

func metaDates(doc *goquery.Document) []string {
	var out []string
	for _, m := range metaDateSelectors {
		doc.Find(m.selector).Each(func(i int, s *goquery.Selection) {
			if v, ok := s.Attr(m.attr); ok && strings.TrimSpace(v) != "" {
				out = append(out, strings.TrimSpace(v))
			}
		})
	}
	return out
}

func declaredURL(doc *goquery.Document) string {
	if u := strings.TrimSpace(attr(doc, `link[rel="canonical"]`, "href")); u != "" {
		return u
	}
	return strings.TrimSpace(attr(doc, `meta[property="og:url"]`, "content"))
}

func fallbackTitle(doc *goquery.Document) string {
	if t := normalizeText(attr(doc, `meta[property="og:title"]`, "content")); t != "" {
		return t
	}
	if t := normalizeText(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return normalizeText(doc.Find("h1").First().Text())
}

func attr(doc *goquery.Document, selector, name string) string {
	v, _ := doc.Find(selector).First().Attr(name)
	return v
}

// normalizeText cleans up a string by trimming space and removing excess newlines.
func normalizeText(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.Join(strings.Fields(scanner.Text()), " ")
		if line != "" {
			b.WriteString(line)
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}
