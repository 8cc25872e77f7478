// Package detector tags intake pages with cheap signals: language,
// publication date and source kind.
package detector

import (
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pemistahl/lingua-go"

	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/parser"
)

// languageSample bounds how much text is handed to the language model.
const languageSample = 2000

// maxFutureSkew is how far past now a publication date may lie before it
// is treated as bogus.
const maxFutureSkew = 24 * time.Hour

var supportedLanguages = []lingua.Language{
	lingua.English,
	lingua.French,
	lingua.German,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
}

// Detector is safe for concurrent use once built.
type Detector struct {
	languages lingua.LanguageDetector
	loc       *time.Location
	now       func() time.Time
}

// New builds a Detector that interprets zone-less dates in loc.
func New(loc *time.Location) *Detector {
	if loc == nil {
		loc = time.UTC
	}
	return &Detector{
		languages: lingua.NewLanguageDetectorBuilder().
			FromLanguages(supportedLanguages...).
			Build(),
		loc: loc,
		now: time.Now,
	}
}

// Enrich fills the language, publication date and source kind of page.
func (d *Detector) Enrich(page *models.SourcePage, doc *parser.Document) {
	page.Language = d.Language(page.Content)
	page.SourceKind = SourceKind(page.URL)

	candidates := doc.MetaDates
	if doc.Published != nil && !doc.Published.IsZero() {
		candidates = append([]string{doc.Published.Format(time.RFC3339)}, candidates...)
	}
	if t, ok := d.PublishedDate(candidates...); ok {
		page.PublishedAt = &t
	}
}

// Language returns the lower-case ISO 639-1 code of text, or "" when the
// language cannot be told.
func (d *Detector) Language(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return ""
	}
	if len(runes) > languageSample {
		runes = runes[:languageSample]
	}
	lang, ok := d.languages.DetectLanguageOf(string(runes))
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

// PublishedDate returns the first candidate that parses to a plausible
// date. Dates more than a day in the future are skipped.
func (d *Detector) PublishedDate(candidates ...string) (time.Time, bool) {
	limit := d.now().Add(maxFutureSkew)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		t, err := dateparse.ParseIn(c, d.loc)
		if err != nil || t.IsZero() || t.After(limit) {
			continue
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

// SourceKind classifies a page by its host: gov, edu, academic, news,
// blog, docs, mobile or commercial.
func SourceKind(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)

	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".mil") || strings.Contains(host, ".gov.") {
		return "gov"
	}
	if strings.HasSuffix(host, ".edu") || strings.Contains(host, ".ac.") {
		return "edu"
	}

	academicDomains := []string{
		"arxiv.org", "doi.org", "pubmed.ncbi.nlm.nih.gov",
		"researchgate.net", "biorxiv.org", "medrxiv.org", "ssrn.com",
	}
	for _, domain := range academicDomains {
		if strings.HasSuffix(host, domain) {
			return "academic"
		}
	}

	newsDomains := []string{
		"reuters", "apnews", "bbc", "nytimes", "theguardian", "ft.com",
		"bloomberg", "wsj", "washingtonpost", "techcrunch", "theverge",
		"arstechnica", "wired", "news",
	}
	for _, news := range newsDomains {
		if strings.Contains(host, news) {
			return "news"
		}
	}

	if strings.HasPrefix(host, "blog.") || strings.Contains(path, "/blog/") {
		return "blog"
	}
	if strings.HasPrefix(host, "docs.") || strings.Contains(path, "/docs/") {
		return "docs"
	}
	if strings.HasPrefix(host, "m.") || strings.HasPrefix(host, "mobile.") {
		return "mobile"
	}
	return "commercial"
}
