package common

import (
	"crypto/sha256"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"
)

var (
	markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

	// Query parameters with these prefixes carry tracking state only.
	trackingPrefixes = []string{"utm_", "icid", "gclid", "fbclid", "mc_cid", "mc_eid"}
)

// ContentHash computes SHA256 hash of content and returns hex string.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// SanitizeURL cleans common copy-paste artifacts from a URL: surrounding
// whitespace, markdown link syntax, and stray leading/trailing punctuation.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	// [text](url) -> url
	if matches := markdownLinkPattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	cleaned = strings.TrimRight(cleaned, ",.)}]\"'>;")
	cleaned = strings.TrimLeft(cleaned, "([<\"'")

	return strings.TrimSpace(cleaned)
}

// CanonicalURL returns a comparable form of rawURL: lower-case scheme and
// host, no "www.", no default port, no tracking parameters, no fragment.
// It returns "" when rawURL has no host.
func CanonicalURL(rawURL string) string {
	parsed, err := url.Parse(SanitizeURL(rawURL))
	if err != nil || parsed.Host == "" {
		return ""
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		scheme = "https"
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	port := parsed.Port()
	if port != "" && !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host = host + ":" + port
	}

	query := parsed.Query()
	for key := range query {
		lower := strings.ToLower(key)
		for _, prefix := range trackingPrefixes {
			if strings.HasPrefix(lower, prefix) {
				query.Del(key)
				break
			}
		}
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	out := scheme + "://" + host + path
	if encoded := query.Encode(); encoded != "" {
		out += "?" + encoded
	}
	return out
}

// DomainOf returns the registrable domain (eTLD+1) of rawURL, falling back
// to the bare host for IPs, localhost and unknown suffixes.
func DomainOf(rawURL string) string {
	parsed, err := url.Parse(SanitizeURL(rawURL))
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// DistinctDomains returns the sorted set of registrable domains of urls.
func DistinctDomains(urls []string) []string {
	seen := make(map[string]bool)
	for _, u := range urls {
		if d := DomainOf(u); d != "" {
			seen[d] = true
		}
	}
	domains := make([]string, 0, len(seen))
	for d := range seen {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// Slugify lower-cases text and joins alphanumeric runs with "-".
// Empty input yields "topic".
func Slugify(text string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		return "topic"
	}
	return slug
}

// SplitCSV splits a comma-separated list and drops empty items.
func SplitCSV(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
