// Package linkwrap implements the outbound text-transformation pipeline:
// affiliate link rewriting, promotional anchor repair, SMS-safe flattening,
// and length-based chunking. Every stage is a pure text transform and is
// idempotent, so the pipeline can safely run again on a retried job.
package linkwrap

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	asinRe     = regexp.MustCompile(`/(?:dp|gp/product)/([A-Z0-9]{10})`)
	mdLinkRe   = regexp.MustCompile(`\[([^\]]*)\]\((https?://[^\s)]+)\)`)
	plainURLRe = regexp.MustCompile(`https?://[^\s<>()\[\]]+`)
	anyURLRe   = regexp.MustCompile(`https?://\S+`)
	numberedRe = regexp.MustCompile(`(?m)^\s*\d+\.\s+\*\*([^*]+)\*\*.*$`)
	boldNameRe = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

// Hosts whose links must never be rewritten: already-monetized shorteners and
// our own checkout pages.
var skipHosts = map[string]bool{
	"geni.us":     true,
	"gumroad.com": true,
	"bit.ly":      true,
	"tinyurl.com": true,
	"google.com":  true,
	"youtube.com": true,
	"youtu.be":    true,
}

// Rewriter rewrites marketplace URLs with affiliate attribution.
type Rewriter struct {
	AssociateTag   string
	SYLPublisherID string
}

// RewriteAll rewrites every recognized URL in text: markdown-style links
// first, then bare URLs. Running it on its own output is a no-op.
func (r Rewriter) RewriteAll(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	text = mdLinkRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := mdLinkRe.FindStringSubmatch(m)
		return fmt.Sprintf("[%s](%s)", parts[1], r.rewriteURL(parts[2]))
	})

	return plainURLRe.ReplaceAllStringFunc(text, func(raw string) string {
		// Trailing punctuation belongs to the sentence, not the URL.
		trimmed := strings.TrimRight(raw, ".,;:!?")
		suffix := raw[len(trimmed):]
		return r.rewriteURL(trimmed) + suffix
	})
}

func (r Rewriter) rewriteURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	if skippedHost(host) || host == "go.shopmy.us" {
		return raw
	}

	if strings.Contains(host, "amazon.") {
		return r.rewriteAmazon(u, raw)
	}

	if r.SYLPublisherID != "" && isRetailHost(host) {
		return fmt.Sprintf("https://go.shopmy.us/p-%s?url=%s", r.SYLPublisherID, url.QueryEscape(raw))
	}
	return raw
}

// rewriteAmazon canonicalizes product URLs to /dp/ASIN and guarantees the
// tag parameter is present exactly once.
func (r Rewriter) rewriteAmazon(u *url.URL, raw string) string {
	if m := asinRe.FindStringSubmatch(u.Path); m != nil {
		q := u.Query()
		tag := q.Get("tag")
		if tag == "" {
			tag = r.AssociateTag
		}
		canonical := "https://www.amazon.com/dp/" + m[1]
		if tag != "" {
			canonical += "?tag=" + url.QueryEscape(tag)
		}
		return canonical
	}

	// Search and category pages keep their shape; only the tag is ensured.
	if r.AssociateTag == "" {
		return raw
	}
	q := u.Query()
	if q.Get("tag") != "" {
		return raw
	}
	q.Set("tag", r.AssociateTag)
	u.RawQuery = q.Encode()
	return u.String()
}

func skippedHost(host string) bool {
	for h := range skipHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func isRetailHost(host string) bool {
	for _, h := range []string{"sephora.com", "ulta.com", "nordstrom.com", "target.com", "walmart.com", "revolve.com", "shopbop.com"} {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// EnsureLinks synthesizes a marketplace search URL under each numbered
// product line when the reply contains no URL at all. Existing links are
// never touched.
func EnsureLinks(text string) string {
	if anyURLRe.MatchString(text) {
		return text
	}
	return numberedRe.ReplaceAllStringFunc(text, func(line string) string {
		m := boldNameRe.FindStringSubmatch(line)
		if m == nil {
			return line
		}
		query := url.QueryEscape(strings.TrimSpace(m[1]))
		return line + "\n   https://www.amazon.com/s?k=" + query
	})
}

// RepairProgramAnchor appends the program checkout URL once when the reply
// names the program but carries no link to it.
func RepairProgramAnchor(text, programName, programURL string) string {
	if programName == "" || programURL == "" {
		return text
	}
	lower := strings.ToLower(text)
	if !strings.Contains(lower, strings.ToLower(programName)) {
		return text
	}
	if strings.Contains(lower, strings.ToLower(programURL)) {
		return text
	}
	return strings.TrimRight(text, " \n") + "\n" + programURL
}

// FlattenSMS strips markdown that SMS clients render literally: emphasis
// markers are removed and [label](url) collapses to the bare URL. Runs of
// spaces and tabs collapse to one space; line structure is preserved.
func FlattenSMS(text string) string {
	text = mdLinkRe.ReplaceAllString(text, "$2")
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	out := strings.Join(lines, "\n")
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(out)
}

// closerLine keeps a reply from dead-ending on a raw URL, which reads as spam
// to carriers and users alike.
const closerLine = "Want the direct page or a cheaper alt?"

// EnsureNotLinkEnding appends a short closer when the reply's last token is a
// URL. Idempotent: a reply already ending with the closer is unchanged.
func EnsureNotLinkEnding(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasSuffix(trimmed, closerLine) {
		return text
	}
	fields := strings.Fields(trimmed)
	last := fields[len(fields)-1]
	if anyURLRe.MatchString(last) && strings.HasPrefix(last, "http") {
		return trimmed + "\n" + closerLine
	}
	return text
}
