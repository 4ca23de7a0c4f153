package mailbox

import (
	"html"
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message/charset"
)

var (
	angleAddrRe = regexp.MustCompile(`<([^>]+)>`)
	htmlTagRe   = regexp.MustCompile(`<[^>]+>`)
	spaceRe     = regexp.MustCompile(`\s+`)

	// US-style numbers with optional +1, dashes, dots, spaces or parens
	phoneRe = regexp.MustCompile(`\+?1?[-.\s]?\(?[2-9]\d{2}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b|\b[2-9]\d{2}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
)

// ParseFrom extracts the display name and address from a From header.
// The angle-bracket form wins; otherwise the whole header is taken as the address.
// A malformed address comes back empty.
func ParseFrom(raw string) (name, address string) {
	raw = strings.TrimSpace(decodeHeader(raw))

	if m := angleAddrRe.FindStringSubmatch(raw); m != nil {
		address = strings.ToLower(strings.TrimSpace(m[1]))
		name = strings.TrimSpace(angleAddrRe.ReplaceAllString(raw, ""))
		name = strings.Trim(name, `"' `)
	} else {
		address = strings.ToLower(raw)
		if local, _, ok := strings.Cut(address, "@"); ok {
			name = local
		}
	}

	if !strings.Contains(address, "@") {
		address = ""
	}
	if name == "" {
		name = "Unknown"
	}
	return Truncate(name, maxNameLen), address
}

// decodeHeader resolves RFC 2047 encoded words, leaving the input as is on failure
func decodeHeader(raw string) string {
	dec := mime.WordDecoder{CharsetReader: charset.Reader}
	decoded, err := dec.DecodeHeader(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ExtractPhone returns the first US-style phone number found in text
func ExtractPhone(text string) string {
	return Truncate(strings.TrimSpace(phoneRe.FindString(text)), maxPhoneLen)
}

// StripHTML removes tags, unescapes entities and collapses whitespace
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	text := htmlTagRe.ReplaceAllString(s, " ")
	text = html.UnescapeString(text)
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// CombineBodies joins the plain part and the stripped HTML part.
// Some senders put the real content only in HTML, so both are kept when present.
func CombineBodies(plain, htmlBody string) string {
	plain = strings.TrimSpace(plain)
	stripped := StripHTML(htmlBody)
	switch {
	case plain != "" && stripped != "":
		return plain + " " + stripped
	case plain != "":
		return plain
	default:
		return stripped
	}
}

// Truncate cuts s to at most n runes
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// newCandidate applies the common normalization for every mailbox provider
func newCandidate(externalID, from, subject, plain, htmlBody string) Candidate {
	name, address := ParseFrom(from)
	body := CombineBodies(plain, htmlBody)
	return Candidate{
		ExternalID:    strings.TrimSpace(externalID),
		SenderName:    name,
		SenderAddress: address,
		Phone:         ExtractPhone(body),
		Subject:       Truncate(strings.TrimSpace(decodeHeader(subject)), MaxSubjectLen),
		BodySnippet:   strings.TrimSpace(Truncate(body, MaxBodySnippetLen)),
	}
}
