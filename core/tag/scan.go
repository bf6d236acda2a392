package tag

import (
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// Scan is what a reader reports when a card is tapped.
type Scan struct {
	Records []Record
	ID      []byte // hardware identifier
	Serial  string // hardware serial, when the reader gives no ID bytes
}

var idParam = regexp.MustCompile(`(?:^|[?&\s])id=([^&#\s]+)`)

// CardID returns the normalized card identifier carried by the scan, or ""
// when the scan carries none.
func (s Scan) CardID() string {
	content, hasContent := s.content()
	if hasContent {
		if id := extractID(content); id != "" {
			return NormalizeCardID(id)
		}
	}
	if hw := s.hardwareID(); hw != "" {
		return NormalizeCardID(hw)
	}
	// a bare identifier written as text
	return NormalizeCardID(content)
}

// content decodes the first text record, else the first URI record.
func (s Scan) content() (string, bool) {
	for _, rec := range s.Records {
		if rec.isText() {
			if txt, err := rec.Text(); err == nil {
				return txt, true
			}
		}
	}
	for _, rec := range s.Records {
		if rec.isURI() {
			if uri, err := rec.URI(); err == nil {
				return uri, true
			}
		}
	}
	return "", false
}

func (s Scan) hardwareID() string {
	if len(s.ID) > 0 {
		return hex.EncodeToString(s.ID)
	}
	return s.Serial
}

// extractID reads the "id" query parameter of content, preferring a well-formed URI's own query.
func extractID(content string) string {
	content = strings.TrimSpace(content)
	if u, err := url.Parse(content); err == nil && u.IsAbs() {
		if id := u.Query().Get("id"); id != "" {
			return id
		}
	}
	m := idParam.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	if id, err := url.QueryUnescape(m[1]); err == nil {
		return id
	}
	return m[1]
}

// NormalizeCardID removes all whitespace and lowercases id.
func NormalizeCardID(id string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, id)
}
