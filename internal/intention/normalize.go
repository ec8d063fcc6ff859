// Package intention turns the free text a user sends into the submission
// that is shown for confirmation and forwarded to reviewers.
package intention

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ws and nonWS extend RE2's ASCII-only \s and \S to Unicode spaces such
// as NBSP, which phone keyboards insert around dashes.
const (
	ws    = `[\s\p{Z}\x{85}]`
	nonWS = `[^\s\p{Z}\x{85}]`
)

var (
	rxLabeled = regexp.MustCompile(`(?is)^` + ws + `*nome:` + ws + `*(.*` + nonWS + `)` + ws + `*\n+intenção:(.*)`)
	rxDash    = regexp.MustCompile(`(?s)^` + ws + `*(.+)` + ws + `-` + ws + `(.*)`)
	rxAnon    = regexp.MustCompile(`(?is)^` + ws + `*intenção anônima:` + ws + `*(.*)`)
)

// Submission is a normalized intention. Name is empty for anonymous ones.
type Submission struct {
	Name      string
	Intention string
}

// Anonymous reports whether the sender chose not to be identified.
func (s Submission) Anonymous() bool {
	return s.Name == ""
}

// Render formats the submission the way it is confirmed and forwarded.
func (s Submission) Render() string {
	if s.Anonymous() {
		return fmt.Sprintf("Intenção anônima: %s", s.Intention)
	}
	return fmt.Sprintf("Nome: %s\n\nIntenção: %s", s.Name, s.Intention)
}

// Normalize parses raw text. The labeled form ("Nome: ...\n\nIntenção: ...")
// wins over the dashed form ("Nome - intenção"); anything else is anonymous,
// with an optional "Intenção anônima:" label stripped. It never fails.
func Normalize(raw string) Submission {
	text := norm.NFC.String(raw)

	for _, rx := range []*regexp.Regexp{rxLabeled, rxDash} {
		if m := rx.FindStringSubmatch(text); m != nil {
			return Submission{
				Name:      strings.TrimSpace(m[1]),
				Intention: strings.TrimSpace(m[2]),
			}
		}
	}

	if m := rxAnon.FindStringSubmatch(text); m != nil {
		return Submission{Intention: strings.TrimSpace(m[1])}
	}
	return Submission{Intention: strings.TrimSpace(text)}
}
