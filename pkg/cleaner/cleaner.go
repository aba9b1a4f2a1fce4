// Package cleaner turns raw model output into a short, link-free explanation.
package cleaner

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/abdhe/studyhub-assist/pkg/textproc"
)

// Variant names accepted by New.
const (
	VariantBasic    = "basic"
	VariantExtended = "extended"
)

var (
	// BasicDeny drops sentences that carry links.
	BasicDeny = regexp.MustCompile(`(?i)(http|www)`)

	// ExtendedDeny also drops promotional and contact boilerplate and phone-like digit runs.
	ExtendedDeny = regexp.MustCompile(`(?i)(https?://|www\.|http|click here|for more information|support|call|visit|details|gallery|confidential|samaritans|email|\d{3,})`)
)

// Cleaner filters and bounds model output.
type Cleaner struct {
	MinSentenceChars int            // shorter sentences are noise
	MaxSentences     int            // sentences kept after filtering
	MinWords         int            // below this, a concept gets the generic explanation
	Deny             *regexp.Regexp // sentences matching this are dropped
	PrefixConcept    bool           // prefix "Concept: " when the text does not start with it
}

// New returns the cleaner for variant. Unknown variants get the extended one.
func New(variant string) Cleaner {
	c := Cleaner{
		MinSentenceChars: 15,
		MaxSentences:     4,
		MinWords:         12,
		Deny:             ExtendedDeny,
		PrefixConcept:    true,
	}
	if strings.EqualFold(variant, VariantBasic) {
		c.MinSentenceChars = 12
		c.Deny = BasicDeny
	}
	return c
}

// Clean keeps the first MaxSentences sentences that are long enough and do not
// match Deny, joined by single spaces and terminated by a period.
//
// With a non-empty concept the result is never empty: output under MinWords
// words is replaced by a generic sentence about the concept.
func (c Cleaner) Clean(raw, concept string) string {
	var kept []string
	for _, s := range textproc.SplitSentences(raw) {
		s = strings.TrimSpace(s)
		if c.Deny != nil && c.Deny.MatchString(s) {
			continue
		}
		if utf8.RuneCountInString(s) < c.MinSentenceChars {
			continue
		}
		kept = append(kept, s)
		if c.MaxSentences > 0 && len(kept) == c.MaxSentences {
			break
		}
	}
	text := strings.TrimSpace(strings.Join(kept, " "))

	concept = strings.TrimSpace(concept)
	if concept != "" && len(strings.Fields(text)) < c.MinWords {
		text = Generic(concept)
	}

	if text != "" && !strings.HasSuffix(text, ".") {
		text += "."
	}

	if c.PrefixConcept && concept != "" && !strings.HasPrefix(strings.ToLower(text), strings.ToLower(concept)) {
		text = Capitalize(concept) + ": " + text
	}
	return text
}

// Generic is the stand-in explanation used when the model says too little.
func Generic(concept string) string {
	return fmt.Sprintf(
		"%s is an important concept in computer science. It refers to the use, design, or understanding of %s in various applications.",
		Capitalize(concept), strings.ToLower(concept),
	)
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
