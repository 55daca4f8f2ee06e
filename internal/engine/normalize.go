package engine

import (
	"strings"
	"unicode"
)

// renewalKeywords and priceIncreaseKeywords are matched against the lowercased
// subject+body of an email. The sets cover English and the Scandinavian
// spellings seen in real provider emails.
var (
	renewalKeywords       = []string{"renew", "förnya", "fornyelse", "renewal"}
	priceIncreaseKeywords = []string{"price increase", "höjs", "higher rate"}
)

// NormalizeDescription reduces a statement description to a comparison key:
// lowercased, with everything that is not a letter or digit stripped. Two
// descriptions with the same alphanumeric content collide to the same key.
func NormalizeDescription(description string) string {
	var b strings.Builder
	b.Grow(len(description))
	for _, r := range description {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// DeriveProviderName extracts a display name from free text: non-letter,
// non-space characters become spaces, and the first remaining token is
// capitalized. Text with no alphabetic token falls back to a title-cased copy
// of the trimmed input.
func DeriveProviderName(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, text)

	for _, token := range strings.Fields(cleaned) {
		return capitalize(token)
	}
	return titleCase(strings.TrimSpace(text))
}

// ClassifyEmail tags an email by keyword signal. Tags are independent; both,
// either, or neither may apply.
func ClassifyEmail(subject, body string) []string {
	text := strings.ToLower(subject + " " + body)

	var tags []string
	if containsAny(text, renewalKeywords) {
		tags = append(tags, TagRenewalNotice)
	}
	if containsAny(text, priceIncreaseKeywords) {
		tags = append(tags, TagPriceIncrease)
	}
	return tags
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// capitalize uppercases the first rune and lowercases the rest.
func capitalize(token string) string {
	runes := []rune(strings.ToLower(token))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// titleCase uppercases the first letter of every letter run and lowercases
// the rest, leaving all other characters and spacing untouched.
func titleCase(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inWord := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			if inWord {
				r = unicode.ToLower(r)
			} else {
				r = unicode.ToUpper(r)
			}
			inWord = true
		} else {
			inWord = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
