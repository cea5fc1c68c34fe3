// Package textnorm turns free-form medication text into comparable tokens.
// It is shared by the catalog index, the resolver and the suggestion ranker so
// that a query and a catalog label are always normalized the same way.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Pre-compiled patterns, applied in declaration order by Normalize
var (
	decimalCommaRegex = regexp.MustCompile(`(\d),(\d)`)
	digitLetterRegex  = regexp.MustCompile(`(\d)(\p{L})`)
	letterDigitRegex  = regexp.MustCompile(`(\p{L})(\d)`)
	punctuationRegex  = regexp.MustCompile(`[\x{00B5}\x{03BC},;:()\[\]{}/\\|+\-_*"'!?]`)
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	numericTokenRegex = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

// noiseWords are packaging and dosage-form filler words that never discriminate between products
var noiseWords = map[string]struct{}{
	"stk": {}, "stk.": {}, "blister": {}, "blisterpakning": {}, "pakning": {}, "blist": {},
	"modi": {}, "modif": {}, "modif.": {}, "modifisert": {},
	"kap": {}, "kaps": {}, "kapsel": {}, "tab": {}, "tablett": {},
	"mikstur": {}, "susp": {}, "inj": {}, "inf": {}, "oppl": {}, "pulv": {}, "pulver": {},
	"væske": {}, "aerosol": {}, "inh": {}, "spray": {}, "dråper": {}, "dr": {},
	"depot": {}, "retard": {}, "sr": {}, "cr": {}, "xr": {}, "frisett": {}, "fri": {},
}

// Normalize lowercases the text and rewrites it into a single-spaced form where
// numbers and words are separate and decimal commas read as periods.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	// A Caser holds state, so each call gets its own
	lower := cases.Lower(language.Norwegian).String(norm.NFC.String(text))

	s := decimalCommaRegex.ReplaceAllString(lower, "$1.$2")
	s = digitLetterRegex.ReplaceAllString(s, "$1 $2")
	s = letterDigitRegex.ReplaceAllString(s, "$1 $2")
	s = punctuationRegex.ReplaceAllString(s, " ")
	s = whitespaceRegex.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// Tokenize normalizes the text and splits it into matchable tokens.
// Noise words and single-character words are dropped, numbers are always kept,
// and a token repeated immediately after itself is kept once.
func Tokenize(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return []string{}
	}

	tokens := make([]string, 0, 8)
	for _, tok := range strings.Split(normalized, " ") {
		if tok == "" || IsNoiseWord(tok) {
			continue
		}
		if len([]rune(tok)) < 2 && !IsNumericToken(tok) {
			continue
		}
		if n := len(tokens); n > 0 && tokens[n-1] == tok {
			continue
		}
		tokens = append(tokens, tok)
	}

	return tokens
}

// IsNumericToken reports whether the token is digits with at most one decimal part.
func IsNumericToken(tok string) bool {
	return numericTokenRegex.MatchString(tok)
}

// IsNoiseWord reports whether the normalized token is a filler word.
func IsNoiseWord(tok string) bool {
	_, ok := noiseWords[tok]
	return ok
}

// TokenMatches applies the shared matching rule: a numeric needle must equal one
// of the hay tokens, any other needle must be a prefix of one.
func TokenMatches(hayTokens []string, needle string) bool {
	needle = strings.Replace(needle, ",", ".", 1)
	if needle == "" {
		return false
	}

	if IsNumericToken(needle) {
		for _, ht := range hayTokens {
			if ht == needle {
				return true
			}
		}
		return false
	}

	for _, ht := range hayTokens {
		if strings.HasPrefix(ht, needle) {
			return true
		}
	}
	return false
}

// ContainsToken reports whether tok appears verbatim among tokens.
func ContainsToken(tokens []string, tok string) bool {
	for _, t := range tokens {
		if t == tok {
			return true
		}
	}
	return false
}
