// Package search validates user search input and turns it into a Postgres
// tsquery expression.
package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

const (
	MinQueryLength = 2
	MaxQueryLength = 100
	MaxTokens      = 10
	// ResultLimit caps results per entity type.
	ResultLimit = 20
)

func allowedRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
		return true
	}
	switch r {
	case '-', '\'', '@', '.', '_':
		return true
	}
	return false
}

// Validate checks length and character set. The query is trimmed first.
func Validate(q string) (string, error) {
	q = strings.TrimSpace(q)
	n := utf8.RuneCountInString(q)
	if n < MinQueryLength {
		return "", domain.Invalid("q", "must be at least 2 characters")
	}
	if n > MaxQueryLength {
		return "", domain.Invalid("q", "must be at most 100 characters")
	}
	for _, r := range q {
		if !allowedRune(r) {
			return "", domain.Invalid("q", "contains invalid characters")
		}
	}
	return q, nil
}

// Tokens splits a validated query into search terms, dropping fragments made
// only of punctuation.
func Tokens(q string) []string {
	out := []string{}
	for _, f := range strings.Fields(strings.ToLower(q)) {
		f = strings.Trim(f, "-'@._")
		if f == "" {
			continue
		}
		out = append(out, f)
		if len(out) == MaxTokens {
			break
		}
	}
	return out
}

// ToTSQuery builds a prefix-match conjunction such as 'water':* & 'damage':*.
// Each term is quoted so punctuation inside it cannot become tsquery syntax.
func ToTSQuery(tokens []string) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		parts = append(parts, "'"+strings.ReplaceAll(t, "'", "''")+"':*")
	}
	return strings.Join(parts, " & ")
}

// Build validates q and returns its tsquery expression.
func Build(q string) (string, error) {
	q, err := Validate(q)
	if err != nil {
		return "", err
	}
	tokens := Tokens(q)
	if len(tokens) == 0 {
		return "", domain.Invalid("q", "must contain a letter or digit")
	}
	return ToTSQuery(tokens), nil
}
