package search

import (
	"strings"
	"unicode"
)

// RediSearch refuses prefix and suffix expansions shorter than this.
const minAffixLen = 2

// HasWildcard reports whether the query should be run as a glob.
func HasWildcard(text string) bool {
	return strings.Contains(text, "*")
}

// Terms splits free text into lowercase search terms.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return fields
}

// fuzzyDistance mirrors an AUTO fuzziness: exact for short terms, one edit up
// to five characters, two beyond that.
func fuzzyDistance(term string) int {
	n := len([]rune(term))
	switch {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// globPattern wraps the user's pattern so it matches anywhere in the name.
func globPattern(text string) string {
	p := strings.ToLower(strings.TrimSpace(text))
	if !strings.HasPrefix(p, "*") {
		p = "*" + p
	}
	if !strings.HasSuffix(p, "*") {
		p += "*"
	}
	for strings.Contains(p, "**") {
		p = strings.ReplaceAll(p, "**", "*")
	}
	return p
}

// escapeTag escapes a value for use inside a RediSearch TAG clause.
func escapeTag(v string) string {
	var b strings.Builder
	for _, r := range v {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Searchable reports whether text can match anything at all.
func Searchable(text string) bool {
	if HasWildcard(text) {
		return strings.Trim(text, "* \t") != ""
	}
	return len(Terms(text)) > 0
}

// tagPattern quotes a lowercased glob for a TAG wildcard clause.
func tagPattern(glob string) string {
	return "w'" + strings.ReplaceAll(glob, "'", `\'`) + "'"
}

// wholeQuery is the trimmed, lowercased query used by the whole-string
// prefix, suffix and contains alternatives.
func wholeQuery(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// BuildRedisQuery renders q as a RediSearch DIALECT 2 query string. Free text
// becomes one union: a fuzzy/affix group per term, plus prefix, suffix and
// contains wildcards over the whole query. Any one alternative is enough.
func BuildRedisQuery(q Query) string {
	parts := []string{"@owner_id:{" + escapeTag(q.OwnerID.String()) + "}"}
	if q.StorageType != "" {
		parts = append(parts, "@storage_type:{"+escapeTag(string(q.StorageType))+"}")
	}
	if q.Filetype != "" {
		parts = append(parts, "@filetype:{"+escapeTag(strings.ToLower(q.Filetype))+"}")
	}

	if HasWildcard(q.Text) {
		parts = append(parts, "@filename_lc:{"+tagPattern(globPattern(q.Text))+"}")
		return strings.Join(parts, " ")
	}

	var union []string
	for _, t := range Terms(q.Text) {
		alts := []string{t}
		if len([]rune(t)) >= minAffixLen {
			alts = append(alts, t+"*", "*"+t, "*"+t+"*")
		}
		switch fuzzyDistance(t) {
		case 1:
			alts = append(alts, "%"+t+"%")
		case 2:
			alts = append(alts, "%%"+t+"%%")
		}
		union = append(union, "@filename:("+strings.Join(alts, "|")+")")
	}
	if whole := wholeQuery(q.Text); len([]rune(whole)) >= minAffixLen {
		for _, glob := range []string{whole + "*", "*" + whole, "*" + whole + "*"} {
			union = append(union, "@filename_lc:{"+tagPattern(glob)+"}")
		}
	}
	if len(union) > 0 {
		parts = append(parts, "("+strings.Join(union, " | ")+")")
	}
	return strings.Join(parts, " ")
}
