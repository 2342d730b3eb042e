package marc

import (
	"regexp"
	"strings"
)

// ArticleSet is the list of leading articles for one language.
type ArticleSet struct {
	Language string
	Articles []string
}

// articleTable is evaluated top to bottom and, within a language, left to
// right. The first match wins, so "la" is tried as French before Spanish.
var articleTable = []ArticleSet{
	{Language: "en", Articles: []string{"the", "a", "an"}},
	{Language: "fr", Articles: []string{"le", "la", "les", "l'", "un", "une", "des"}},
	{Language: "es", Articles: []string{"el", "la", "los", "las", "un", "una", "unos", "unas"}},
	{Language: "de", Articles: []string{"der", "die", "das", "dem", "den", "des", "ein", "eine", "einen", "einem", "eines"}},
	{Language: "ru", Articles: []string{}},
	{Language: "pt", Articles: []string{"o", "a", "os", "as", "um", "uma", "uns", "umas"}},
}

var articlePatterns = compileArticles(articleTable)

func compileArticles(table []ArticleSet) []*regexp.Regexp {
	var patterns []*regexp.Regexp
	for _, set := range table {
		for _, article := range set.Articles {
			patterns = append(patterns, regexp.MustCompile(`(?i)^`+regexp.QuoteMeta(article)+`[\s\p{Z}]+`))
		}
	}
	return patterns
}

// Articles returns a copy of the article table in evaluation order.
func Articles() []ArticleSet {
	out := make([]ArticleSet, len(articleTable))
	for i, set := range articleTable {
		out[i] = ArticleSet{Language: set.Language, Articles: append([]string(nil), set.Articles...)}
	}
	return out
}

// StripLeadingArticle removes the first leading article found in text and
// returns the trimmed remainder. Text without a leading article is returned
// trimmed but otherwise unchanged.
func StripLeadingArticle(text string) string {
	text = strings.TrimSpace(text)
	for _, pattern := range articlePatterns {
		if loc := pattern.FindStringIndex(text); loc != nil {
			return strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}
