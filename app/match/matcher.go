// Package match implements the title filter used by crawls: a keyword
// matches a title when the keyword's characters appear in the title in the
// same order, case-insensitively, with anything allowed in between.
package match

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

type Matcher struct {
	keyword   string
	re        *regexp.Regexp
	foldWidth bool
}

type Option func(*Matcher)

// WithWidthFolding maps full-width and half-width forms to their canonical
// width on both sides before matching, so "ＡＢＣ" matches "abc".
func WithWidthFolding() Option {
	return func(m *Matcher) {
		m.foldWidth = true
	}
}

func Compile(keyword string, opts ...Option) *Matcher {
	m := &Matcher{keyword: keyword}
	for _, opt := range opts {
		opt(m)
	}

	if m.foldWidth {
		keyword = width.Fold.String(keyword)
	}

	parts := make([]string, 0, len(keyword))
	for _, r := range keyword {
		parts = append(parts, regexp.QuoteMeta(string(r)))
	}

	// (?s) lets the gaps span line breaks inside titles.
	m.re = regexp.MustCompile("(?is)" + strings.Join(parts, ".*"))
	return m
}

func (m *Matcher) Test(title string) bool {
	if m.foldWidth {
		title = width.Fold.String(title)
	}
	return m.re.MatchString(title)
}

func (m *Matcher) Keyword() string {
	return m.keyword
}
