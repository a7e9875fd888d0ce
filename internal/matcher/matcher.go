package matcher

import (
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"
	"github.com/mahyarmirrashed/dirclean/internal/scanner"
)

// Matcher tests file basenames for a keyword substring.
type Matcher struct {
	keyword string
	g       glob.Glob
}

// New creates a Matcher for keyword. The keyword is quoted, so glob
// metacharacters in it match literally and the comparison is case-sensitive.
// An empty keyword matches every name. A keyword that is not valid UTF-8
// cannot be compiled as a glob and is compared byte-wise instead.
func New(keyword string) (*Matcher, error) {
	if !utf8.ValidString(keyword) {
		return &Matcher{keyword: keyword}, nil
	}
	g, err := glob.Compile("*" + glob.QuoteMeta(keyword) + "*")
	if err != nil {
		return nil, err
	}
	return &Matcher{keyword: keyword, g: g}, nil
}

// Keyword returns the keyword the matcher was built from.
func (m *Matcher) Keyword() string {
	return m.keyword
}

// Match returns true if name contains the keyword.
func (m *Matcher) Match(name string) bool {
	if m.g == nil {
		return strings.Contains(name, m.keyword)
	}
	return m.g.Match(name)
}

// Filter returns the entries whose basename contains the keyword, keeping their order.
func (m *Matcher) Filter(entries []scanner.Entry) []scanner.Entry {
	var matches []scanner.Entry
	for _, e := range entries {
		if m.Match(e.Name) {
			matches = append(matches, e)
		}
	}
	return matches
}

// Find compiles keyword and filters entries with it.
func Find(entries []scanner.Entry, keyword string) ([]scanner.Entry, error) {
	m, err := New(keyword)
	if err != nil {
		return nil, err
	}
	return m.Filter(entries), nil
}
