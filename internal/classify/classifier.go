// Package classify guesses which feature a screenshot documents from its
// path and file name alone. It is pure: no I/O, no store access, and the
// same input always yields the same guess.
package classify

import (
	"os"
	"path"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/competitorlens/lens-cli/internal/model"
)

// Guess is the zero-or-one feature guess for a file. Feature is empty iff
// Method is MatchNone; callers must then leave the screenshot unassigned and
// flag it for manual review rather than defaulting to a catch-all feature.
type Guess struct {
	Feature  string
	Category string
	Method   model.ClassMethod
}

// Classifier matches normalized path segments against the keyword table.
type Classifier struct {
	table []Entry
	// exact maps a normalized feature name to its table index for tier 1.
	exact map[string]int
}

// New returns a Classifier over the default keyword table.
func New() *Classifier {
	return NewWithTable(DefaultTable)
}

// NewWithTable returns a Classifier over a custom ordered table.
func NewWithTable(table []Entry) *Classifier {
	exact := make(map[string]int, len(table))
	for i, e := range table {
		key := Normalize(e.Feature)
		if _, ok := exact[key]; !ok {
			exact[key] = i
		}
	}
	return &Classifier{table: table, exact: exact}
}

// LoadTable reads a YAML keyword table override. The file is a list of
// {feature, category, keywords} entries in priority order.
func LoadTable(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: read keyword table %s", path)
	}
	var table []Entry
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, eris.Wrapf(err, "classify: parse keyword table %s", path)
	}
	if len(table) == 0 {
		return nil, eris.Errorf("classify: keyword table %s is empty", path)
	}
	return table, nil
}

// Classify guesses the feature for a file. relPath is the path relative to
// the scan root, so its first segment is the competitor folder; that segment
// is never treated as a feature candidate. Tiers are tried in order and the
// first match wins; within a tier, ties resolve by table declaration order.
func (c *Classifier) Classify(relPath, fileName string) Guess {
	segments := splitSegments(relPath)
	// The file name itself is not a folder segment.
	if n := len(segments); n > 0 && segments[n-1] == fileName {
		segments = segments[:n-1]
	}
	if len(segments) > 0 {
		segments = segments[1:] // competitor folder
	}

	// Tier 1: a folder segment equals a feature name.
	for _, seg := range segments {
		if i, ok := c.exact[Normalize(seg)]; ok {
			return c.guess(i, model.MatchFolderExact)
		}
	}

	// Tier 2: a folder segment contains, or is contained by, a keyword.
	for _, seg := range segments {
		if i, ok := c.keywordMatch(Normalize(seg)); ok {
			return c.guess(i, model.MatchFolderPartial)
		}
	}

	// Tier 3: same keyword test against the base file name only.
	base := strings.TrimSuffix(fileName, path.Ext(fileName))
	if i, ok := c.keywordMatch(Normalize(base)); ok {
		return c.guess(i, model.MatchFilenameKeyword)
	}

	return Guess{Method: model.MatchNone}
}

func (c *Classifier) guess(i int, method model.ClassMethod) Guess {
	return Guess{Feature: c.table[i].Feature, Category: c.table[i].Category, Method: method}
}

// keywordMatch returns the first table entry (declaration order) with a
// keyword that contains, or is contained by, the normalized text.
func (c *Classifier) keywordMatch(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	for i, e := range c.table {
		for _, kw := range e.Keywords {
			if strings.Contains(text, kw) || strings.Contains(kw, text) {
				return i, true
			}
		}
	}
	return 0, false
}

func splitSegments(relPath string) []string {
	clean := strings.ReplaceAll(relPath, "\\", "/")
	parts := strings.Split(clean, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" && p != "." {
			out = append(out, p)
		}
	}
	return out
}

// foldTransformer lowercases and strips combining diacritics so that
// "TRY Nemalandırma" and "try nemalandirma" style spellings compare equal.
var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

var lowerCaser = cases.Lower(language.Und)

// Normalize canonicalizes free-form folder and file name text for matching:
// lowercase, diacritics stripped, "-"/"_" folded to single spaces, trimmed.
func Normalize(s string) string {
	s = lowerCaser.String(s)
	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		s = folded
	}
	// Dotless ı is a standalone letter, not a combining form.
	s = strings.ReplaceAll(s, "ı", "i")
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
