// Package voice turns spoken or typed removal requests into inventory
// matches.
package voice

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/dukerupert/freezer/internal/model"
)

// Command is a parsed removal request.
type Command struct {
	ItemTerm string
	// Drawer is the spoken drawer number, 1-based. Nil when none was given.
	Drawer *int
}

var (
	nonAlnum      = regexp.MustCompile(`[^a-z0-9\s]`)
	drawerPattern = regexp.MustCompile(`drawer\s*([0-9]+)`)

	removeKeywords = []string{"remove", "removed", "delete", "deleted", "took", "taken", "used"}

	// Longer phrases first so "i have removed" goes before "removed".
	commandPhrases = []string{
		"i have removed", "i removed", "removed", "remove",
		"i have deleted", "i deleted", "deleted", "delete",
		"i have taken", "i took", "taken", "took", "used",
	}

	fillerPatterns = wordPatterns("i", "have", "from", "the", "a", "an", "my", "freezer", "please", "item")
)

func wordPatterns(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		out = append(out, regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return out
}

// Parse extracts a removal command from an utterance. It returns false when
// the utterance has no removal keyword or nothing is left to match on.
func Parse(utterance string) (Command, bool) {
	normalized := nonAlnum.ReplaceAllString(strings.ToLower(utterance), " ")

	if !slices.ContainsFunc(removeKeywords, func(k string) bool {
		return strings.Contains(normalized, k)
	}) {
		return Command{}, false
	}

	working := normalized
	var drawer *int
	if m := drawerPattern.FindStringSubmatchIndex(working); m != nil {
		if n, err := strconv.Atoi(working[m[2]:m[3]]); err == nil {
			drawer = &n
		}
		working = working[:m[0]] + " " + working[m[1]:]
	}

	for _, phrase := range commandPhrases {
		working = strings.ReplaceAll(working, phrase, " ")
	}
	for _, re := range fillerPatterns {
		working = re.ReplaceAllString(working, " ")
	}

	term := strings.Join(strings.Fields(working), " ")
	if term == "" {
		return Command{}, false
	}
	return Command{ItemTerm: term, Drawer: drawer}, true
}

// Query narrows a resolution. DrawerNumber (1-based display position) and
// DrawerName are optional; DrawerNumber wins when both are set.
type Query struct {
	Term         string
	DrawerNumber *int
	DrawerName   string
}

// QueryFor builds a query from a parsed command.
func QueryFor(cmd Command) Query {
	return Query{Term: cmd.ItemTerm, DrawerNumber: cmd.Drawer}
}

// Status classifies a resolution by how many items matched.
type Status int

const (
	NotFound Status = iota
	Single
	Ambiguous
)

func (s Status) String() string {
	switch s {
	case Single:
		return "single"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// Resolution is the outcome of matching a query against the inventory.
type Resolution struct {
	Term string
	// Matches are ordered oldest first.
	Matches []model.Item
	// DrawerNames is the sorted distinct set of drawers holding a match.
	DrawerNames []string
}

func (r Resolution) Status() Status {
	switch len(r.Matches) {
	case 0:
		return NotFound
	case 1:
		return Single
	default:
		return Ambiguous
	}
}

// Resolve finds the items q refers to.
func Resolve(doc *model.Document, q Query) Resolution {
	term := model.Normalize(q.Term)
	res := Resolution{Term: strings.TrimSpace(q.Term)}
	if term == "" {
		return res
	}

	var matches []model.Item
	for _, it := range doc.Items {
		name := it.NormalizedName
		if name == "" {
			continue
		}
		if name == term || strings.Contains(name, term) || strings.Contains(term, name) {
			matches = append(matches, it)
		}
	}

	if filter, ok := drawerFilter(doc, q); ok {
		matches = slices.DeleteFunc(matches, func(it model.Item) bool {
			return !filter(it)
		})
	}

	slices.SortStableFunc(matches, func(a, b model.Item) int {
		return a.DateAdded.Compare(b.DateAdded)
	})
	res.Matches = matches

	seen := make(map[string]struct{})
	for _, it := range matches {
		name := doc.DrawerName(it.DrawerID)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		res.DrawerNames = append(res.DrawerNames, name)
	}
	slices.Sort(res.DrawerNames)
	return res
}

func drawerFilter(doc *model.Document, q Query) (func(model.Item) bool, bool) {
	if q.DrawerNumber != nil {
		d, ok := DrawerByNumber(doc, *q.DrawerNumber)
		if !ok {
			return func(model.Item) bool { return false }, true
		}
		return func(it model.Item) bool { return it.DrawerID == d.ID }, true
	}

	name := model.Normalize(q.DrawerName)
	if name == "" {
		return nil, false
	}
	return func(it model.Item) bool {
		return model.Normalize(doc.DrawerName(it.DrawerID)) == name
	}, true
}

// DrawerByNumber maps a spoken 1-based drawer number to a drawer: first by
// display position, then by a drawer literally named "drawer N".
func DrawerByNumber(doc *model.Document, n int) (model.Drawer, bool) {
	drawers := doc.SortedDrawers()
	if n >= 1 && n <= len(drawers) {
		return drawers[n-1], true
	}
	want := "drawer " + strconv.Itoa(n)
	for _, d := range drawers {
		if model.Normalize(d.Name) == want {
			return d, true
		}
	}
	return model.Drawer{}, false
}
