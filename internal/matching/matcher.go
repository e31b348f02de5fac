package matching

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"github.com/teacherhub/reputation-bot/internal/models"
)

// minNameLength rejects one-character names and aliases, which are too
// ambiguous to index.
const minNameLength = 2

// DefaultContextWindow is the number of characters kept on each side of a
// matched span.
const DefaultContextWindow = 100

// honorific and subject suffixes that may directly follow a name without
// breaking the word boundary, longest first so "선생님" is consumed before
// "선생".
var nameSuffixes = []string{
	"선생님", "교수님", "한국사", "행정법", "행정학", "경제학",
	"선생", "교수", "강사", "국어", "영어", "수학", "헌법",
	"세법", "회계", "사회", "과학", "쌤",
}

// Match is one non-overlapping occurrence of an entity name in a text.
type Match struct {
	EntityID    int64
	EntityName  string
	MatchedText string
	StartPos    int
	EndPos      int
	Context     string
}

type namePattern struct {
	entityID   int64
	entityName string
	name       []rune // lowercased
}

// Matcher finds occurrences of registered entity names and aliases inside
// free text. Matching is case-insensitive, boundary-aware and rune-based, so
// positions and context windows count characters, not bytes.
type Matcher struct {
	patterns []namePattern
	suffixes [][]rune
	entities map[int64]string
}

// NewMatcher returns an empty matcher. A matcher with no loaded names matches
// nothing rather than failing.
func NewMatcher() *Matcher {
	suffixes := make([][]rune, len(nameSuffixes))
	for i, s := range nameSuffixes {
		suffixes[i] = []rune(s)
	}

	return &Matcher{
		suffixes: suffixes,
		entities: make(map[int64]string),
	}
}

// Load registers the canonical name and every alias of each entity. Names
// shorter than two characters are skipped with a log line; one bad name never
// aborts the load.
func (m *Matcher) Load(entities []models.Entity) {
	m.patterns = m.patterns[:0]
	m.entities = make(map[int64]string, len(entities))

	for _, entity := range entities {
		m.entities[entity.ID] = entity.Name

		for _, name := range entity.AllNames() {
			trimmed := strings.TrimSpace(name)
			runes := []rune(strings.ToLower(trimmed))

			if len(runes) < minNameLength {
				logrus.Warnf("Skipping name %q for entity %d: shorter than %d characters", name, entity.ID, minNameLength)
				continue
			}

			m.patterns = append(m.patterns, namePattern{
				entityID:   entity.ID,
				entityName: entity.Name,
				name:       runes,
			})
		}
	}

	// Longest name first so a compound name beats a shorter name it
	// contains at the same position.
	sort.SliceStable(m.patterns, func(i, j int) bool {
		return len(m.patterns[i].name) > len(m.patterns[j].name)
	})

	logrus.Infof("Loaded %d entities with %d name patterns", len(m.entities), len(m.patterns))
}

// FindMentions returns every non-overlapping match in text, ordered by
// position. Earlier-tried (longer) names win overlaps. Empty text yields an
// empty result.
func (m *Matcher) FindMentions(text string, contextWindow int) []Match {
	if text == "" || len(m.patterns) == 0 {
		return nil
	}
	if contextWindow <= 0 {
		contextWindow = DefaultContextWindow
	}

	runes := []rune(text)
	lower := []rune(strings.ToLower(text))

	var accepted []span
	var results []Match

	for _, p := range m.patterns {
		for _, s := range m.findSpans(lower, p.name) {
			if overlaps(accepted, s) {
				continue
			}
			accepted = append(accepted, s)

			ctxStart := s.start - contextWindow
			if ctxStart < 0 {
				ctxStart = 0
			}
			ctxEnd := s.end + contextWindow
			if ctxEnd > len(runes) {
				ctxEnd = len(runes)
			}

			results = append(results, Match{
				EntityID:    p.entityID,
				EntityName:  p.entityName,
				MatchedText: string(runes[s.start:s.end]),
				StartPos:    s.start,
				EndPos:      s.end,
				Context:     string(runes[ctxStart:ctxEnd]),
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].StartPos < results[j].StartPos
	})

	return results
}

// EntityName returns the canonical name for a loaded entity id.
func (m *Matcher) EntityName(entityID int64) string {
	return m.entities[entityID]
}

// EntityIDs returns the ids of all loaded entities.
func (m *Matcher) EntityIDs() []int64 {
	ids := make([]int64, 0, len(m.entities))
	for id := range m.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type span struct {
	start, end int
}

// findSpans scans for boundary-valid occurrences of name in lower. A valid
// occurrence has a non-word character (or the string edge) before the name,
// and after the name an optional honorific/subject suffix followed by a
// non-word character or the string edge. The returned span covers the name
// plus any consumed suffix.
func (m *Matcher) findSpans(lower, name []rune) []span {
	var spans []span

	for start := 0; start+len(name) <= len(lower); start++ {
		if !runesMatch(lower[start:], name) {
			continue
		}
		if start > 0 && isWordRune(lower[start-1]) {
			continue
		}

		end := start + len(name)
		if suffix := m.matchSuffix(lower[end:]); suffix > 0 {
			end += suffix
		}
		if end < len(lower) && isWordRune(lower[end]) {
			continue
		}

		spans = append(spans, span{start: start, end: end})
		start = end - 1
	}

	return spans
}

// matchSuffix returns the length of the longest allowed suffix at the given
// position, or 0. The run after the suffix must still hit a boundary; that is
// checked by the caller.
func (m *Matcher) matchSuffix(rest []rune) int {
	for _, suffix := range m.suffixes {
		if len(suffix) <= len(rest) && runesMatch(rest, suffix) {
			return len(suffix)
		}
	}
	return 0
}

func runesMatch(haystack, needle []rune) bool {
	for i, r := range needle {
		if haystack[i] != r {
			return false
		}
	}
	return true
}

func overlaps(accepted []span, s span) bool {
	for _, a := range accepted {
		if s.start < a.end && a.start < s.end {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
