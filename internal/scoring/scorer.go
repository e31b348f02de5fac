package scoring

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/teacherhub/reputation-bot/internal/models"
	"gopkg.in/yaml.v3"
)

// Lexicon categories.
const (
	CategorySentimentPositive = "sentiment_positive"
	CategorySentimentNegative = "sentiment_negative"
	CategoryDifficultyEasy    = "difficulty_easy"
	CategoryDifficultyHard    = "difficulty_hard"
	CategoryRecommendation    = "recommendation"
)

// occurrenceCap bounds how often a single keyword can count, so one repeated
// word cannot dominate a text's score.
const occurrenceCap = 3

// recommendThreshold is the weighted recommendation score above which a text
// counts as recommending.
const recommendThreshold = 0.5

// sentimentThreshold separates POSITIVE/NEGATIVE from NEUTRAL.
const sentimentThreshold = 0.2

// Keyword is one weighted lexicon entry.
type Keyword struct {
	Text   string  `yaml:"text"`
	Weight float64 `yaml:"weight"`
}

// Lexicon maps category to weighted keywords. Lexicons are immutable once
// handed to a Scorer; build a new one and swap the Scorer to reload.
type Lexicon map[string][]Keyword

// Result is the signal set for one text unit.
type Result struct {
	Sentiment      string
	SentimentScore float64
	Difficulty     string
	Recommended    bool
}

// Scorer scores a text's sentiment, difficulty and recommendation signals
// from weighted keyword lists. It holds an immutable lexicon snapshot and is
// safe for concurrent use.
type Scorer struct {
	lexicon Lexicon
}

// NewScorer creates a scorer over the given lexicon. A nil lexicon falls back
// to the built-in defaults.
func NewScorer(lexicon Lexicon) *Scorer {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	return &Scorer{lexicon: lexicon}
}

// Score analyzes one text unit. Empty text scores neutral with no difficulty
// or recommendation signal.
func (s *Scorer) Score(text string) Result {
	result := Result{
		Sentiment: models.SentimentNeutral,
	}

	if text == "" {
		return result
	}

	lower := strings.ToLower(text)

	positive := s.categoryScore(lower, CategorySentimentPositive)
	negative := s.categoryScore(lower, CategorySentimentNegative)

	if positive+negative > 0 {
		// Laplace-smoothed, bounded in (-1, 1).
		score := (positive - negative) / (positive + negative + 1)
		result.SentimentScore = round3(score)
	}

	switch {
	case result.SentimentScore > sentimentThreshold:
		result.Sentiment = models.SentimentPositive
	case result.SentimentScore < -sentimentThreshold:
		result.Sentiment = models.SentimentNegative
	}

	easy := s.categoryScore(lower, CategoryDifficultyEasy)
	hard := s.categoryScore(lower, CategoryDifficultyHard)

	switch {
	case easy > hard:
		result.Difficulty = models.DifficultyEasy
	case hard > easy:
		result.Difficulty = models.DifficultyHard
	case easy > 0:
		result.Difficulty = models.DifficultyMedium
	}

	result.Recommended = s.categoryScore(lower, CategoryRecommendation) > recommendThreshold

	return result
}

// Keywords returns the lexicon entries for a category.
func (s *Scorer) Keywords(category string) []Keyword {
	return s.lexicon[category]
}

func (s *Scorer) categoryScore(lower, category string) float64 {
	var score float64
	for _, kw := range s.lexicon[category] {
		count := strings.Count(lower, strings.ToLower(kw.Text))
		if count == 0 {
			continue
		}
		if count > occurrenceCap {
			count = occurrenceCap
		}
		score += kw.Weight * float64(count)
	}
	return score
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// LoadLexiconFile reads a category -> keyword list lexicon from a YAML file.
// Any failure falls back to the built-in defaults; a missing lexicon is never
// fatal.
func LoadLexiconFile(path string) Lexicon {
	if path == "" {
		return DefaultLexicon()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Warnf("Failed to read lexicon file %s, using defaults: %v", path, err)
		return DefaultLexicon()
	}

	var parsed Lexicon
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		logrus.Warnf("Failed to parse lexicon file %s, using defaults: %v", path, err)
		return DefaultLexicon()
	}

	// An empty keyword text would match every position in a scored string, so
	// such rows are dropped rather than loaded.
	lexicon := make(Lexicon)
	for category, keywords := range parsed {
		for _, kw := range keywords {
			if kw.Text == "" {
				logrus.Warnf("Lexicon file %s: skipping empty keyword in category %s", path, category)
				continue
			}
			lexicon[category] = append(lexicon[category], kw)
		}
	}

	if len(lexicon) == 0 {
		logrus.Warnf("Lexicon file %s is empty, using defaults", path)
		return DefaultLexicon()
	}

	logrus.Infof("Loaded lexicon from %s: %d categories, %d keywords", path, len(lexicon), lexicon.size())
	return lexicon
}

// LexiconFromKeywords builds a lexicon from catalog keyword rows. Inactive
// rows are ignored; when no usable rows remain the built-in defaults are
// returned (fail-soft).
func LexiconFromKeywords(rows []models.AnalysisKeyword) Lexicon {
	if len(rows) == 0 {
		return DefaultLexicon()
	}

	lexicon := make(Lexicon)
	for _, row := range rows {
		if !row.Active || row.Keyword == "" {
			continue
		}
		lexicon[row.Category] = append(lexicon[row.Category], Keyword{
			Text:   row.Keyword,
			Weight: row.Weight,
		})
	}

	if len(lexicon) == 0 {
		return DefaultLexicon()
	}

	logrus.Infof("Loaded lexicon from catalog: %d categories, %d keywords", len(lexicon), lexicon.size())
	return lexicon
}

func (l Lexicon) size() int {
	total := 0
	for _, kws := range l {
		total += len(kws)
	}
	return total
}

func (l Lexicon) String() string {
	return fmt.Sprintf("lexicon(%d categories, %d keywords)", len(l), l.size())
}
