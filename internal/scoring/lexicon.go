package scoring

// DefaultLexicon returns the built-in weighted keyword lists used when no
// external lexicon is configured or loading one fails.
func DefaultLexicon() Lexicon {
	return Lexicon{
		CategorySentimentPositive: {
			{Text: "추천", Weight: 1.5}, {Text: "강추", Weight: 2.0},
			{Text: "좋아요", Weight: 1.0}, {Text: "감사", Weight: 1.0},
			{Text: "합격", Weight: 1.5}, {Text: "최고", Weight: 1.5},
			{Text: "도움", Weight: 1.0}, {Text: "굿", Weight: 1.0},
			{Text: "명강의", Weight: 2.0}, {Text: "이해", Weight: 1.0},
			{Text: "쉽게", Weight: 1.0}, {Text: "친절", Weight: 1.0},
			{Text: "꼼꼼", Weight: 1.0}, {Text: "체계적", Weight: 1.5},
			{Text: "효율적", Weight: 1.0}, {Text: "짱", Weight: 1.5},
			{Text: "대박", Weight: 1.5}, {Text: "완벽", Weight: 1.5},
			{Text: "만족", Weight: 1.0}, {Text: "감동", Weight: 1.5},
		},
		CategorySentimentNegative: {
			{Text: "비추", Weight: 2.0}, {Text: "별로", Weight: 1.0},
			{Text: "어렵", Weight: 1.0}, {Text: "실망", Weight: 1.5},
			{Text: "환불", Weight: 2.0}, {Text: "답답", Weight: 1.0},
			{Text: "부족", Weight: 1.0}, {Text: "아쉽", Weight: 0.8},
			{Text: "불친절", Weight: 1.5}, {Text: "졸림", Weight: 1.0},
			{Text: "지루", Weight: 1.0}, {Text: "돈아까", Weight: 2.0},
			{Text: "후회", Weight: 1.5}, {Text: "최악", Weight: 2.0},
			{Text: "노답", Weight: 2.0}, {Text: "짜증", Weight: 1.0},
			{Text: "불만", Weight: 1.0}, {Text: "노잼", Weight: 1.5},
		},
		CategoryDifficultyEasy: {
			{Text: "쉬움", Weight: 1.0}, {Text: "쉽게", Weight: 1.0},
			{Text: "기초", Weight: 0.8}, {Text: "입문", Weight: 0.8},
			{Text: "초보", Weight: 0.8}, {Text: "친절", Weight: 0.5},
			{Text: "이해됨", Weight: 1.0}, {Text: "이해잘", Weight: 1.0},
			{Text: "쉬워요", Weight: 1.0}, {Text: "쉬운", Weight: 1.0},
		},
		CategoryDifficultyHard: {
			{Text: "어려움", Weight: 1.0}, {Text: "어렵", Weight: 1.0},
			{Text: "심화", Weight: 0.8}, {Text: "고급", Weight: 0.8},
			{Text: "빡셈", Weight: 1.5}, {Text: "헬", Weight: 1.5},
			{Text: "멘붕", Weight: 1.0}, {Text: "어려워", Weight: 1.0},
			{Text: "하드", Weight: 1.0}, {Text: "빡세", Weight: 1.5},
		},
		CategoryRecommendation: {
			{Text: "추천", Weight: 1.0}, {Text: "강추", Weight: 1.5},
			{Text: "들어라", Weight: 1.0}, {Text: "꼭", Weight: 0.5},
			{Text: "필수", Weight: 1.0}, {Text: "인생강의", Weight: 2.0},
			{Text: "듣자", Weight: 0.8}, {Text: "추천해요", Weight: 1.0},
			{Text: "들으세요", Weight: 1.0}, {Text: "필청", Weight: 1.5},
		},
	}
}
