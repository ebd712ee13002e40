package interpret

import "strings"

// Emotion labels produced by the keyword heuristic.
const (
	EmotionNeutral = "neutral"
	EmotionHappy   = "happy"
	EmotionSad     = "sad"
	EmotionScared  = "scared"
	EmotionAngry   = "angry"
	EmotionExcited = "excited"
	EmotionLonely  = "lonely"
)

var emotionKeywords = map[string][]string{
	EmotionHappy:   {"happy", "glad", "fun", "love", "like it", "yay", "smile", "laugh", "great", "good"},
	EmotionSad:     {"sad", "cry", "crying", "tears", "miss", "unhappy", "upset", "hurt", "sorry"},
	EmotionScared:  {"scared", "afraid", "fear", "nightmare", "dark", "needle", "shot", "worried", "nervous"},
	EmotionAngry:   {"angry", "mad", "hate", "annoyed", "unfair", "grumpy"},
	EmotionExcited: {"wow", "awesome", "cool", "can't wait", "amazing", "super"},
	EmotionLonely:  {"lonely", "alone", "no one", "nobody", "bored", "by myself"},
}

// precedence breaks ties in favour of feelings that need more care.
var precedence = []string{EmotionScared, EmotionSad, EmotionLonely, EmotionAngry, EmotionExcited, EmotionHappy}

// EstimateEmotion guesses an emotion label for free text the model returned
// without its analysis block.
func EstimateEmotion(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return EmotionNeutral
	}

	scores := make(map[string]int, len(emotionKeywords))
	for label, words := range emotionKeywords {
		for _, word := range words {
			if strings.Contains(normalized, word) {
				scores[label] += 3
			}
		}
	}
	if n := strings.Count(text, "!"); n > 0 {
		scores[EmotionExcited] += n * 2
	}

	best, bestScore := EmotionNeutral, 0
	for _, label := range precedence {
		if scores[label] > bestScore {
			best, bestScore = label, scores[label]
		}
	}
	return best
}
