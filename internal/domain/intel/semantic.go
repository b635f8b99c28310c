package intel

import (
	"sort"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEMANTIC THREAD EXTRACTOR
// Простое извлечение по ключевым словам: без NLP, зато детерминированно
// и дёшево. Все сравнения в нижнем регистре.
// ══════════════════════════════════════════════════════════════════════════════

const (
	maxRecurringPhrases = 5
	maxContradictions   = 3
	maxBreakthroughs    = 3
	maxMistakes         = 3
	maxProtocols        = 5

	contradictionSnippet = 80
	threadSnippet        = 100
)

var (
	// excuseKeywords - характерные отговорки.
	excuseKeywords = []string{
		"didn't understand", "too hard", "too difficult", "confused",
		"not enough time", "will do later", "tomorrow",
		"didn't feel like it", "wasn't in the mood",
	}

	// timeWasterKeywords - поглотители времени.
	timeWasterKeywords = []string{
		"scroll", "scrolling", "youtube", "tiktok", "instagram",
		"social media", "netflix", "gaming", "game", "binge", "doom",
		"wasted time", "distracted",
	}

	// triggerKeywords - триггеры прокрастинации.
	triggerKeywords = []string{
		"youtube", "tiktok", "instagram", "social media", "gaming",
		"netflix", "scrolling", "phone", "distracted",
	}

	// breakthroughKeywords - маркеры прорыва в понимании.
	breakthroughKeywords = []string{
		"finally understood", "clicked", "makes sense now",
		"breakthrough", "got it", "aha",
	}

	// mistakeKeywords - маркеры повторяющихся ошибок.
	mistakeKeywords = []string{
		"keep getting wrong", "same mistake", "always forget",
		"confused about", "can't remember",
	}

	// protocolKeywords - упоминания способов вернуться к работе.
	protocolKeywords = []string{
		"pomodoro", "timer", "music", "library", "coffee shop", "study group",
	}

	// wantWords / blockWords - две половины паттерна противоречия.
	wantWords  = []string{"want", "need", "goal"}
	blockWords = []string{"but", "didn't", "missed"}
)

// ExtractSemanticThreads извлекает смысловые нити из свободных заметок.
// Пустой вход даёт пустые (не nil) срезы - вызывающему коду не нужно
// отличать "нет заметок" от "ничего не найдено".
func ExtractSemanticThreads(texts []string) SemanticThreads {
	threads := EmptyThreads()
	if len(texts) == 0 {
		return threads
	}

	lowered := make([]string, len(texts))
	for i, t := range texts {
		lowered[i] = strings.ToLower(t)
	}

	threads.RecurringPhrases = extractRecurringPhrases(lowered)
	threads.ExcusePatterns = matchKeywords(lowered, excuseKeywords)
	threads.TimeWasters = matchKeywords(lowered, timeWasterKeywords)
	threads.ProcrastinationTriggers = matchKeywords(lowered, triggerKeywords)

	for i, low := range lowered {
		if len(threads.Contradictions) < maxContradictions &&
			containsAny(low, wantWords) && containsAny(low, blockWords) {
			threads.Contradictions = append(threads.Contradictions, snippet(texts[i], contradictionSnippet))
		}
		if len(threads.Breakthroughs) < maxBreakthroughs && containsAny(low, breakthroughKeywords) {
			threads.Breakthroughs = append(threads.Breakthroughs, snippet(texts[i], threadSnippet))
		}
		if len(threads.RecurringMistakes) < maxMistakes && containsAny(low, mistakeKeywords) {
			threads.RecurringMistakes = append(threads.RecurringMistakes, snippet(texts[i], threadSnippet))
		}
		if len(threads.ReturnProtocols) < maxProtocols && containsAny(low, protocolKeywords) {
			threads.ReturnProtocols = append(threads.ReturnProtocols, snippet(texts[i], threadSnippet))
		}
	}

	return threads
}

// extractRecurringPhrases считает вхождения ключевых фраз по всем заметкам
// и оставляет те, что встретились минимум дважды.
func extractRecurringPhrases(lowered []string) []string {
	keywords := make([]string, 0, len(excuseKeywords)+len(timeWasterKeywords))
	keywords = append(keywords, excuseKeywords...)
	keywords = append(keywords, timeWasterKeywords...)

	type phraseCount struct {
		phrase string
		count  int
	}

	counts := make([]phraseCount, 0, len(keywords))
	for _, kw := range keywords {
		total := 0
		for _, text := range lowered {
			total += strings.Count(text, kw)
		}
		if total >= 2 {
			counts = append(counts, phraseCount{phrase: kw, count: total})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].count > counts[j].count
	})

	phrases := make([]string, 0, maxRecurringPhrases)
	for _, pc := range counts {
		if len(phrases) == maxRecurringPhrases {
			break
		}
		phrases = append(phrases, pc.phrase)
	}
	return phrases
}

// matchKeywords возвращает ключевые слова, встретившиеся хотя бы в одной
// заметке, в порядке словаря ключевых слов.
func matchKeywords(lowered []string, keywords []string) []string {
	matched := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		for _, text := range lowered {
			if strings.Contains(text, kw) {
				matched = append(matched, kw)
				break
			}
		}
	}
	return matched
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// snippet обрезает текст до limit символов, добавляя многоточие.
func snippet(text string, limit int) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) <= limit {
		return trimmed
	}
	return string(runes[:limit]) + "..."
}
