package intel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSemanticThreads_EmptyInput(t *testing.T) {
	threads := ExtractSemanticThreads(nil)

	assert.NotNil(t, threads.RecurringPhrases)
	assert.NotNil(t, threads.ExcusePatterns)
	assert.NotNil(t, threads.TimeWasters)
	assert.NotNil(t, threads.Contradictions)
	assert.NotNil(t, threads.Breakthroughs)
	assert.NotNil(t, threads.RecurringMistakes)
	assert.NotNil(t, threads.ProcrastinationTriggers)
	assert.NotNil(t, threads.ReturnProtocols)
	assert.Empty(t, threads.RecurringPhrases)
}

func TestExtractSemanticThreads_RecurringPhrases(t *testing.T) {
	texts := []string{
		"Spent an hour scrolling tiktok instead of studying",
		"Again scrolling, tiktok is killing my evenings",
		"Math was too hard today",
	}

	threads := ExtractSemanticThreads(texts)

	// "scrolling" and "tiktok" both hit twice; "too hard" only once.
	assert.Contains(t, threads.RecurringPhrases, "scrolling")
	assert.Contains(t, threads.RecurringPhrases, "tiktok")
	assert.NotContains(t, threads.RecurringPhrases, "too hard")
}

func TestExtractSemanticThreads_ExcusesAndWasters(t *testing.T) {
	texts := []string{
		"The chapter was TOO HARD, will do later",
		"Watched netflix all evening",
	}

	threads := ExtractSemanticThreads(texts)

	assert.Equal(t, []string{"too hard", "will do later"}, threads.ExcusePatterns)
	assert.Equal(t, []string{"netflix"}, threads.TimeWasters)
	// "netflix" is in the trigger vocabulary too.
	assert.Equal(t, []string{"netflix"}, threads.ProcrastinationTriggers)
}

func TestExtractSemanticThreads_Contradictions(t *testing.T) {
	texts := []string{
		"I want to pass calculus but didn't open the book today",
		"Solved ten problems, felt great",
	}

	threads := ExtractSemanticThreads(texts)

	require.Len(t, threads.Contradictions, 1)
	assert.Equal(t, texts[0], threads.Contradictions[0])
}

func TestExtractSemanticThreads_BreakthroughsMistakesProtocols(t *testing.T) {
	texts := []string{
		"Integration by parts finally clicked!",
		"I always forget the chain rule sign",
		"Pomodoro with lo-fi music kept me focused",
	}

	threads := ExtractSemanticThreads(texts)

	require.Len(t, threads.Breakthroughs, 1)
	assert.Equal(t, texts[0], threads.Breakthroughs[0])
	require.Len(t, threads.RecurringMistakes, 1)
	assert.Equal(t, texts[1], threads.RecurringMistakes[0])
	require.Len(t, threads.ReturnProtocols, 1)
	assert.Equal(t, texts[2], threads.ReturnProtocols[0])
}

func TestExtractSemanticThreads_SnippetTruncation(t *testing.T) {
	long := "I want to finish the whole syllabus but didn't even start because " +
		strings.Repeat("the backlog keeps growing ", 10)

	threads := ExtractSemanticThreads([]string{long})

	require.Len(t, threads.Contradictions, 1)
	got := threads.Contradictions[0]
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Len(t, []rune(got), 83)
}

func TestExtractSemanticThreads_CapsRespected(t *testing.T) {
	texts := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		texts = append(texts, "I want to do more but didn't; finally got it after pomodoro")
	}

	threads := ExtractSemanticThreads(texts)

	assert.Len(t, threads.Contradictions, 3)
	assert.Len(t, threads.Breakthroughs, 3)
	assert.Len(t, threads.ReturnProtocols, 5)
}
