// Package analysis holds the batch analyzers: verbal-tic detection over
// transcript text and posture classification over joint coordinates.
package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

// Common English filler words and phrases flagged by the local analyzer.
var commonFillers = []string{
	"um",
	"uh",
	"like",
	"you know",
	"basically",
	"actually",
	"so",
	"right",
	"okay",
	"kind of",
	"sort of",
	"i mean",
	"well",
}

// PhraseCount records one flagged phrase with sample sentences.
type PhraseCount struct {
	Phrase   string   `json:"phrase"`
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

// ViceReport is the output of transcript analysis.
type ViceReport struct {
	Summary     string        `json:"summary"`
	Repetitions []PhraseCount `json:"repetitions"`
	Suggestions []string      `json:"suggestions"`
}

const maxExamples = 3

// minRepeatCount is how often a non-filler trigram must recur before it
// counts as a crutch phrase.
const minRepeatCount = 3

// AnalyzeText scans transcript text for filler phrases and repeated
// trigrams and returns a report with per-phrase counts and suggestions.
func AnalyzeText(text string) *ViceReport {
	lc := strings.ToLower(text)
	sentences := splitSentences(text)

	var reps []PhraseCount
	for _, phrase := range commonFillers {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
		matches := re.FindAllStringIndex(lc, -1)
		if len(matches) == 0 {
			continue
		}
		var examples []string
		for _, s := range sentences {
			if re.MatchString(strings.ToLower(s)) {
				examples = append(examples, s)
				if len(examples) == maxExamples {
					break
				}
			}
		}
		reps = append(reps, PhraseCount{Phrase: phrase, Count: len(matches), Examples: examples})
	}

	reps = append(reps, repeatedTrigrams(lc, sentences)...)

	var suggestions []string
	if len(reps) > 0 {
		suggestions = append(suggestions,
			"Avoid repeated filler phrases: pause instead, use synonyms, or rephrase the sentence.")
	} else {
		suggestions = append(suggestions,
			"No obvious verbal tics detected by the local analyzer.")
	}

	summary := "No occurrences detected."
	if len(reps) > 0 {
		total := 0
		for _, r := range reps {
			total += r.Count
		}
		summary = fmt.Sprintf("Detected %d occurrences of verbal tics across %d distinct phrases.", total, len(reps))
	}

	return &ViceReport{Summary: summary, Repetitions: reps, Suggestions: suggestions}
}

var wordRe = regexp.MustCompile(`[a-z']+`)

// repeatedTrigrams flags three-word phrases the speaker leans on. Trigrams
// already covered by the filler list are skipped.
func repeatedTrigrams(lc string, sentences []string) []PhraseCount {
	words := wordRe.FindAllString(lc, -1)
	if len(words) < 3 {
		return nil
	}

	counts := make(map[string]int)
	for i := 0; i+3 <= len(words); i++ {
		tri := strings.Join(words[i:i+3], " ")
		counts[tri]++
	}

	fillerSet := make(map[string]bool, len(commonFillers))
	for _, f := range commonFillers {
		fillerSet[f] = true
	}

	var reps []PhraseCount
	for i := 0; i+3 <= len(words); i++ {
		tri := strings.Join(words[i:i+3], " ")
		n, pending := counts[tri]
		if !pending || n < minRepeatCount || fillerSet[tri] {
			continue
		}
		delete(counts, tri) // report each trigram once, in first-seen order

		var examples []string
		for _, s := range sentences {
			if strings.Contains(strings.ToLower(s), tri) {
				examples = append(examples, s)
				if len(examples) == maxExamples {
					break
				}
			}
		}
		reps = append(reps, PhraseCount{Phrase: tri, Count: n, Examples: examples})
	}
	return reps
}

func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
