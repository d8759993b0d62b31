// Package textmetric implements the sentence-level text-overlap metrics used
// by the rouge_bleu evaluator: BLEU with exponential smoothing and the
// ROUGE-1/2/L F-measures. Scores are in [0,1].
package textmetric

import (
	"math"
	"strings"
	"unicode"
)

const bleuMaxOrder = 4

// BLEU scores hypothesis against a single reference: geometric mean of
// clipped 1..4-gram precisions with exponential smoothing for zero counts,
// times the brevity penalty.
func BLEU(reference, hypothesis string) float64 {
	ref := tokenize(reference)
	hyp := tokenize(hypothesis)
	if len(hyp) == 0 {
		return 0.0
	}

	smooth := 1.0
	logSum := 0.0
	for n := 1; n <= bleuMaxOrder; n++ {
		total := len(hyp) - n + 1
		if total < 1 {
			total = 1
		}
		matched := overlapCount(ngrams(hyp, n), ngrams(ref, n))
		var p float64
		if matched == 0 {
			smooth *= 2
			p = 1.0 / (smooth * float64(total))
		} else {
			p = float64(matched) / float64(total)
		}
		logSum += math.Log(p)
	}
	precision := math.Exp(logSum / bleuMaxOrder)

	bp := 1.0
	if len(hyp) < len(ref) {
		bp = math.Exp(1.0 - float64(len(ref))/float64(len(hyp)))
	}
	return precision * bp
}

// RougeN returns the ROUGE-N F-measure for n-gram overlap.
func RougeN(reference, hypothesis string, n int) float64 {
	ref := ngrams(tokenize(reference), n)
	hyp := ngrams(tokenize(hypothesis), n)
	refTotal := total(ref)
	hypTotal := total(hyp)
	if refTotal == 0 || hypTotal == 0 {
		return 0.0
	}
	matched := overlapCount(hyp, ref)
	return fMeasure(float64(matched)/float64(hypTotal), float64(matched)/float64(refTotal))
}

// RougeL returns the longest-common-subsequence F-measure.
func RougeL(reference, hypothesis string) float64 {
	ref := tokenize(reference)
	hyp := tokenize(hypothesis)
	if len(ref) == 0 || len(hyp) == 0 {
		return 0.0
	}
	l := lcs(ref, hyp)
	return fMeasure(float64(l)/float64(len(hyp)), float64(l)/float64(len(ref)))
}

func fMeasure(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0.0
	}
	return 2 * precision * recall / (precision + recall)
}

// tokenize lowercases and splits on any non-alphanumeric rune.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func ngrams(tokens []string, n int) map[string]int {
	out := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		out[strings.Join(tokens[i:i+n], " ")]++
	}
	return out
}

func overlapCount(a, b map[string]int) int {
	matched := 0
	for gram, count := range a {
		if other, ok := b[gram]; ok {
			if other < count {
				count = other
			}
			matched += count
		}
	}
	return matched
}

func total(grams map[string]int) int {
	sum := 0
	for _, c := range grams {
		sum += c
	}
	return sum
}

func lcs(a, b []string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
