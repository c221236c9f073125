// Package review implements the review engine (C10): structural (no-RPC)
// heuristic scoring across a fixed set of dimensions, an optional semantic
// (RPC) scoring pass that falls back to structural on failure, and verdict
// derivation from per-dimension minimums and a weighted-average threshold.
// Grounded on the teacher's scoring-heuristics idiom (word-count/section-
// presence/number-density checks in its own review tooling) generalized
// from code-review heuristics to marketing-copy review heuristics.
package review

import (
	"context"
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/antigravity-dev/marketing-orchestrator/internal/llm"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

// Dimension is one scored axis of a review.
type Dimension string

const (
	DimCompleteness      Dimension = "completeness"
	DimClarity           Dimension = "clarity"
	DimActionability     Dimension = "actionability"
	DimDataDrivenness    Dimension = "data_drivenness"
	DimTechnicalAccuracy Dimension = "technical_accuracy"
	DimBrandAlignment    Dimension = "brand_alignment"
	DimCreativity        Dimension = "creativity"
)

// Dimensions is the fixed, ordered dimension set every review scores.
var Dimensions = []Dimension{
	DimCompleteness, DimClarity, DimActionability, DimDataDrivenness,
	DimTechnicalAccuracy, DimBrandAlignment, DimCreativity,
}

// neutralScore is used for any dimension a semantic pass omits.
const neutralScore = 5.0

// dimensionPolicy names the per-dimension minimum (below which the verdict
// drops to at least REVISE) and reject threshold (below which it drops to
// REJECT). Spec §4.7 describes the mechanism but not the exact numbers;
// resolved here as a uniform policy, recorded as an Open Question decision.
const (
	dimensionMinimum         = 4.0
	dimensionRejectThreshold = 2.0
	approveThreshold         = 7.5
	reviseThreshold          = 5.0
)

var dimensionWeight = 1.0 / float64(len(Dimensions))

// Scores maps each dimension to its clamped [0,10] score.
type Scores map[Dimension]float64

// LLMClient is the subset of *llm.Client the semantic pass depends on.
type LLMClient interface {
	CreateMessage(ctx context.Context, req llm.Request) (llm.Response, error)
}

// ScoreStructural scores content using pure heuristics: no RPC, fully
// deterministic. Content with no words scores 0 on every dimension.
func ScoreStructural(content string) Scores {
	words := wordsOf(content)
	wordCount := len(words)
	scores := make(Scores, len(Dimensions))
	if wordCount == 0 {
		for _, dim := range Dimensions {
			scores[dim] = 0
		}
		return scores
	}

	scores[DimCompleteness] = clamp(float64(wordCount) / 40.0)
	scores[DimClarity] = clamp(10 - averageSentenceLength(content)/6.0)
	scores[DimActionability] = clamp(float64(listItemCount(content))*1.5 + float64(actionVerbCount(words)))
	scores[DimDataDrivenness] = clamp(numberDensity(words) * 30)
	scores[DimTechnicalAccuracy] = clamp(float64(headingCount(content))*2 + 2)
	scores[DimBrandAlignment] = clamp(10 - float64(bannedPhraseCount(content))*3)
	scores[DimCreativity] = clamp(8 - float64(superlativeCount(words))*1.5)

	return scores
}

// semanticScore is the lenient JSON shape a semantic pass's response is
// parsed into.
type semanticScore struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// ScoreSemantic asks the model to emit a JSON dimension->{score, rationale}
// object and parses it leniently; missing dimensions default to neutral;
// any RPC or parse failure falls back to ScoreStructural.
func ScoreSemantic(ctx context.Context, client LLMClient, systemPrompt, content string) Scores {
	resp, err := client.CreateMessage(ctx, llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{{Role: "user", Content: "Score the following content on these dimensions: " +
			dimensionNamesCSV() + ". Respond with a JSON object mapping each dimension to {\"score\": 0-10, \"rationale\": \"...\"}.\n\n" + content}},
		MaxTokens: 1024,
	})
	if err != nil {
		return ScoreStructural(content)
	}

	raw := map[string]semanticScore{}
	if err := json.Unmarshal([]byte(extractJSONObject(resp.Content)), &raw); err != nil {
		return ScoreStructural(content)
	}

	scores := make(Scores, len(Dimensions))
	for _, dim := range Dimensions {
		if s, ok := raw[string(dim)]; ok {
			scores[dim] = clamp(s.Score)
		} else {
			scores[dim] = neutralScore
		}
	}
	return scores
}

func dimensionNamesCSV() string {
	names := make([]string, len(Dimensions))
	for i, d := range Dimensions {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}

// extractJSONObject returns the first {...} span in s, or s itself if none
// is found — models routinely wrap JSON in prose or code fences.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// Verdict is the full derived outcome of a review pass.
type Verdict struct {
	Verdict  model.ReviewVerdict
	Scores   Scores
	Average  float64
	Findings []model.Finding
}

// DeriveVerdict applies the per-dimension-minimum-then-weighted-average
// policy (spec §4.7): any dimension below the reject threshold forces
// REJECT; any dimension below the minimum forces at least REVISE;
// otherwise the weighted average against approve/revise thresholds decides.
func DeriveVerdict(scores Scores) Verdict {
	v := model.VerdictApprove
	var findings []model.Finding
	var sum float64

	for _, dim := range Dimensions {
		score := scores[dim]
		sum += score
		switch {
		case score < dimensionRejectThreshold:
			v = worstOf(v, model.VerdictReject)
			findings = append(findings, model.Finding{Section: string(dim), Severity: model.SeverityBlocker, Description: "scored below the reject threshold"})
		case score < dimensionMinimum:
			v = worstOf(v, model.VerdictRevise)
			findings = append(findings, model.Finding{Section: string(dim), Severity: model.SeverityMajor, Description: "scored below the minimum"})
		}
	}

	// Every dimension carries the same weight (dimensionWeight), so the
	// weighted average is the sum divided once by the dimension count; this
	// keeps a uniform score exact instead of accumulating rounded 1/7 steps.
	weighted := sum / float64(len(Dimensions))

	if v == model.VerdictApprove {
		switch {
		case weighted >= approveThreshold:
			v = model.VerdictApprove
		case weighted >= reviseThreshold:
			v = model.VerdictRevise
		default:
			v = model.VerdictReject
		}
	}

	return Verdict{Verdict: v, Scores: scores, Average: weighted, Findings: findings}
}

// worstOf returns whichever of a, b is the more severe verdict
// (APPROVE < REVISE < REJECT).
func worstOf(a, b model.ReviewVerdict) model.ReviewVerdict {
	rank := map[model.ReviewVerdict]int{model.VerdictApprove: 0, model.VerdictRevise: 1, model.VerdictReject: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

var wordSplitRe = regexp.MustCompile(`\s+`)

func wordsOf(content string) []string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}
	return wordSplitRe.Split(trimmed, -1)
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

func averageSentenceLength(content string) float64 {
	sentences := sentenceSplitRe.Split(content, -1)
	var total, count int
	for _, s := range sentences {
		w := wordsOf(s)
		if len(w) == 0 {
			continue
		}
		total += len(w)
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

var listItemRe = regexp.MustCompile(`(?m)^\s*([-*]|\d+\.)\s`)

func listItemCount(content string) int {
	return len(listItemRe.FindAllString(content, -1))
}

var headingRe = regexp.MustCompile(`(?m)^#{1,6}\s`)

func headingCount(content string) int {
	return len(headingRe.FindAllString(content, -1))
}

var actionVerbs = map[string]bool{
	"implement": true, "launch": true, "optimize": true, "measure": true,
	"test": true, "publish": true, "schedule": true, "review": true,
	"analyze": true, "build": true, "create": true, "deploy": true,
}

func actionVerbCount(words []string) int {
	count := 0
	for _, w := range words {
		if actionVerbs[strings.ToLower(strings.Trim(w, ".,!?"))] {
			count++
		}
	}
	return count
}

var numberRe = regexp.MustCompile(`\d`)

func numberDensity(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	numeric := 0
	for _, w := range words {
		if numberRe.MatchString(w) {
			numeric++
		}
	}
	return float64(numeric) / float64(len(words))
}

var superlatives = map[string]bool{
	"best": true, "greatest": true, "ultimate": true, "revolutionary": true,
	"unmatched": true, "unparalleled": true, "perfect": true, "incredible": true,
}

func superlativeCount(words []string) int {
	count := 0
	for _, w := range words {
		if superlatives[strings.ToLower(strings.Trim(w, ".,!?"))] {
			count++
		}
	}
	return count
}

var bannedPhrases = []string{"guaranteed results", "no risk", "act now or lose"}

func bannedPhraseCount(content string) int {
	lower := strings.ToLower(content)
	count := 0
	for _, phrase := range bannedPhrases {
		if strings.Contains(lower, phrase) {
			count++
		}
	}
	return count
}
