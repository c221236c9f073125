// Package prompt assembles the system+user content sent to the LLM client
// for one task, under a token budget with a deterministic drop order,
// grounded on the teacher's flat-file skill-asset convention (skills carry
// their own markdown system prompt and reference files) generalized into a
// single deterministic section-ordering builder.
package prompt

import (
	"fmt"
	"math"
	"strings"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

// maxLearnings caps how many past-learning entries are ever included,
// regardless of budget (spec: "capped to 10 entries").
const maxLearnings = 10

// learningsBudgetFraction caps the learnings section to 5% of the overall
// token budget (spec: "and to 5% of the token budget").
const learningsBudgetFraction = 0.05

// Input is everything the builder needs to assemble one task's prompt.
type Input struct {
	SystemPrompt  string // full skill manifest body, raw markdown
	ProductContext string
	Learnings     []model.Learning // pre-filtered to the target skill by the caller, any order
	Requirements  string
	PreviousOutput string
	RevisionCount int
	InputFiles    []ResolvedFile
	ReferenceFiles []ResolvedFile
	TokenBudget   int
}

// ResolvedFile is one input or reference file already read from the
// workspace (or recorded as missing).
type ResolvedFile struct {
	Path    string
	Content string
	Missing bool
}

// Result is the assembled prompt per the consumed contract's shape.
type Result struct {
	SystemPrompt      string
	UserMessage       string
	EstimatedTokens   int
	MissingInputs     []string
	Warnings          []string
	LearningsIncluded int
}

// Build assembles the prompt per the fixed section order: product context,
// past learnings (newest-first, capped), task requirements, previous output
// iff revision count > 0, input files, reference files. Each section is
// wrapped in a named tag. It never fails: an impossibly small budget still
// returns a valid prompt with warnings attached (B3).
func Build(in Input) Result {
	var missing []string
	for _, f := range in.InputFiles {
		if f.Missing {
			missing = append(missing, f.Path)
		}
	}
	for _, f := range in.ReferenceFiles {
		if f.Missing {
			missing = append(missing, f.Path)
		}
	}

	learnings := sortNewestFirst(in.Learnings)
	if len(learnings) > maxLearnings {
		learnings = learnings[:maxLearnings]
	}

	budget := in.TokenBudget
	learningsBudget := int(math.Ceil(float64(budget) * learningsBudgetFraction))
	learningsBlock, includedCount := renderLearningsWithinBudget(learnings, learningsBudget)

	var warnings []string
	sections := []string{}
	if in.ProductContext != "" {
		sections = append(sections, wrapTag("product_context", in.ProductContext))
	}
	if learningsBlock != "" {
		sections = append(sections, learningsBlock)
	}
	sections = append(sections, wrapTag("task_requirements", in.Requirements))
	if in.RevisionCount > 0 && in.PreviousOutput != "" {
		sections = append(sections, wrapTag("previous_output", in.PreviousOutput))
	}

	inputBlock := renderFiles("input_files", "input_file", in.InputFiles)
	if inputBlock != "" {
		sections = append(sections, inputBlock)
	}

	referenceFiles := append([]ResolvedFile(nil), in.ReferenceFiles...)
	referenceBlock := renderFiles("reference_materials", "reference_file", referenceFiles)
	if referenceBlock != "" {
		sections = append(sections, referenceBlock)
	}

	userMessage := strings.Join(sections, "\n\n")
	estimated := estimateTokens(in.SystemPrompt, userMessage)

	// Context budget guard: drop reference files from the tail until
	// within budget, warning on each drop.
	for budget > 0 && estimated > budget && len(referenceFiles) > 0 {
		dropped := referenceFiles[len(referenceFiles)-1]
		referenceFiles = referenceFiles[:len(referenceFiles)-1]
		warnings = append(warnings, fmt.Sprintf("dropped reference file %q to stay within the token budget", dropped.Path))

		sections = sections[:0]
		if in.ProductContext != "" {
			sections = append(sections, wrapTag("product_context", in.ProductContext))
		}
		if learningsBlock != "" {
			sections = append(sections, learningsBlock)
		}
		sections = append(sections, wrapTag("task_requirements", in.Requirements))
		if in.RevisionCount > 0 && in.PreviousOutput != "" {
			sections = append(sections, wrapTag("previous_output", in.PreviousOutput))
		}
		if inputBlock != "" {
			sections = append(sections, inputBlock)
		}
		if rb := renderFiles("reference_materials", "reference_file", referenceFiles); rb != "" {
			sections = append(sections, rb)
		}
		userMessage = strings.Join(sections, "\n\n")
		estimated = estimateTokens(in.SystemPrompt, userMessage)
	}

	if budget > 0 && estimated > budget {
		warnings = append(warnings, "core prompt content exceeds the configured token budget even with all reference files dropped")
	}

	return Result{
		SystemPrompt:      in.SystemPrompt,
		UserMessage:       userMessage,
		EstimatedTokens:   estimated,
		MissingInputs:     missing,
		Warnings:          warnings,
		LearningsIncluded: includedCount,
	}
}

// estimateTokens implements the spec's estimator: ceil((|system|+|user|)/4).
func estimateTokens(system, user string) int {
	return int(math.Ceil(float64(len(system)+len(user)) / 4.0))
}

func wrapTag(tag, content string) string {
	return fmt.Sprintf("<%s>\n%s\n</%s>", tag, content, tag)
}

func sortNewestFirst(in []model.Learning) []model.Learning {
	out := append([]model.Learning(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Timestamp.After(out[j-1].Timestamp); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// renderLearningsWithinBudget wraps as many learnings (in the given,
// already newest-first-and-capped order) as fit within learningsBudget
// estimated tokens, dropping from the tail first.
func renderLearningsWithinBudget(learnings []model.Learning, learningsBudget int) (string, int) {
	if len(learnings) == 0 {
		return "", 0
	}
	kept := learnings
	for len(kept) > 0 {
		var lines []string
		for _, l := range kept {
			lines = append(lines, fmt.Sprintf("- [%s] %s", l.Timestamp.Format("2006-01-02"), l.LearningText))
		}
		block := wrapTag("past_learnings", strings.Join(lines, "\n"))
		if learningsBudget <= 0 || estimateTokens("", block) <= learningsBudget {
			return block, len(kept)
		}
		kept = kept[:len(kept)-1]
	}
	return "", 0
}

func renderFiles(outerTag, itemTag string, files []ResolvedFile) string {
	present := make([]ResolvedFile, 0, len(files))
	for _, f := range files {
		if !f.Missing {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return ""
	}
	var parts []string
	for _, f := range present {
		parts = append(parts, fmt.Sprintf("<%s path=%q>\n%s\n</%s>", itemTag, f.Path, f.Content, itemTag))
	}
	return wrapTag(outerTag, strings.Join(parts, "\n"))
}
