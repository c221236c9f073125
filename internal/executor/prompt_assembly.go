package executor

import (
	"context"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/prompt"
	"github.com/antigravity-dev/marketing-orchestrator/internal/registry"
)

// assemblePrompt resolves every input the prompt builder needs from the
// workspace and registry, then delegates section assembly and budget
// enforcement to internal/prompt.Build.
func (e *Executor) assemblePrompt(ctx context.Context, task model.Task, skill registry.SkillManifest, isFoundation bool) (prompt.Result, *ExecError) {
	var productContext string
	if !isFoundation {
		if exists, _ := e.Workspace.ContextExists(ctx); exists {
			productContext, _ = e.Workspace.ReadContext(ctx)
		}
	}

	learnings, err := e.Workspace.ReadLearnings(ctx, task.Skill)
	if err != nil {
		learnings = nil
	}

	var previousOutput string
	if task.RevisionCount > 0 {
		squad, _ := e.Skills.SquadOf(task.Skill)
		content, err := e.Workspace.ReadOutputFor(ctx, string(squad), task.Skill, task.ID, isFoundation)
		if err != nil {
			return prompt.Result{}, newErr(ErrInputNotFound, "revision requires a previous output that does not exist", err)
		}
		previousOutput = content
	}

	inputFiles := make([]prompt.ResolvedFile, 0, len(task.Inputs))
	for _, ref := range task.Inputs {
		data, err := e.Workspace.ReadFile(ctx, ref.Path)
		if err != nil {
			inputFiles = append(inputFiles, prompt.ResolvedFile{Path: ref.Path, Missing: true})
			continue
		}
		inputFiles = append(inputFiles, prompt.ResolvedFile{Path: ref.Path, Content: string(data)})
	}

	refPaths := e.Skills.ReferenceFiles(task.Skill)
	referenceFiles := make([]prompt.ResolvedFile, 0, len(refPaths))
	for _, path := range refPaths {
		data, err := e.Workspace.ReadFile(ctx, path)
		if err != nil {
			referenceFiles = append(referenceFiles, prompt.ResolvedFile{Path: path, Missing: true})
			continue
		}
		referenceFiles = append(referenceFiles, prompt.ResolvedFile{Path: path, Content: string(data)})
	}

	result := prompt.Build(prompt.Input{
		SystemPrompt:   skill.SystemPrompt,
		ProductContext: productContext,
		Learnings:      learnings,
		Requirements:   task.Requirements,
		PreviousOutput: previousOutput,
		RevisionCount:  task.RevisionCount,
		InputFiles:     inputFiles,
		ReferenceFiles: referenceFiles,
		TokenBudget:    e.PromptBudget,
	})
	return result, nil
}
