package director

import "github.com/antigravity-dev/marketing-orchestrator/internal/model"

// routingEntry is one phase of a category's static decomposition: the squad
// it runs in, the skills it dispatches, and why (surfaced in the plan for
// operator visibility, not consumed by any other component).
type routingEntry struct {
	squad     model.Squad
	skills    []string
	rationale string
}

// routingTable maps each goal category to its ordered phase sequence.
// Grounded on spec §4.6's "static routing table that yields a sequence of
// {squad, skills, rationale} entries; the measure squad is always the final
// phase" — skill names are illustrative (the registry's closed set is the
// authority at runtime; a task for an unknown skill is still created and
// fails at execution with SKILL_NOT_FOUND).
var routingTable = map[model.GoalCategory][]routingEntry{
	model.CategoryStrategic: {
		{squad: model.SquadStrategy, skills: []string{"seo-audit", "competitor-analysis"}, rationale: "establish market position before committing creative spend"},
		{squad: model.SquadCreative, skills: []string{"copywriting"}, rationale: "translate strategic findings into messaging"},
	},
	model.CategoryContent: {
		{squad: model.SquadCreative, skills: []string{"content-brief", "copywriting", "social-posts"}, rationale: "produce the content set directly"},
	},
	model.CategoryOptimization: {
		{squad: model.SquadStrategy, skills: []string{"seo-audit"}, rationale: "identify the optimization targets"},
		{squad: model.SquadConvert, skills: []string{"page-cro"}, rationale: "apply conversion-rate fixes"},
	},
	model.CategoryRetention: {
		{squad: model.SquadActivate, skills: []string{"email-sequence"}, rationale: "re-engage the existing base"},
		{squad: model.SquadConvert, skills: []string{"page-cro"}, rationale: "remove friction from the return path"},
	},
	model.CategoryCompetitive: {
		{squad: model.SquadStrategy, skills: []string{"competitor-analysis"}, rationale: "characterize the competitive gap"},
		{squad: model.SquadCreative, skills: []string{"copywriting"}, rationale: "differentiate against it"},
	},
	model.CategoryMeasurement: {
		{squad: model.SquadMeasure, skills: []string{"performance-report"}, rationale: "report against the existing baseline"},
	},
}

// measureEntry is the phase appended to every plan that doesn't already end
// on the measure squad (spec §4.6: "the measure squad is always the final
// phase").
var measureEntry = routingEntry{squad: model.SquadMeasure, skills: []string{"performance-report"}, rationale: "close the loop with a performance measurement"}

// phasesFor returns the routing entries for category, defaulting to the
// content category's routing when category is unrecognized (an unknown
// category still deserves a plan rather than an empty one).
func phasesFor(category model.GoalCategory) []routingEntry {
	entries, ok := routingTable[category]
	if !ok {
		entries = routingTable[model.CategoryContent]
	}
	if len(entries) == 0 || entries[len(entries)-1].squad != model.SquadMeasure {
		entries = append(append([]routingEntry(nil), entries...), measureEntry)
	}
	return entries
}
