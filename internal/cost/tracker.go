// Package cost implements the integer-microdollar spend ledger and the
// five-level budget degradation state machine, grounded on the teacher's
// internal/cost (TokenUsage, CalculateCost) and the single-writer mutex
// discipline of internal/dispatch/ratelimit.go's RateLimiter.
package cost

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/antigravity-dev/marketing-orchestrator/internal/config"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

// ratePerMillion holds USD-per-million-token input/output pricing for a tier.
type ratePerMillion struct {
	in, out float64
}

// tierRates are the per-tier pricing table used by EstimateCost (property
// R2: estimateCost(tier, N, M) = N*rate_in/1e6 + M*rate_out/1e6).
var tierRates = map[model.ModelTier]ratePerMillion{
	model.TierOpus:   {in: 15.0, out: 75.0},
	model.TierSonnet: {in: 3.0, out: 15.0},
	model.TierHaiku:  {in: 0.8, out: 4.0},
}

// EstimateCost returns the USD cost of input/output tokens at the given tier.
func EstimateCost(tier model.ModelTier, inputTokens, outputTokens int) float64 {
	rates, ok := tierRates[tier]
	if !ok {
		rates = tierRates[model.TierSonnet]
	}
	return float64(inputTokens)*rates.in/1e6 + float64(outputTokens)*rates.out/1e6
}

// levelPolicy is the total, deterministic level -> (allowed priorities,
// forced tier) mapping required by spec §4.1 ("the mapping level ->
// (allowedPriorities, modelOverride) is total and deterministic").
type levelPolicy struct {
	allowed     map[model.Priority]bool
	forcedTier  model.ModelTier
	hasForced   bool
}

func buildLevelPolicies(cfg config.Budget) map[model.BudgetLevel]levelPolicy {
	allowAll := priSet(model.PriorityP0, model.PriorityP1, model.PriorityP2, model.PriorityP3)
	allowP012 := priSet(model.PriorityP0, model.PriorityP1, model.PriorityP2)
	allowP01 := priSet(model.PriorityP0, model.PriorityP1)
	allowP0 := priSet(model.PriorityP0)

	return map[model.BudgetLevel]levelPolicy{
		model.BudgetNormal:    {allowed: allowAll},
		model.BudgetWarning:   {allowed: allowP012},
		model.BudgetThrottle:  {allowed: allowP01},
		model.BudgetCritical:  {allowed: allowP0, forcedTier: model.ModelTier(cfg.ForcedTierCritical), hasForced: cfg.ForcedTierCritical != ""},
		model.BudgetExhausted: {allowed: map[model.Priority]bool{}, forcedTier: model.ModelTier(cfg.ForcedTierExhausted), hasForced: cfg.ForcedTierExhausted != ""},
	}
}

func priSet(ps ...model.Priority) map[model.Priority]bool {
	m := make(map[model.Priority]bool, len(ps))
	for _, p := range ps {
		m[p] = true
	}
	return m
}

// BudgetState is the derived degradation state returned by ToBudgetState.
type BudgetState struct {
	Level             model.BudgetLevel
	PercentUsed       float64
	AllowedPriorities map[model.Priority]bool
	ForcedTier        model.ModelTier
	HasForcedTier     bool
}

// Allows reports whether a task at the given priority may be scheduled.
func (b BudgetState) Allows(p model.Priority) bool {
	return b.AllowedPriorities[p]
}

// aggregateKey combines skill, model tier and day. The Tracker keeps its
// per-skill, per-model and per-day aggregates in three separate maps
// (bySkill, byModel, byDay) and does not use this type.
type aggregateKey struct {
	skill string
	tier  model.ModelTier
	day   string // YYYY-MM-DD
}

// Tracker is the process-wide cost ledger. It is the only process-wide
// mutable singleton (design note) and is safe for concurrent use.
type Tracker struct {
	mu                sync.Mutex
	cfg               config.Budget
	policies          map[model.BudgetLevel]levelPolicy
	totalMicroDollars int64
	entries           []model.CostEntry
	bySkill           map[string]int64
	byModel           map[model.ModelTier]int64
	byDay             map[string]int64
	skippedMalformed  int
	highestLevel      model.BudgetLevel
}

// NewTracker builds a Tracker from budget config.
func NewTracker(cfg config.Budget) *Tracker {
	return &Tracker{
		cfg:          cfg,
		policies:     buildLevelPolicies(cfg),
		bySkill:      make(map[string]int64),
		byModel:      make(map[model.ModelTier]int64),
		byDay:        make(map[string]int64),
		highestLevel: model.BudgetNormal,
	}
}

// toMicroDollars converts a USD float to integer microdollars with rounding,
// clamping negative inputs to zero (spec §4.1: "Negative inputs are clamped
// to zero").
func toMicroDollars(usd float64) int64 {
	if usd < 0 || math.IsNaN(usd) {
		return 0
	}
	return int64(math.Round(usd * 1_000_000))
}

// Record accumulates one cost entry into the ledger.
func (t *Tracker) Record(entry model.CostEntry) {
	micro := toMicroDollars(entry.EstimatedUSD)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalMicroDollars += micro
	t.bySkill[entry.Skill] += micro
	t.byModel[entry.ModelTier] += micro
	if entry.Timestamp.IsZero() {
		t.skippedMalformed++
	} else {
		day := entry.Timestamp.UTC().Format("2006-01-02")
		t.byDay[day] += micro
	}
	t.entries = append(t.entries, entry)

	// Recording cost never lowers the budget level (invariant I3 /
	// "recording an entry never lowers the budget level").
	state := t.computeState()
	if levelRank(state.Level) > levelRank(t.highestLevel) {
		t.highestLevel = state.Level
	}
}

// TotalSpent returns the rational dollar total reconstructed from
// microdollars.
func (t *Tracker) TotalSpent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float64(t.totalMicroDollars) / 1_000_000
}

// SpentSince sums entries with a parseable timestamp >= since; entries with
// unparseable (zero) timestamps are skipped silently per spec §4.1.
func (t *Tracker) SpentSince(since time.Time) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var micro int64
	for _, e := range t.entries {
		if e.Timestamp.IsZero() {
			continue
		}
		if !e.Timestamp.Before(since) {
			micro += toMicroDollars(e.EstimatedUSD)
		}
	}
	return float64(micro) / 1_000_000
}

// ToBudgetState derives the current BudgetState deterministically from
// accumulated spend, never allowing a recorded Record call to decrease it
// below the highest level ever observed.
func (t *Tracker) ToBudgetState() BudgetState {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := t.computeState()
	if levelRank(state.Level) < levelRank(t.highestLevel) {
		state = t.stateForLevel(t.highestLevel, state.PercentUsed)
	}
	return state
}

// computeState performs the percentUsed -> level derivation from spec §4.1,
// using strictly-less-than threshold comparisons (boundary behavior B2).
func (t *Tracker) computeState() BudgetState {
	spent := float64(t.totalMicroDollars) / 1_000_000
	total := t.cfg.TotalMonthlyUSD

	var percentUsed float64
	switch {
	case total == 0 && spent > 0:
		return t.stateForLevel(model.BudgetExhausted, math.Inf(1))
	case total == 0:
		return t.stateForLevel(model.BudgetNormal, 0)
	default:
		percentUsed = 100 * spent / total
	}

	level := model.BudgetNormal
	switch {
	case percentUsed > t.cfg.ExhaustedPct:
		level = model.BudgetExhausted
	case percentUsed > t.cfg.CriticalPct:
		level = model.BudgetCritical
	case percentUsed > t.cfg.ThrottlePct:
		level = model.BudgetThrottle
	case percentUsed > t.cfg.WarningPct:
		level = model.BudgetWarning
	}
	return t.stateForLevel(level, percentUsed)
}

func (t *Tracker) stateForLevel(level model.BudgetLevel, percentUsed float64) BudgetState {
	policy := t.policies[level]
	return BudgetState{
		Level:             level,
		PercentUsed:       percentUsed,
		AllowedPriorities: policy.allowed,
		ForcedTier:        policy.forcedTier,
		HasForcedTier:     policy.hasForced,
	}
}

// levelRank orders budget levels from least to most severe for monotonicity
// checks (invariant I2: allowedPriorities monotonically shrinks as level
// increases).
func levelRank(l model.BudgetLevel) int {
	switch l {
	case model.BudgetNormal:
		return 0
	case model.BudgetWarning:
		return 1
	case model.BudgetThrottle:
		return 2
	case model.BudgetCritical:
		return 3
	case model.BudgetExhausted:
		return 4
	default:
		return -1
	}
}

// Snapshot is a read-only view used by Flush to render the report without
// holding the tracker's lock during formatting.
type Snapshot struct {
	TotalUSD         float64
	BySkillUSD       map[string]float64
	ByModelUSD       map[model.ModelTier]float64
	ByDayUSD         map[string]float64
	SkippedMalformed int
}

func (t *Tracker) snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		TotalUSD:         float64(t.totalMicroDollars) / 1_000_000,
		BySkillUSD:       make(map[string]float64, len(t.bySkill)),
		ByModelUSD:       make(map[model.ModelTier]float64, len(t.byModel)),
		ByDayUSD:         make(map[string]float64, len(t.byDay)),
		SkippedMalformed: t.skippedMalformed,
	}
	for k, v := range t.bySkill {
		snap.BySkillUSD[k] = float64(v) / 1_000_000
	}
	for k, v := range t.byModel {
		snap.ByModelUSD[k] = float64(v) / 1_000_000
	}
	for k, v := range t.byDay {
		snap.ByDayUSD[k] = float64(v) / 1_000_000
	}
	return snap
}

// Flush renders a dated markdown cost report via writer, the way the
// teacher's reporter packages build their markdown summaries.
func (t *Tracker) Flush(now time.Time, writer func(name, content string) error) error {
	snap := t.snapshot()

	report := fmt.Sprintf("# Cost Report — %s\n\n", now.UTC().Format("2006-01-02"))
	report += fmt.Sprintf("**Total spent:** $%.6f\n\n", snap.TotalUSD)

	report += "## By skill\n\n"
	for _, k := range sortedKeys(snap.BySkillUSD) {
		report += fmt.Sprintf("- %s: $%.6f\n", k, snap.BySkillUSD[k])
	}

	report += "\n## By model tier\n\n"
	for _, k := range sortedTierKeys(snap.ByModelUSD) {
		report += fmt.Sprintf("- %s: $%.6f\n", k, snap.ByModelUSD[k])
	}

	report += "\n## By day\n\n"
	for _, k := range sortedKeys(snap.ByDayUSD) {
		report += fmt.Sprintf("- %s: $%.6f\n", k, snap.ByDayUSD[k])
	}
	if snap.SkippedMalformed > 0 {
		report += fmt.Sprintf("\n_%d entries skipped (malformed timestamp)_\n", snap.SkippedMalformed)
	}

	name := fmt.Sprintf("cost-report-%s.md", now.UTC().Format("20060102"))
	return writer(name, report)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedTierKeys(m map[model.ModelTier]float64) []model.ModelTier {
	keys := make([]model.ModelTier, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// BudgetReader is the read-only closure a component receives instead of a
// shared mutable reference (design note: "a callable/closure rather than a
// shared mutable reference").
type BudgetReader func() BudgetState

// Reader returns a BudgetReader closing over this tracker.
func (t *Tracker) Reader() BudgetReader {
	return t.ToBudgetState
}
