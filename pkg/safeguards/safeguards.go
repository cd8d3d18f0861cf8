package safeguards

import (
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
)

const maxTrustScore = 100

// Run executes every applicable check against skill. Directory checks run
// only when dir is non-empty. The result passes unless an error-severity
// check failed; warnings never block.
func Run(skill *skilltypes.ParsedSkill, dir string) *skilltypes.SafeguardResult {
	checks := []skilltypes.SafeguardCheck{
		CheckSchema(skill),
		CheckLineCount(skill.Content),
		CheckProhibitedPatterns(skill.Content + skill.RawFrontmatter),
	}

	if len(skill.Metadata.Quizzes) > 0 {
		checks = append(checks, CheckQuizIntegrity(skill))
	}

	if dir != "" {
		if HasScriptsDir(dir) {
			checks = append(checks, CheckScriptSafety(dir))
		}
		checks = append(checks, CheckFileSize(dir))
	}

	passed := true
	for _, c := range checks {
		if c.Blocking() {
			passed = false
		}
	}

	return &skilltypes.SafeguardResult{
		Passed: passed,
		Score:  ComputeTrustScore(skill, nil),
		Checks: checks,
	}
}

// ComputeTrustScore is an additive heuristic in [0, 100]. entry may be nil
// when the skill is not in a registry.
func ComputeTrustScore(skill *skilltypes.ParsedSkill, entry *skilltypes.RegistryEntry) int {
	m := skill.Metadata
	score := 0

	if m.Repository != "" {
		score += 10
	}
	if m.License != "" {
		score += 10
	}
	if m.Version != "" {
		score += 5
	}
	if m.Author != "" {
		score += 5
	}

	switch m.TrustLevel {
	case skilltypes.TrustOfficial:
		score += 20
	case skilltypes.TrustVerified:
		score += 15
	}

	if entry != nil {
		if entry.Rating.Average >= 3.5 {
			score += 15
		}
		if entry.Downloads > 100 {
			score += 5
		}
		if entry.Downloads > 1000 {
			score += 5
		}
	}

	if CheckProhibitedPatterns(skill.Content + skill.RawFrontmatter).Passed {
		score += 20
	}
	if CheckLineCount(skill.Content).Passed {
		score += 15
	}

	return min(score, maxTrustScore)
}
