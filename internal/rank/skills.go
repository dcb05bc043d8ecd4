package rank

import (
	"strings"

	"jobharvest-engine/internal/config"
	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/scrape/util"
)

// SkillTagger tags jobs from keyword rules before they are submitted.
type SkillTagger struct {
	Rules []config.Rule
}

func NewSkillTagger(cfg config.Config) SkillTagger {
	return SkillTagger{Rules: cfg.Skills.Rules}
}

// Score returns the summed weight of matching rules and their tags.
func (s SkillTagger) Score(job domain.JobRecord) (int, []string) {
	text := " " + util.Fold(job.Title+" "+job.Description) + " "

	score := 0
	var tags []string
	for _, r := range s.Rules {
		for _, needle := range r.Any {
			n := util.Fold(strings.TrimSpace(needle))
			if n == "" {
				continue
			}
			if containsTerm(text, n) {
				score += r.Weight
				tags = append(tags, r.Tag)
				break
			}
		}
	}
	return score, uniq(tags)
}

// Enrich merges matched tags into Skills and fills IsRemote.
func (s SkillTagger) Enrich(job *domain.JobRecord) {
	_, tags := s.Score(*job)
	job.Skills = uniq(append(job.Skills, tags...))
	if !job.IsRemote {
		job.IsRemote = util.IsRemote(job.Location, job.Title)
	}
}

// containsTerm matches n as a whole word so "go" does not hit "google".
// text is padded with spaces by the caller.
func containsTerm(text, n string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], n)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(n)
		if !isWordByte(text[start-1]) && (end >= len(text) || !isWordByte(text[end])) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z'
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
