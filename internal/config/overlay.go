package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type SkillsFile struct {
	Rules []Rule `yaml:"rules"`
}

// OverlaySkills replaces skill rules with those in skillsPath when that file
// exists and has rules.
func OverlaySkills(cfg *Config, skillsPath string) error {
	b, err := os.ReadFile(skillsPath)
	if err != nil {
		// Missing skills file should not kill startup
		return nil
	}

	var sf SkillsFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return err
	}
	if len(sf.Rules) > 0 {
		cfg.Skills.Rules = sf.Rules
	}
	return nil
}
