// Package config loads the flat YAML property file consumed alongside the
// CLI flags (`inline_pass_count`, `hybrid`, `match_coverage_enabled`,
// `script_directory`, `directory`): a single sparse document merged under
// the flag values, where only the fields the file sets override.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deepsen/smli/internal/session"
)

// File is the on-disk shape of a properties YAML document.
type File struct {
	InlinePassCount     *int    `yaml:"inline_pass_count"`
	Hybrid              *bool   `yaml:"hybrid"`
	MatchCoverageEnable *bool   `yaml:"match_coverage_enabled"`
	ScriptDirectory     *string `yaml:"script_directory"`
	Directory           *string `yaml:"directory"`
	MaxUseDepth         *int    `yaml:"max_use_depth"`
}

// Load reads path (if non-empty and present) and merges it onto base,
// returning base unchanged when path is empty.
func Load(path string, base session.Properties) (session.Properties, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return base, err
	}
	return Merge(base, f), nil
}

// Merge applies every field f sets onto props, leaving the rest untouched.
func Merge(props session.Properties, f File) session.Properties {
	if f.InlinePassCount != nil {
		props.InlinePassCount = *f.InlinePassCount
	}
	if f.Hybrid != nil {
		props.Hybrid = *f.Hybrid
	}
	if f.MatchCoverageEnable != nil {
		props.MatchCoverageErrors = *f.MatchCoverageEnable
	}
	dir := f.Directory
	if f.ScriptDirectory != nil {
		dir = f.ScriptDirectory
	}
	if dir != nil {
		props.Directory = *dir
	}
	if f.MaxUseDepth != nil {
		props.MaxUseDepth = *f.MaxUseDepth
	}
	return props
}
