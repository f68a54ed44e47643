// Package prompts holds the text templates consumed by the research engine.
//
// Templates use text/template syntax over [Vars]. The engine treats rendered
// prompts as opaque strings; wording can be replaced wholesale with a YAML
// file via [LoadFile].
package prompts

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Vars are the values available to every template.
type Vars struct {
	Date                     string
	Topic                    string
	ResearchBrief            string
	Findings                 string
	Messages                 string
	MaxConcurrentResearchers int
	MaxIterations            int
}

// Set is the full collection of templates used by one engine.
type Set struct {
	Researcher    string `yaml:"researcher"`
	Compress      string `yaml:"compress"`
	CompressHuman string `yaml:"compress_human"`
	Supervisor    string `yaml:"supervisor"`
	FinalReport   string `yaml:"final_report"`
	Clarify       string `yaml:"clarify"`
	Brief         string `yaml:"brief"`
}

// Default returns the built-in template set.
func Default() Set {
	return Set{
		Researcher:    researcherPrompt,
		Compress:      compressPrompt,
		CompressHuman: compressHumanPrompt,
		Supervisor:    supervisorPrompt,
		FinalReport:   finalReportPrompt,
		Clarify:       clarifyPrompt,
		Brief:         briefPrompt,
	}
}

// LoadFile reads a YAML file and overlays its non-empty templates on top of
// Default. Every resulting template is parsed so syntax errors surface at
// load time rather than mid-run.
func LoadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read prompts: %w", err)
	}

	var override Set
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Set{}, fmt.Errorf("parse prompts %s: %w", path, err)
	}

	s := Default().Merge(override)
	if err := s.Validate(); err != nil {
		return Set{}, fmt.Errorf("prompts %s: %w", path, err)
	}
	return s, nil
}

// Merge returns s with every non-empty template of o applied on top.
func (s Set) Merge(o Set) Set {
	pick := func(dst *string, src string) {
		if strings.TrimSpace(src) != "" {
			*dst = src
		}
	}
	pick(&s.Researcher, o.Researcher)
	pick(&s.Compress, o.Compress)
	pick(&s.CompressHuman, o.CompressHuman)
	pick(&s.Supervisor, o.Supervisor)
	pick(&s.FinalReport, o.FinalReport)
	pick(&s.Clarify, o.Clarify)
	pick(&s.Brief, o.Brief)
	return s
}

// Validate parses every template in the set.
func (s Set) Validate() error {
	for name, text := range s.named() {
		if _, err := template.New(name).Option("missingkey=error").Parse(text); err != nil {
			return fmt.Errorf("template %s: %w", name, err)
		}
	}
	return nil
}

func (s Set) named() map[string]string {
	return map[string]string{
		"researcher":     s.Researcher,
		"compress":       s.Compress,
		"compress_human": s.CompressHuman,
		"supervisor":     s.Supervisor,
		"final_report":   s.FinalReport,
		"clarify":        s.Clarify,
		"brief":          s.Brief,
	}
}

// Render executes tmpl with v.
func Render(tmpl string, v Vars) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse prompt: %w", err)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, v); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}
