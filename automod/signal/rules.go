package signal

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// CategoryRule maps one category to a list of label match patterns. Patterns
// are case-insensitive regular expressions matched as substrings against the
// free-form label vocabulary of the upstream classifier. The vocabulary is
// not under our control and changes between classifier versions, which is
// why matching is pattern-based rather than an exact label set.
type CategoryRule struct {
	Category string   `json:"category"`
	Patterns []string `json:"patterns"`
}

// RuleSet is a compiled set of category rules.
type RuleSet struct {
	rules []compiledRule
}

type compiledRule struct {
	category string
	patterns []*regexp.Regexp
}

// CompileRules compiles category rules. Pattern syntax errors fail loudly at
// startup rather than silently dropping a category.
func CompileRules(rules []CategoryRule) (*RuleSet, error) {
	rs := &RuleSet{}
	for _, r := range rules {
		cr := compiledRule{category: r.Category}
		for _, p := range r.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("compiling pattern %q for category %q: %w", p, r.Category, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		rs.rules = append(rs.rules, cr)
	}
	return rs, nil
}

// LoadRulesJSON reads category rules from a JSON file, replacing the
// defaults. Lets a deployment track a new classifier vocabulary by editing
// data instead of code.
func LoadRulesJSON(path string) (*RuleSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rules []CategoryRule
	if err := json.Unmarshal(b, &rules); err != nil {
		return nil, fmt.Errorf("parsing category rules %s: %w", path, err)
	}
	return CompileRules(rules)
}

// MatchCategories returns every category whose pattern set matches the label.
func (rs *RuleSet) MatchCategories(label string) []string {
	var out []string
	for _, r := range rs.rules {
		for _, re := range r.patterns {
			if re.MatchString(label) {
				out = append(out, r.category)
				break
			}
		}
	}
	return out
}

// Categories lists the category names covered by this rule set.
func (rs *RuleSet) Categories() []string {
	out := make([]string, 0, len(rs.rules))
	for _, r := range rs.rules {
		out = append(out, r.category)
	}
	return out
}

// DefaultRules covers the NudeNet-style detector vocabulary the bot ships
// against. Label examples: FEMALE_BREAST_EXPOSED, MALE_GENITALIA_EXPOSED,
// BUTTOCKS_COVERED, weapon, blood.
func DefaultRules() *RuleSet {
	rs, err := CompileRules([]CategoryRule{
		{
			Category: CategoryExplicit,
			Patterns: []string{
				"genitalia_exposed",
				"breast_exposed",
				"buttocks_exposed",
				"anus_exposed",
				`\bporn`,
				"sexual_activity",
			},
		},
		{
			Category: CategoryPartialNudity,
			Patterns: []string{
				"_covered",
				"belly_exposed",
				"underwear",
				"cleavage",
				"lingerie",
				"suggestive",
			},
		},
		{
			Category: CategoryChildAbuse,
			Patterns: []string{
				"child",
				"minor",
				"csam",
				"csem",
				"teen_exposed",
			},
		},
		{
			Category: CategoryViolence,
			Patterns: []string{
				"weapon",
				"blood",
				"gore",
				"corpse",
				"violence",
				"hanging",
			},
		},
		{
			Category: CategoryDrugs,
			Patterns: []string{
				"drug",
				"syringe",
				"pill",
				"smoking",
				"cannabis",
			},
		},
	})
	if err != nil {
		// built-in patterns are static and must compile
		panic(err)
	}
	return rs
}

// NormalizeLabel lower-cases a classifier label for stable merged-map keys.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
