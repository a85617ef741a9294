// Package extract implements the rule-based field extraction engine: ordered
// recognition rules per field kind, confidence scoring with format and
// position adjustments, candidate selection, and line-item parsing.
package extract

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

// Rule is one recognition pattern for a field kind. Pattern must contain at
// least one capture group; the first group is the candidate value. Lower
// priority numbers win ties.
type Rule struct {
	ID             string  `yaml:"id"`
	Pattern        string  `yaml:"pattern"`
	BaseConfidence float64 `yaml:"base_confidence"`
	Priority       int     `yaml:"priority"`

	re     *regexp.Regexp
	weight float64
}

// Scoring holds the confidence adjustment knobs. All deltas are applied on
// top of a rule's base confidence and the result is clamped to [0,1].
type Scoring struct {
	FormatBonus       float64 `yaml:"format_bonus"`
	RegionPenalty     float64 `yaml:"region_penalty"`
	CrossCheckBonus   float64 `yaml:"crosscheck_bonus"`
	CrossCheckPenalty float64 `yaml:"crosscheck_penalty"`
	AbsTolerance      float64 `yaml:"crosscheck_abs_tolerance"`
	RelTolerance      float64 `yaml:"crosscheck_rel_tolerance"`
}

func DefaultScoring() Scoring {
	return Scoring{
		FormatBonus:       0.05,
		RegionPenalty:     0.15,
		CrossCheckBonus:   0.10,
		CrossCheckPenalty: 0.20,
		AbsTolerance:      0.01,
		RelTolerance:      0.01,
	}
}

// RuleSet is the full extractor configuration: per-kind ordered rules plus
// scoring settings. Construct through Load or DefaultRuleSet, then optionally
// ApplyWeights with trained bonuses.
type RuleSet struct {
	Scoring Scoring                     `yaml:"scoring"`
	Fields  map[domain.FieldKind][]Rule `yaml:"fields"`
}

type ruleSetFile struct {
	Scoring *Scoring          `yaml:"scoring"`
	Fields  map[string][]Rule `yaml:"fields"`
}

// Load reads a rule table from a YAML file. Structural problems are fatal
// before any extraction runs.
func Load(path string) (*RuleSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfig, "read rule file", err)
	}
	var file ruleSetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, domain.WrapError(domain.ErrConfig, "parse rule file", err)
	}

	set := &RuleSet{Scoring: DefaultScoring(), Fields: make(map[domain.FieldKind][]Rule)}
	if file.Scoring != nil {
		set.Scoring = *file.Scoring
	}
	for name, rules := range file.Fields {
		kind, err := domain.ParseFieldKind(name)
		if err != nil || kind == domain.KindLineItem {
			return nil, domain.WrapError(domain.ErrConfig, "rule file", fmt.Errorf("unknown scalar field kind %q", name))
		}
		set.Fields[kind] = rules
	}
	if err := set.compile(); err != nil {
		return nil, err
	}
	return set, nil
}

// DefaultRuleSet is the built-in table, used when no rule file is configured.
func DefaultRuleSet() *RuleSet {
	set := &RuleSet{
		Scoring: DefaultScoring(),
		Fields: map[domain.FieldKind][]Rule{
			domain.KindInvoiceNumber: {
				{ID: "invoice_number.labeled", Pattern: `(?i)(?:invoice|inv|bill|doc)[\s#]*(?:number|no|num)?[\s:#]*([A-Za-z0-9][A-Za-z0-9\-/._]{2,19})`, BaseConfidence: 0.90, Priority: 1},
				{ID: "invoice_number.reference", Pattern: `(?i)\b(?:reference|ref)[\s#]*(?:number|no|num)?[\s:]*([A-Za-z0-9][A-Za-z0-9\-/._]{2,19})`, BaseConfidence: 0.80, Priority: 2},
				{ID: "invoice_number.bare", Pattern: `^\s*([A-Z]{2,4}-?[0-9]{3,10})\s*$`, BaseConfidence: 0.60, Priority: 3},
			},
			domain.KindDate: {
				{ID: "date.labeled", Pattern: `(?i)(?:invoice|bill|issue|created)?\s*date\s*[:\s]\s*([0-9]{1,4}[-/.][0-9]{1,2}[-/.][0-9]{1,4})`, BaseConfidence: 0.90, Priority: 1},
				{ID: "date.textual", Pattern: `(?i)\b([0-9]{1,2}(?:st|nd|rd|th)?\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+[0-9]{2,4})\b`, BaseConfidence: 0.75, Priority: 2},
				{ID: "date.bare", Pattern: `([0-9]{1,4}[-/.][0-9]{1,2}[-/.][0-9]{1,4})`, BaseConfidence: 0.60, Priority: 3},
			},
			domain.KindSupplier: {
				{ID: "supplier.labeled", Pattern: `(?i)\b(?:from|supplier|vendor|bill\s*from|sold\s*by)\s*:\s*([A-Za-z][A-Za-z0-9\s&.,'-]{1,60})`, BaseConfidence: 0.85, Priority: 1},
				{ID: "supplier.company", Pattern: `^\s*([A-Z][A-Za-z0-9\s&.,'-]{3,60}(?i:ltd|llc|inc|corp|gmbh|co)\.?)\s*$`, BaseConfidence: 0.65, Priority: 2},
			},
			domain.KindTotal: {
				{ID: "total.labeled", Pattern: `(?i)\b(?:grand\s+total|total\s+due|amount\s+due|balance\s+due|total)\b\s*:?\s*\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`, BaseConfidence: 0.90, Priority: 1},
				{ID: "total.currency", Pattern: `(?i)\$\s*([0-9][0-9,]*(?:\.[0-9]+)?)\s*(?:total|due|balance)\b`, BaseConfidence: 0.70, Priority: 2},
			},
			domain.KindSubtotal: {
				{ID: "subtotal.labeled", Pattern: `(?i)\b(?:subtotal|sub\s+total|net\s+amount)\b\s*:?\s*\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`, BaseConfidence: 0.85, Priority: 1},
				{ID: "subtotal.pretax", Pattern: `(?i)\b(?:before\s+tax|pre[-\s]?tax)\b\s*:?\s*\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`, BaseConfidence: 0.70, Priority: 2},
			},
			domain.KindVAT: {
				{ID: "vat.labeled", Pattern: `(?i)\b(?:vat|tax|gst|sales\s+tax)\b\s*(?:amount)?\s*(?:\([0-9]+%\))?\s*:?\s*\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`, BaseConfidence: 0.85, Priority: 1},
			},
		},
	}
	if err := set.compile(); err != nil {
		// Built-in patterns are covered by tests; a compile failure here is a
		// programming error.
		panic(err)
	}
	return set
}

func (s *RuleSet) compile() error {
	if len(s.Fields) == 0 {
		return domain.WrapError(domain.ErrConfig, "rule set", fmt.Errorf("no field rules configured"))
	}
	for kind, rules := range s.Fields {
		if len(rules) == 0 {
			return domain.WrapError(domain.ErrConfig, "rule set", fmt.Errorf("field %q has no rules", kind))
		}
		for i := range rules {
			rule := &rules[i]
			if rule.ID == "" {
				return domain.WrapError(domain.ErrConfig, "rule set", fmt.Errorf("field %q rule %d missing id", kind, i))
			}
			if rule.Pattern == "" {
				return domain.WrapError(domain.ErrConfig, "rule set", fmt.Errorf("rule %q missing pattern", rule.ID))
			}
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return domain.WrapError(domain.ErrConfig, "rule set", fmt.Errorf("rule %q pattern: %v", rule.ID, err))
			}
			if re.NumSubexp() < 1 {
				return domain.WrapError(domain.ErrConfig, "rule set", fmt.Errorf("rule %q pattern has no capture group", rule.ID))
			}
			if rule.BaseConfidence < 0 || rule.BaseConfidence > 1 {
				return domain.WrapError(domain.ErrConfig, "rule set", fmt.Errorf("rule %q base confidence %v outside [0,1]", rule.ID, rule.BaseConfidence))
			}
			rule.re = re
		}
		// Deterministic rule order regardless of file order.
		sort.SliceStable(rules, func(a, b int) bool { return rules[a].Priority < rules[b].Priority })
		s.Fields[kind] = rules
	}
	if s.Scoring.AbsTolerance < 0 || s.Scoring.RelTolerance < 0 {
		return domain.WrapError(domain.ErrConfig, "rule set", fmt.Errorf("negative cross-check tolerance"))
	}
	return nil
}

// maxRuleWeight bounds trained adjustments so a weight can nudge a rule, not
// rewrite it.
const maxRuleWeight = 0.2

// ApplyWeights folds trained per-rule bonuses into the table. The original
// YAML is never rewritten; weights live only in the loaded set.
func (s *RuleSet) ApplyWeights(weights domain.RuleWeights) {
	if len(weights) == 0 {
		return
	}
	for kind, rules := range s.Fields {
		for i := range rules {
			w, ok := weights[rules[i].ID]
			if !ok {
				continue
			}
			if w > maxRuleWeight {
				w = maxRuleWeight
			}
			if w < -maxRuleWeight {
				w = -maxRuleWeight
			}
			rules[i].weight = w
		}
		s.Fields[kind] = rules
	}
}
