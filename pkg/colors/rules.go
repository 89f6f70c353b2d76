package colors

import (
	"errors"
	"fmt"
)

//ErrInvalidRule is returned by NewClassifier for a malformed rule table
var ErrInvalidRule = errors.New("invalid color rule")

//HSVRange is an inclusive box in HSV space
type HSVRange struct {
	HueLow  uint8 `json:"hue_low" mapstructure:"hue_low"`
	HueHigh uint8 `json:"hue_high" mapstructure:"hue_high"`
	SatLow  uint8 `json:"sat_low" mapstructure:"sat_low"`
	SatHigh uint8 `json:"sat_high" mapstructure:"sat_high"`
	ValLow  uint8 `json:"val_low" mapstructure:"val_low"`
	ValHigh uint8 `json:"val_high" mapstructure:"val_high"`
}

//Contains reports whether c lies inside the range, bounds included
func (r HSVRange) Contains(c HSV) bool {
	return c.H >= r.HueLow && c.H <= r.HueHigh &&
		c.S >= r.SatLow && c.S <= r.SatHigh &&
		c.V >= r.ValLow && c.V <= r.ValHigh
}

//Rule maps one or more ranges onto a category. Red is the only rule in the default table with two
//ranges, since its hue band wraps around the end of the hue axis.
type Rule struct {
	Category Category   `json:"category" mapstructure:"category"`
	Ranges   []HSVRange `json:"ranges" mapstructure:"ranges"`
}

//Matches reports whether any of the rule's ranges contains c
func (r Rule) Matches(c HSV) bool {
	for _, rng := range r.Ranges {
		if rng.Contains(c) {
			return true
		}
	}
	return false
}

//DefaultRules returns the reference rule table. Order matters: ranges overlap at their edges
//(black and gray share V=50, white and gray share V=200) and the first match wins.
func DefaultRules() []Rule {
	return []Rule{
		{Category: Blue, Ranges: []HSVRange{{100, 130, 50, 255, 50, 255}}},
		{Category: Red, Ranges: []HSVRange{{0, 10, 50, 255, 50, 255}, {170, 180, 50, 255, 50, 255}}},
		{Category: Green, Ranges: []HSVRange{{40, 80, 50, 255, 50, 255}}},
		{Category: Yellow, Ranges: []HSVRange{{20, 40, 50, 255, 50, 255}}},
		{Category: White, Ranges: []HSVRange{{0, 180, 0, 30, 200, 255}}},
		{Category: Black, Ranges: []HSVRange{{0, 180, 0, 255, 0, 50}}},
		{Category: Gray, Ranges: []HSVRange{{0, 180, 0, 30, 50, 200}}},
	}
}

//Classifier assigns a Category to a color using an ordered rule table. It is immutable and safe for
//concurrent use.
type Classifier struct {
	rules []Rule
}

var defaultClassifier = &Classifier{rules: DefaultRules()}

//NewClassifier validates rules and returns a classifier owning a copy of them
func NewClassifier(rules []Rule) (*Classifier, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("NewClassifier: empty rule table: %w", ErrInvalidRule)
	}

	owned := make([]Rule, len(rules))
	for i, rule := range rules {
		if !rule.Category.Valid() {
			return nil, fmt.Errorf("NewClassifier: rule %d has unknown category %q: %w", i, rule.Category, ErrInvalidRule)
		}
		if len(rule.Ranges) == 0 {
			return nil, fmt.Errorf("NewClassifier: rule %d (%s) has no ranges: %w", i, rule.Category, ErrInvalidRule)
		}
		for j, rng := range rule.Ranges {
			if rng.HueLow > rng.HueHigh || rng.SatLow > rng.SatHigh || rng.ValLow > rng.ValHigh {
				return nil, fmt.Errorf("NewClassifier: rule %d (%s) range %d has low > high: %w", i, rule.Category, j, ErrInvalidRule)
			}
		}

		owned[i] = Rule{Category: rule.Category, Ranges: append([]HSVRange(nil), rule.Ranges...)}
	}

	return &Classifier{rules: owned}, nil
}

//Classify returns the category of the first rule matching c, or Other
func (c *Classifier) Classify(hsv HSV) Category {
	for _, rule := range c.rules {
		if rule.Matches(hsv) {
			return rule.Category
		}
	}
	return Other
}

//ClassifyBGR converts to HSV and classifies
func (c *Classifier) ClassifyBGR(bgr BGR) Category {
	return c.Classify(BGRToHSV(bgr))
}

//Classify classifies with the default rule table
func Classify(hsv HSV) Category {
	return defaultClassifier.Classify(hsv)
}

//ClassifyBGR classifies a BGR color with the default rule table
func ClassifyBGR(bgr BGR) Category {
	return defaultClassifier.ClassifyBGR(bgr)
}
