package quality

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules holds the integrity-check thresholds. Defaults match the audit
// baseline; a rules.yaml can override them per dataset.
type Rules struct {
	RequiredColumns []string `yaml:"required_columns"`
	MaxFutureDays   int      `yaml:"max_future_days"`
}

// DefaultRules returns the baseline rule set.
func DefaultRules() Rules {
	return Rules{
		RequiredColumns: []string{"Billed Amount"},
		MaxFutureDays:   1,
	}
}

// LoadRules reads a rule set from a YAML file, filling unset values from the
// defaults.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "quality: read rules %s", path)
	}

	// The YAML has a top-level "rules" key
	var wrapper struct {
		Rules Rules `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Rules{}, eris.Wrap(err, "quality: parse rules")
	}

	rules := wrapper.Rules
	defaults := DefaultRules()
	if len(rules.RequiredColumns) == 0 {
		rules.RequiredColumns = defaults.RequiredColumns
	}
	if rules.MaxFutureDays == 0 {
		rules.MaxFutureDays = defaults.MaxFutureDays
	}
	return rules, nil
}
