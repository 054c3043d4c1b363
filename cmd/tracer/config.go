package main

import (
	"fmt"
	"strings"

	"github.com/mixedstack/tracer/internal/merge"
)

type (
	ServiceConfig struct {
		Environment string `env:"TRACER_ENVIRONMENT" env-default:"development"`
		Port        int    `env:"PORT" env-default:"8080"`

		SentryDSN string `env:"SENTRY_DSN"`

		// Extra boundary rules appended to the defaults, as a
		// comma-separated list of kind:pattern entries, e.g.
		// "contains:_PyEval_Vector,prefix:Py_Main".
		BoundaryRules string `env:"TRACER_BOUNDARY_RULES"`

		MergedStacksKafkaBrokers []string `env:"TRACER_MERGED_STACKS_KAFKA_BROKERS" env-separator:","`
		MergedStacksKafkaTopic   string   `env:"TRACER_MERGED_STACKS_KAFKA_TOPIC" env-default:"merged-stacks"`
	}
)

func (c ServiceConfig) boundaryRules() ([]merge.Rule, error) {
	rules := merge.DefaultRules()
	if c.BoundaryRules == "" {
		return rules, nil
	}
	for _, entry := range strings.Split(c.BoundaryRules, ",") {
		kind, pattern, found := strings.Cut(entry, ":")
		if !found || pattern == "" {
			return nil, fmt.Errorf("malformed boundary rule %q", entry)
		}
		switch k := merge.MatchKind(kind); k {
		case merge.MatchContains, merge.MatchPrefix:
			rules = append(rules, merge.Rule{Kind: k, Pattern: pattern})
		default:
			return nil, fmt.Errorf("unknown boundary rule kind %q", kind)
		}
	}
	return rules, nil
}
