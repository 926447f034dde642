// Package iopolicy reads policy.yaml with the blacklist and homonym
// exclusions of the backbone build.
package iopolicy

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gnames/gnnub/pkg/policy"
	"gopkg.in/yaml.v3"
)

// Load reads a policy file. A missing file gives an empty policy.
func Load(path string) (*policy.Policy, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Warn("Policy file not found, using empty policy", "path", path)
		return policy.New(nil, nil), nil
	}
	if err != nil {
		return nil, PolicyConfigError(path, err)
	}

	res, err := Parse(data)
	if err != nil {
		return nil, PolicyConfigError(path, err)
	}

	slog.Info("Policy loaded",
		"path", path,
		"blacklist", len(res.Blacklist),
		"homonym_exclusions", len(res.Exclusions),
	)
	return res, nil
}

// Parse decodes policy YAML and indexes the result.
func Parse(data []byte) (*policy.Policy, error) {
	var res policy.Policy
	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	for i, v := range res.Exclusions {
		if v.Name == "" || v.Taxon == "" {
			return nil, fmt.Errorf(
				"homonym exclusion %d: both name and taxon are required", i+1,
			)
		}
	}
	res.Index()
	return &res, nil
}
