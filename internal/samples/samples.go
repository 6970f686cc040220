// Package samples holds the catalogue of ready-made prompts offered next to the form.
package samples

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"marv/internal/types"
)

//go:embed samples.yaml
var catalogueYAML []byte

// Load parses the embedded catalogue.
func Load() ([]types.SamplePrompt, error) {
	return Parse(catalogueYAML)
}

// Parse decodes a YAML list of sample prompts and rejects entries without a prompt
// or with a duplicate id.
func Parse(data []byte) ([]types.SamplePrompt, error) {
	var prompts []types.SamplePrompt
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("decode sample prompts: %w", err)
	}

	seen := make(map[int]bool, len(prompts))
	for _, p := range prompts {
		if p.Prompt == "" {
			return nil, fmt.Errorf("sample prompt %d has no prompt text", p.ID)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate sample prompt id %d", p.ID)
		}
		seen[p.ID] = true
	}
	return prompts, nil
}

// Find returns the prompt with the given id.
func Find(prompts []types.SamplePrompt, id int) (types.SamplePrompt, bool) {
	for _, p := range prompts {
		if p.ID == id {
			return p, true
		}
	}
	return types.SamplePrompt{}, false
}
