// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package guardrail

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed vocab.yaml
var embeddedVocab []byte

// Vocabulary is the allow/deny word-list pair the Filter matches against.
type Vocabulary struct {
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

// LoadVocabulary returns the vocabulary from the YAML file at path, or the
// embedded default vocabulary when path is empty. Topic changes ship as a
// vocabulary file swap, not a redeploy.
func LoadVocabulary(path string) (Vocabulary, error) {
	data := embeddedVocab
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return Vocabulary{}, fmt.Errorf("failed to read the vocabulary file: %w", err)
		}
		data = fileData
	}

	var vocab Vocabulary
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return Vocabulary{}, fmt.Errorf("failed to unmarshal the vocabulary: %w", err)
	}
	if len(vocab.Allow) == 0 && len(vocab.Deny) == 0 {
		return Vocabulary{}, fmt.Errorf("vocabulary has no allow or deny terms")
	}
	return vocab, nil
}
