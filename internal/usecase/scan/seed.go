package scan

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the watchlist layout:
//
//	groups:
//	  - "123456"
//	  - https://www.roblox.com/groups/987654/name
//
// A bare top-level list is accepted as well.
type seedFile struct {
	Groups []string `yaml:"groups"`
}

// LoadSeedFile reads raw candidate strings from a YAML watchlist. Entries are
// returned as written; extraction happens per cycle. A missing file yields no
// seeds and no error.
func LoadSeedFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("LoadSeedFile: %w", err)
	}
	return parseSeeds(data)
}

// parseSeeds accepts the groups mapping or a bare list. Unknown mapping keys
// are rejected so a misspelled key cannot silently empty the watchlist.
func parseSeeds(data []byte) ([]string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeedFile, err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	switch root.Content[0].Kind {
	case yaml.MappingNode:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		var doc seedFile
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSeedFile, err)
		}
		return doc.Groups, nil
	case yaml.SequenceNode:
		var list []string
		if err := root.Content[0].Decode(&list); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSeedFile, err)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("%w: expected a groups mapping or a list", ErrInvalidSeedFile)
	}
}
