package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/exp/slices"
)

// MergeConfig controls how the geometries of one COLLADA file become models.
// The only supported operation is merging geometries under a new name.
//
//	[[merges]]
//	name = "Cubes"
//	geometries = ["Cube", "Cube.001"]
type MergeConfig struct {
	Merges []MergeRule `toml:"merges"`
}

// MergeRule gathers the named geometries into one model called Name.
type MergeRule struct {
	Name       string   `toml:"name"`
	Geometries []string `toml:"geometries"`
}

func ParseMergeConfig(data []byte) (*MergeConfig, error) {
	var cfg MergeConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse merge config: %w", err)
	}
	for i, m := range cfg.Merges {
		if m.Name == "" {
			return nil, fmt.Errorf("merge %d has no name", i)
		}
	}
	return &cfg, nil
}

// LoadMergeConfig reads a merge config from disk. A missing file yields an
// empty config.
func LoadMergeConfig(path string) (*MergeConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &MergeConfig{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseMergeConfig(data)
}

// Apply merges the named geometries. Merged models are returned first, in
// config order, followed by the models no merge referenced. A geometry name
// that cannot be found is an error.
func (c *MergeConfig) Apply(models []*Model) ([]*Model, error) {
	if c == nil || len(c.Merges) == 0 {
		return models, nil
	}
	remaining := slices.Clone(models)
	out := make([]*Model, 0, len(models))
	for _, merge := range c.Merges {
		sources := make([]*Model, 0, len(merge.Geometries))
		for _, name := range merge.Geometries {
			i := slices.IndexFunc(remaining, func(m *Model) bool { return m.Name == name })
			if i < 0 {
				return nil, fmt.Errorf("merge %q: did not find mesh named %q", merge.Name, name)
			}
			sources = append(sources, remaining[i])
			remaining = slices.Delete(remaining, i, i+1)
		}
		out = append(out, Merge(merge.Name, sources))
	}
	return append(out, remaining...), nil
}
