package config

import (
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"

	"crunch/internal/loadgen"
)

// Profile is a saved run configuration, e.g.
//
//	duration = 120
//	intensity = 80
//	cores = 2
type Profile struct {
	Name string `toml:"name"`
	loadgen.RunConfig

	// CoresSet is false when the file leaves cores to the caller's default.
	CoresSet bool `toml:"-"`
}

// LoadProfile decodes a .toml run profile. Bounds are checked later by the
// controller; here only unknown keys and missing fields are rejected.
func LoadProfile(path string) (*Profile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("profile path is empty")
	}
	if filepath.Ext(path) != ".toml" {
		return nil, errors.Errorf("profile must be a .toml file: %s", path)
	}

	var p Profile
	meta, err := toml.DecodeFile(path, &p)
	if err != nil {
		return nil, errors.Annotate(err, "decode profile failed")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("unknown keys in profile: %v", undecoded)
	}
	for _, key := range []string{"duration", "intensity"} {
		if !meta.IsDefined(key) {
			return nil, errors.Errorf("profile is missing %s", key)
		}
	}
	p.CoresSet = meta.IsDefined("cores")
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), ".toml")
	}
	return &p, nil
}
