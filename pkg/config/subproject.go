package config

import (
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/ewagner-dev/nestup/pkg/errors"
	"github.com/ewagner-dev/nestup/pkg/types"
)

// SubprojectConfig is the optional .nestup.toml a subproject may carry to
// influence how it is processed.
type SubprojectConfig struct {
	// Skip excludes the directory from discovery entirely, like an entry
	// in the ignore set.
	Skip bool `toml:"skip"`

	// AllowOverride lets this subproject's constraints win conflicts
	// against the main manifest (subWins policy).
	AllowOverride bool `toml:"allow-override"`
}

// LoadSubprojectConfig reads dir/.nestup.toml when present. The boolean
// reports whether the file exists.
func LoadSubprojectConfig(fsys types.FS, dir string) (SubprojectConfig, bool, error) {
	path := filepath.Join(dir, SubprojectConfigFile)
	if _, err := fsys.Stat(path); err != nil {
		return SubprojectConfig{}, false, nil
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return SubprojectConfig{}, true, errors.Wrap(err, errors.ErrConfigLoad, "cannot read subproject config").
			WithDetail("path", path)
	}

	var cfg SubprojectConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return SubprojectConfig{}, true, errors.Wrap(err, errors.ErrConfigParse, "failed to parse TOML").
			WithDetail("path", path)
	}
	return cfg, true, nil
}
