package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const defaultConfigFile = "config.toml"

// ReadConfig loads config.toml over the built-in defaults and populates
// the package-level Config.
func ReadConfig() (*configDefinition, error) {
	return ReadConfigFile(defaultConfigFile)
}

func ReadConfigFile(path string) (*configDefinition, error) {
	k := koanf.New(".")

	// Defaults first, then the file on top.
	if err := k.Load(structs.Provider(Config, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := k.Unmarshal("", &Config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &Config, nil
}
