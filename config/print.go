// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// print logs the effective configuration at debug level.
func (cfg *Config) print() {
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		return
	}

	log.Debug().
		Str("version", BuildVersion).
		Str("revision", cfg.Build.Revision()).
		Str("config", cfg.ConfigFile).
		Msg("Starting lingosync")

	configYAML, err := cfg.YAML()
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal config to YAML for printing")

		return
	}

	log.Debug().Msg("Effective configuration:\n" + string(configYAML))
}

// YAML renders the configuration the way it is written in lingosync.yaml.
func (cfg *Config) YAML() ([]byte, error) {
	return yaml.MarshalWithOptions(cfg, yaml.Indent(2), yaml.IndentSequence(true))
}
