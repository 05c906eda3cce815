// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/rs/zerolog/log"

	"codeberg.org/lingosync/lingosync/config"
	"codeberg.org/lingosync/lingosync/core/audit"
)

const (
	envOutputFile  = "deploy/.env.example"
	yamlOutputFile = "deploy/lingosync.yaml.example"
	filePerm       = 0o644
	dirPerm        = 0o755

	envFileHeader = `# lingosync configuration (via environment variables)
#
# Copy this file to .env and customize the values below.
# Lists are comma separated.
#
# This file was auto-generated using go run ./cmd/genconfig.

`
	yamlFileHeader = `# lingosync configuration (via configuration file)
#
# Copy this file to lingosync.yaml and customize the values below.
#
# This file was auto-generated using go run ./cmd/genconfig.
`
	pluralRulesComment = `
# plural_rules:
#   eo:
#     forms: [one, other]
#     expression: "n != 1"`
)

func main() {
	audit.SetDefaultLogger()

	if err := os.MkdirAll("deploy", dirPerm); err != nil {
		log.Fatal().Err(err).Msg("Failed to create deploy directory")
	}

	generateEnvFile()
	generateYAMLFile()
}

func defaults() *config.Config {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.TargetLocales = []string{"sv", "ru"}

	return cfg
}

// generateEnvFile generates the deploy/.env.example file.
func generateEnvFile() {
	var sb strings.Builder
	sb.WriteString(envFileHeader)

	writeEnvFields(&sb, reflect.ValueOf(*defaults()), "General")

	if err := os.WriteFile(envOutputFile, []byte(sb.String()), filePerm); err != nil {
		log.Fatal().Err(err).Str("path", envOutputFile).Msg("Failed to write .env.example file")
	}

	log.Info().Str("path", envOutputFile).Msg("Successfully generated .env.example")
}

// writeEnvFields writes the env-tagged fields of val as one section, then
// one section per nested struct.
func writeEnvFields(sb *strings.Builder, val reflect.Value, section string) {
	typ := val.Type()

	var nested []int

	fmt.Fprintf(sb, "## %s\n", section)

	for i := range typ.NumField() {
		field := typ.Field(i)
		value := val.Field(i)

		tag, ok := field.Tag.Lookup("env")
		if !ok {
			if value.Kind() == reflect.Struct && field.IsExported() && field.Name != "Build" {
				nested = append(nested, i)
			}

			continue
		}

		envVarName := strings.Split(tag, ",")[0]

		switch {
		case envVarName == "LINGOSYNC_TARGET_LOCALES":
			// The one setting every project needs.
			fmt.Fprintf(sb, "%s=%s\n", envVarName, strings.Join(value.Interface().([]string), ","))
		case value.Kind() == reflect.Slice:
			items := make([]string, value.Len())
			for j := range items {
				items[j] = value.Index(j).String()
			}

			fmt.Fprintf(sb, "# %s=%s\n", envVarName, strings.Join(items, ","))
		case value.Kind() == reflect.String && value.Len() == 0:
			fmt.Fprintf(sb, "# %s=\n", envVarName)
		default:
			fmt.Fprintf(sb, "# %s=%v\n", envVarName, value.Interface())
		}
	}

	sb.WriteString("\n")

	for _, i := range nested {
		writeEnvFields(sb, val.Field(i), typ.Field(i).Name)
	}
}

// generateYAMLFile generates the deploy/lingosync.yaml.example file.
func generateYAMLFile() {
	yamlContent, err := defaults().YAML()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to marshal config to YAML")
	}

	var sb strings.Builder
	sb.WriteString(yamlFileHeader)

	inLocales := false

	for line := range strings.SplitSeq(string(yamlContent), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		topLevel := !strings.HasPrefix(line, " ")

		if topLevel {
			inLocales = strings.HasPrefix(line, "target_locales:")

			sb.WriteString("\n")
		}

		// Only the target locales stay uncommented; everything else is a default.
		if inLocales {
			sb.WriteString(line + "\n")

			continue
		}

		indentSize := len(line) - len(strings.TrimLeft(line, " "))
		fmt.Fprintf(&sb, "%s# %s\n", strings.Repeat(" ", indentSize), trimmed)
	}

	sb.WriteString(pluralRulesComment + "\n")

	if err := os.WriteFile(yamlOutputFile, []byte(sb.String()), filePerm); err != nil {
		log.Fatal().Err(err).Str("path", yamlOutputFile).Msg("Failed to write config file")
	}

	log.Info().Str("path", yamlOutputFile).Msg("Successfully generated lingosync.yaml.example")
}
