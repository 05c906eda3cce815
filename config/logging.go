// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const logFilePermissions = 0o644

// setupLogging points the global logger at the configured outputs.
func (cfg *Config) setupLogging() {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	writers := []io.Writer{}

	for _, output := range cfg.Log.Outputs {
		var file *os.File

		switch output {
		case "/dev/stdout":
			file = os.Stdout
		case "/dev/stderr":
			file = os.Stderr
		default:
			f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions) // #nosec:G302,G304
			if err != nil {
				// The remaining outputs still get the log.
				fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", output, err)

				continue
			}

			file = f
		}

		if cfg.Log.Format == "json" {
			writers = append(writers, file)
		} else {
			writers = append(writers, ConsoleWriter(file))
		}
	}

	if len(writers) == 0 {
		writers = append(writers, ConsoleWriter(os.Stderr))
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(writers...))
}

// ConsoleWriter returns a human readable zerolog writer, colored only when f
// is a terminal.
func ConsoleWriter(f *os.File) io.Writer {
	noColor := !isatty.IsTerminal(f.Fd())

	w := zerolog.ConsoleWriter{Out: f, NoColor: noColor, TimeFormat: time.DateTime}

	if !noColor {
		w.FormatPrepare = func(m map[string]any) error {
			// phase timings read better as "[merge sv] 12ms"
			if phase, ok := m["phase"]; ok {
				if locale, ok := m["locale"]; ok {
					m["message"] = fmt.Sprintf("[%s %s] %s", phase, locale, m["message"])
					delete(m, "locale")
				} else {
					m["message"] = fmt.Sprintf("[%s] %s", phase, m["message"])
				}

				delete(m, "phase")
			}

			return nil
		}
	}

	return w
}
