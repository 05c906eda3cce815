// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package audit

import (
	"context"
	"fmt"
	"runtime/trace"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Phase names one step of a pipeline run.
type Phase string

// Pipeline phases.
const (
	PhaseScan     Phase = "scan"
	PhaseLoad     Phase = "load"
	PhaseMerge    Phase = "merge"
	PhaseValidate Phase = "validate"
	PhaseWrite    Phase = "write"
	PhaseRecord   Phase = "record"
)

// PhaseObserver receives the duration of every finished span.
type PhaseObserver interface {
	ObservePhase(phase string, d time.Duration)
}

// Span represents a pipeline phase in flight.
type Span struct {
	// only these fields are set automatically
	task     *trace.Task
	start    time.Time
	duration time.Duration

	Phase  Phase
	Locale string
	// Items is what the phase processed: files, entries or findings.
	Items int
	// Bytes is the size of what the phase read or wrote, if any.
	Bytes int
	Error error

	Observer PhaseObserver
	Logger   *zerolog.Logger
}

// Begin starts the span and a runtime/trace task for it.
func (span *Span) Begin(ctx context.Context) context.Context {
	span.start = time.Now()

	ctx, span.task = trace.NewTask(ctx, "lingosync."+string(span.Phase))
	if span.Locale != "" {
		trace.Log(ctx, "locale", span.Locale)
	}

	return ctx
}

// End stops the span and reports its duration to the observer.
func (span *Span) End() {
	// only end once
	if span.task == nil {
		return
	}

	span.duration = time.Since(span.start)
	span.task.End()
	span.task = nil

	if span.Observer != nil {
		span.Observer.ObservePhase(string(span.Phase), span.duration)
	}
}

// Duration returns how long the span ran. It is zero before End.
func (span *Span) Duration() time.Duration {
	return span.duration
}

// Log writes the span at debug level, or at error level when it failed.
func (span *Span) Log() {
	logger := span.Logger
	if logger == nil {
		logger = &log.Logger
	}

	event := logger.Debug()
	if span.Error != nil {
		event = logger.Error().Err(span.Error)
	}

	event.Str("sys", "audit")
	event.Str("phase", string(span.Phase))

	if span.Locale != "" {
		event.Str("locale", span.Locale)
	}

	event.Int("items", span.Items)

	if span.Bytes > 0 {
		event.Str("len", humanizeSize(span.Bytes))
	}

	event.Dur("dur", span.duration)
	event.Msg("Phase finished")
}

// Run wraps fn in a span for phase and logs it. The span is passed to fn so
// that it can fill in Items and Bytes.
func Run(ctx context.Context, phase Phase, locale string, observer PhaseObserver, fn func(ctx context.Context, span *Span) error) error {
	span := &Span{Phase: phase, Locale: locale, Observer: observer}
	ctx = span.Begin(ctx)

	span.Error = fn(ctx, span)

	span.End()
	span.Log()

	return span.Error
}

const (
	bytesInKB = 1024
	bytesInMB = bytesInKB * bytesInKB
	bytesInGB = bytesInMB * bytesInKB
)

func humanizeSize(x int) string {
	if x < bytesInKB {
		return strconv.Itoa(x)
	}

	if x < bytesInMB {
		return fmt.Sprintf("%.2fK", float64(x)/bytesInKB)
	}

	if x < bytesInGB {
		return fmt.Sprintf("%.2fM", float64(x)/bytesInMB)
	}

	return fmt.Sprintf("%.2fG", float64(x)/bytesInGB)
}
