package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"kappa/internal/config"
	"kappa/internal/driver"
	"kappa/internal/trace"
	"kappa/internal/typecheck"
)

// runProgress counts definition events for the trace heartbeat.
type runProgress struct {
	queued atomic.Int64
	final  atomic.Int64
	next   driver.ProgressSink
}

func (p *runProgress) OnEvent(ev driver.Event) {
	switch {
	case ev.Status == driver.StatusQueued:
		p.queued.Add(1)
	case ev.Status.Final():
		p.final.Add(1)
	}
	if p.next != nil {
		p.next.OnEvent(ev)
	}
}

func (p *runProgress) String() string {
	return fmt.Sprintf("%d/%d definitions done", p.final.Load(), p.queued.Load())
}

// progress is shared by the command being run and the heartbeat.
var progress = &runProgress{}

// setupTracing installs the tracer described by cfg in the command
// context. The returned cleanup takes the command's error: an
// interrupted run writes out the events kept in memory.
func setupTracing(cmd *cobra.Command, cfg config.Trace) (func(error), error) {
	level, err := trace.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func(error) {}, nil
	}
	mode, err := trace.ParseMode(cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	setup, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: cfg.Output,
		RingSize:   cfg.RingSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), setup.Tracer))

	hb := trace.StartHeartbeat(setup.Tracer, heartbeat(cmd), progress.String)
	return func(runErr error) {
		hb.Stop()
		if interrupted(runErr) {
			if err := setup.DumpRing(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := setup.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}

func interrupted(err error) bool {
	return errors.Is(err, typecheck.ErrInterrupted) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
