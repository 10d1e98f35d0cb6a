package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Tracer receives trace events. Implementations are safe for concurrent
// use; the driver checks definitions in parallel.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// StorageMode determines where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they arrive
	ModeRing                          // last N kept in memory
	ModeBoth
)

var modeNames = map[StorageMode]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m StorageMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

func ParseMode(s string) (StorageMode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return ModeRing, fmt.Errorf("invalid storage mode: %q (expected: stream|ring|both)", s)
}

// Config describes the tracer built by New.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format    // FormatAuto picks by OutputPath extension
	Output     io.Writer // overrides OutputPath
	OutputPath string    // "" or "-" is stderr
	RingSize   int
	Heartbeat  time.Duration
}

// Setup is a configured tracer with the sinks it writes to.
type Setup struct {
	Tracer Tracer
	// Ring is set when events are kept in memory.
	Ring *RingTracer
	// Out receives ring dumps; nil when nothing was opened.
	Out    io.Writer
	Format Format
	cfg    Config
	closer io.Closer
}

// New builds the tracer described by cfg. LevelError always keeps a ring
// and streams nothing, whatever the mode.
func New(cfg Config) (*Setup, error) {
	if cfg.Level == LevelOff {
		return &Setup{Tracer: Nop}, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = 4096
	}
	format := cfg.Format
	if format == FormatAuto {
		format = detectFormat(cfg.OutputPath)
	}
	mode := cfg.Mode
	if cfg.Level == LevelError {
		mode = ModeRing
	}
	s := &Setup{Format: format, cfg: cfg}
	var stream *StreamTracer
	switch mode {
	case ModeRing:
	case ModeStream, ModeBoth:
		if err := s.open(); err != nil {
			return nil, err
		}
		stream = NewStreamTracer(s.Out, cfg.Level, format)
	default:
		return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
	}
	if mode != ModeStream {
		s.Ring = NewRingTracer(cfg.RingSize, cfg.Level)
	}
	switch {
	case stream != nil && s.Ring != nil:
		s.Tracer = NewMultiTracer(stream, s.Ring)
	case stream != nil:
		s.Tracer = stream
	default:
		s.Tracer = s.Ring
	}
	return s, nil
}

func (s *Setup) open() error {
	cfg := s.cfg
	switch {
	case s.Out != nil:
	case cfg.Output != nil:
		s.Out = cfg.Output
	case cfg.OutputPath == "" || cfg.OutputPath == "-":
		s.Out = os.Stderr
	default:
		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			return fmt.Errorf("failed to open trace output: %w", err)
		}
		s.Out, s.closer = f, f
	}
	return nil
}

// DumpRing writes the ring contents to the output. It does nothing for
// stream-only setups, whose events are already written.
func (s *Setup) DumpRing() error {
	if s.Ring == nil {
		return nil
	}
	if err := s.open(); err != nil {
		return err
	}
	return s.Ring.Dump(s.Out, s.Format)
}

// Close flushes the tracer and closes the output file.
func (s *Setup) Close() error {
	err := s.Tracer.Close()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
