// Package driver checks the declarations of a module in dependency order.
// Independent definitions of a batch are checked concurrently, each by its
// own checker, and published into a shared registry.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"kappa/internal/concrete"
	"kappa/internal/deps"
	"kappa/internal/deps/dag"
	"kappa/internal/diag"
	"kappa/internal/observ"
	"kappa/internal/trace"
	"kappa/internal/typecheck"
)

// ErrUnknownDefinition is returned by Drop for names the module does not
// declare.
var ErrUnknownDefinition = errors.New("unknown definition")

// maxAttempts bounds how often a definition is checked again in one run
// when its dependencies keep moving.
const maxAttempts = 3

type Options struct {
	// Jobs limits the concurrent checks of a batch; zero means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics limits the diagnostics kept per definition.
	MaxDiagnostics int
	// Timeout bounds one run; zero means none.
	Timeout  time.Duration
	Check    typecheck.Options
	Progress ProgressSink
	// Timer, when set, records the order and check phases of every run.
	Timer *observ.Timer
}

// Session owns the results of checking one module. Runs are serialised;
// Drop may be called at any time, including from a ProgressSink.
type Session struct {
	reg    *typecheck.Registry
	col    *deps.Collector
	mod    *concrete.Module
	owners map[string]string
	opts   Options

	run sync.Mutex

	// mu orders commits against invalidation.
	mu   sync.Mutex
	bags map[string]*diag.Bag
}

func NewSession(reg *typecheck.Registry, mod *concrete.Module, opts Options) *Session {
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	if opts.Progress == nil {
		opts.Progress = nopSink{}
	}
	return &Session{
		reg:    reg,
		col:    deps.NewCollector(0),
		mod:    mod,
		owners: mod.Owners(),
		opts:   opts,
		bags:   make(map[string]*diag.Bag),
	}
}

func (s *Session) Registry() *typecheck.Registry { return s.reg }

func (s *Session) Collector() *deps.Collector { return s.col }

// Report summarises one run.
type Report struct {
	Batches  [][]string
	Cycles   []string
	Statuses map[string]Status
	Stats    Stats
	Elapsed  time.Duration

	mu sync.Mutex
}

func (r *Report) set(name string, st Status) {
	r.mu.Lock()
	r.Statuses[name] = st
	r.mu.Unlock()
}

// Count is the number of definitions that ended the run with st.
func (r *Report) Count(st Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.Statuses {
		if got == st {
			n++
		}
	}
	return n
}

// Check checks every declaration of the module that is not published yet.
// An interrupted run returns the partial report with an error wrapping
// typecheck.ErrInterrupted; nothing in flight is published.
func (s *Session) Check(ctx context.Context) (*Report, error) {
	s.run.Lock()
	defer s.run.Unlock()
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	start := time.Now()
	t := trace.FromContext(ctx)
	span := trace.Begin(t, trace.ScopeDriver, "check "+s.mod.Name, trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, span)

	phase := s.begin("order")
	plan := NewPlan(s.mod, s.reg, s.opts.MaxDiagnostics)
	s.end(phase, fmt.Sprintf("%d definitions, %d batches", plan.Len(), len(plan.Topo.Batches)))

	rep := &Report{
		Batches:  plan.Batches(),
		Cycles:   plan.Cycles(),
		Statuses: make(map[string]Status, plan.Len()),
	}
	for name := range plan.decls {
		rep.Statuses[name] = StatusQueued
	}
	for _, batch := range rep.Batches {
		for _, name := range batch {
			s.opts.Progress.OnEvent(Event{Def: name, Status: StatusQueued})
		}
	}

	var m metrics
	phase = s.begin("check")
	var err error
	for i, batch := range plan.Topo.Batches {
		if err = s.checkBatch(ctx, plan, i, batch, rep, &m); err != nil {
			break
		}
	}
	rest := StatusSkipped
	if err != nil {
		rest = StatusInterrupted
	}
	for name, st := range rep.Statuses {
		if st.Final() {
			continue
		}
		var bag *diag.Bag
		if rest == StatusSkipped {
			bag = plan.Bags[name]
			m.skipped.Add(1)
		}
		s.finish(rep, name, bag, rest, 0)
	}
	rep.Stats = m.stats()
	rep.Elapsed = time.Since(start)
	s.end(phase, rep.Stats.String())
	span.End(rep.Stats.String())
	return rep, err
}

// Invalidate drops name and its dependents and checks them again.
func (s *Session) Invalidate(ctx context.Context, name string) (*Report, error) {
	if _, err := s.Drop(name); err != nil {
		return nil, err
	}
	return s.Check(ctx)
}

// Drop withdraws the definition declaring name and every published
// definition depending on it, transitively. It returns the dropped
// definitions. A check in flight against a dropped definition is not
// committed.
func (s *Session) Drop(name string) ([]string, error) {
	owner, ok := s.owners[name]
	if !ok {
		return nil, fmt.Errorf("invalidate %q: %w", name, ErrUnknownDefinition)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	names := s.col.Update(owner)
	for _, n := range names {
		s.reg.Remove(n)
		delete(s.bags, n)
	}
	return names, nil
}

// Bag returns the diagnostics of the last completed check of name.
func (s *Session) Bag(name string) (*diag.Bag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bags[name]
	return b, ok
}

// Diagnostics merges the diagnostics of every definition in source order.
func (s *Session) Diagnostics() *diag.Bag {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := diag.NewBag(s.opts.MaxDiagnostics)
	seen := make(map[string]bool, len(s.mod.Decls))
	for _, d := range s.mod.Decls {
		name := d.DeclName()
		if seen[name] {
			continue
		}
		seen[name] = true
		out.Merge(s.bags[name])
	}
	out.Sort()
	return out
}

func (s *Session) begin(name string) int {
	if s.opts.Timer == nil {
		return -1
	}
	return s.opts.Timer.Begin(name)
}

func (s *Session) end(idx int, note string) {
	if s.opts.Timer != nil && idx >= 0 {
		s.opts.Timer.End(idx, note)
	}
}

func (s *Session) checkBatch(ctx context.Context, plan *Plan, n int, batch []dag.DefID, rep *Report, m *metrics) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch %d: %w: %w", n, typecheck.ErrInterrupted, err)
	}
	t := trace.FromContext(ctx)
	span := trace.Begin(t, trace.ScopePass, fmt.Sprintf("batch %d", n), trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, span)
	m.batch(len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(s.opts.Jobs, len(batch))))
	for _, id := range batch {
		slot := &plan.Slots[int(id)]
		name := slot.Node.Name
		if !slot.Broken {
			if broken := dag.BrokenDeps(plan.Index, plan.Slots, id); len(broken) > 0 {
				first, _ := plan.Bags[name].First()
				dag.MarkBroken(plan.Slots, id, &first)
			}
		}
		if slot.Broken {
			m.skipped.Add(1)
			s.finish(rep, name, plan.Bags[name], StatusSkipped, 0)
			continue
		}
		decl := plan.decls[name]
		g.Go(func() error {
			return s.checkOne(gctx, plan, decl, rep, m)
		})
	}
	err := g.Wait()
	span.End(fmt.Sprintf("%d definitions", len(batch)))
	return err
}

// checkOne checks decl until its result can be committed against the
// dependency versions it was checked with.
func (s *Session) checkOne(ctx context.Context, plan *Plan, decl concrete.Decl, rep *Report, m *metrics) error {
	name := decl.DeclName()
	depNames := plan.moduleDeps(decl)
	checker := typecheck.NewDefinitionChecker(s.reg, s.opts.Check).WithRecorder(s.col)
	bag := plan.Bags[name]
	for attempt := range maxAttempts {
		if attempt > 0 {
			bag = diag.NewBag(s.opts.MaxDiagnostics)
			m.rechecks.Add(1)
		}
		versions := s.reg.Versions(depNames)
		if !s.published(depNames) {
			break
		}
		s.opts.Progress.OnEvent(Event{Def: name, Status: StatusChecking})
		start := time.Now()
		m.checks.Add(1)
		dedup := diag.NewDedupReporter(diag.BagReporter{Bag: bag, Definition: name})
		u, err := checker.Check(ctx, decl, dedup)
		elapsed := time.Since(start)
		m.duplicates.Add(int64(dedup.Suppressed()))
		if err != nil {
			s.finish(rep, name, nil, StatusInterrupted, elapsed)
			return fmt.Errorf("check %s: %w", name, err)
		}
		ok, err := s.commit(u, depNames, versions)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		status := StatusChecked
		if bag.HasErrors() {
			status = StatusHasErrors
		}
		s.finish(rep, name, bag, status, elapsed)
		return nil
	}
	m.stale.Add(1)
	s.finish(rep, name, nil, StatusStale, 0)
	return nil
}

func (s *Session) published(names []string) bool {
	for _, n := range names {
		if _, ok := s.reg.Unit(n); !ok {
			return false
		}
	}
	return true
}

// commit publishes u unless one of its dependencies moved since versions
// was taken.
func (s *Session) commit(u *typecheck.Unit, depNames []string, versions []uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Equal(s.reg.Versions(depNames), versions) {
		return false, nil
	}
	if err := s.reg.Publish(u); err != nil {
		return false, err
	}
	return true, nil
}

// finish records the final status of name and keeps bag as its
// diagnostics; a nil bag forgets them.
func (s *Session) finish(rep *Report, name string, bag *diag.Bag, st Status, elapsed time.Duration) {
	s.mu.Lock()
	if bag != nil {
		s.bags[name] = bag
	} else {
		delete(s.bags, name)
	}
	s.mu.Unlock()
	rep.set(name, st)
	s.opts.Progress.OnEvent(Event{Def: name, Status: st, Elapsed: elapsed})
}
