package pipeline

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roach88/lucq/internal/lucene/ast"
)

var (
	// ErrFrozen is returned when mutating a frozen pipeline.
	ErrFrozen = errors.New("pipeline is frozen")

	// ErrNotFound is returned when no registered visitor matches.
	ErrNotFound = errors.New("visitor not found")
)

// Entry is a registered visitor and its priority.
type Entry struct {
	Name     string
	Priority int
	Visitor  ast.Visitor
}

// Matcher selects registered visitors for Remove, Replace, AddBefore and
// AddAfter.
type Matcher func(ast.Visitor) bool

// Is matches one visitor instance.
func Is(target ast.Visitor) Matcher {
	return func(v ast.Visitor) bool {
		if reflect.TypeOf(v) != reflect.TypeOf(target) || !reflect.TypeOf(v).Comparable() {
			return false
		}
		return v == target
	}
}

// OfType matches every visitor of type T.
func OfType[T ast.Visitor]() Matcher {
	return func(v ast.Visitor) bool {
		_, ok := v.(T)
		return ok
	}
}

// Named matches visitors whose Name equals name.
func Named(name string) Matcher {
	return func(v ast.Visitor) bool {
		return VisitorName(v) == name
	}
}

// VisitorName returns v's Name() when it has one, otherwise its type name.
func VisitorName(v ast.Visitor) string {
	if n, ok := v.(interface{ Name() string }); ok {
		return n.Name()
	}
	name := fmt.Sprintf("%T", v)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimPrefix(name, "*")
}

// Observer receives timing for each visitor run and each pipeline run.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveVisitor(pipeline, visitor string, d time.Duration, err error)
	ObserveRun(pipeline string, d time.Duration, err error)
}

// Pipeline is an ordered list of visitors run over one tree.
//
// Entries are kept stable-sorted by ascending priority; equal priorities run
// in insertion order, and AddBefore/AddAfter insert next to their anchor.
//
// Thread-safety model:
//   - Mutations and Run are safe from any goroutine.
//   - After Freeze, mutations fail with ErrFrozen and concurrent Run calls
//     share the visitor list. Visitors must keep per-call state on the
//     ast.Context or the tree, never on themselves.
type Pipeline struct {
	name     string
	observer Observer

	mu      sync.RWMutex
	entries []Entry
	frozen  bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver reports visitor and run timings to o.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// New creates an empty pipeline.
func New(name string, opts ...Option) *Pipeline {
	p := &Pipeline{name: name}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the pipeline name used in logs and metrics.
func (p *Pipeline) Name() string {
	return p.name
}

// Add registers v at priority.
func (p *Pipeline) Add(v ast.Visitor, priority int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return ErrFrozen
	}
	p.entries = append(p.entries, newEntry(v, priority))
	p.sort()
	return nil
}

// Remove unregisters every visitor matching m.
func (p *Pipeline) Remove(m Matcher) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return ErrFrozen
	}
	n := len(p.entries)
	p.entries = slices.DeleteFunc(p.entries, func(e Entry) bool { return m(e.Visitor) })
	if len(p.entries) == n {
		return ErrNotFound
	}
	return nil
}

// Replace swaps the first visitor matching m for v, keeping its priority
// and position.
func (p *Pipeline) Replace(m Matcher, v ast.Visitor) error {
	return p.replace(m, v, nil)
}

// ReplaceAt swaps the first visitor matching m for v at a new priority.
func (p *Pipeline) ReplaceAt(m Matcher, v ast.Visitor, priority int) error {
	return p.replace(m, v, &priority)
}

func (p *Pipeline) replace(m Matcher, v ast.Visitor, priority *int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return ErrFrozen
	}
	i := p.index(m)
	if i < 0 {
		return ErrNotFound
	}
	prio := p.entries[i].Priority
	if priority != nil {
		prio = *priority
	}
	p.entries[i] = newEntry(v, prio)
	p.sort()
	return nil
}

// AddBefore registers v immediately before the first visitor matching m,
// sharing its priority.
func (p *Pipeline) AddBefore(m Matcher, v ast.Visitor) error {
	return p.insertNear(m, v, 0)
}

// AddAfter registers v immediately after the first visitor matching m,
// sharing its priority.
func (p *Pipeline) AddAfter(m Matcher, v ast.Visitor) error {
	return p.insertNear(m, v, 1)
}

func (p *Pipeline) insertNear(m Matcher, v ast.Visitor, offset int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return ErrFrozen
	}
	i := p.index(m)
	if i < 0 {
		return ErrNotFound
	}
	p.entries = slices.Insert(p.entries, i+offset, newEntry(v, p.entries[i].Priority))
	return nil
}

// Contains reports whether any registered visitor matches m.
func (p *Pipeline) Contains(m Matcher) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.index(m) >= 0
}

// Freeze makes the pipeline read-only.
func (p *Pipeline) Freeze() {
	p.mu.Lock()
	p.frozen = true
	p.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (p *Pipeline) Frozen() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.frozen
}

// Entries returns the registered visitors in run order.
func (p *Pipeline) Entries() []Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.entries)
}

// Run applies each visitor in order, handing the root returned by one
// visitor to the next, and returns the final root.
//
// The caller's context is checked before each visitor. A visitor error
// aborts the run; no partially processed tree is returned.
func (p *Pipeline) Run(root ast.Node, ctx *ast.Context) (ast.Node, error) {
	entries := p.Entries()
	log := ctx.Log().With("pipeline", p.name)
	start := time.Now()

	var err error
	for _, e := range entries {
		if cerr := ctx.Context().Err(); cerr != nil {
			err = fmt.Errorf("pipeline %s cancelled before %s: %w", p.name, e.Name, cerr)
			break
		}

		vstart := time.Now()
		next, verr := ast.Accept(e.Visitor, root, ctx)
		d := time.Since(vstart)

		if p.observer != nil {
			p.observer.ObserveVisitor(p.name, e.Name, d, verr)
		}
		log.Debug("visitor ran",
			"visitor", e.Name,
			"priority", e.Priority,
			"duration", d,
			"ok", verr == nil,
		)

		if verr != nil {
			err = fmt.Errorf("%s: %w", e.Name, verr)
			break
		}
		if next != nil {
			root = next
		}
	}

	if p.observer != nil {
		p.observer.ObserveRun(p.name, time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}
	return root, nil
}

func newEntry(v ast.Visitor, priority int) Entry {
	return Entry{Name: VisitorName(v), Priority: priority, Visitor: v}
}

func (p *Pipeline) index(m Matcher) int {
	return slices.IndexFunc(p.entries, func(e Entry) bool { return m(e.Visitor) })
}

func (p *Pipeline) sort() {
	slices.SortStableFunc(p.entries, func(a, b Entry) int { return cmp.Compare(a.Priority, b.Priority) })
}
