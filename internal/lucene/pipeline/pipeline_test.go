package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lucq/internal/lucene/ast"
)

// recorder appends its name to a shared log on every run.
type recorder struct {
	ast.BaseVisitor
	name string
	log  *[]string
	err  error
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) VisitGroup(*ast.GroupNode, *ast.Context) error {
	*r.log = append(*r.log, r.name)
	return r.err
}

type otherVisitor struct{ recorder }

// rootSwapper replaces the root with a new group.
type rootSwapper struct {
	ast.BaseVisitor
	seen *ast.Node
}

func (rootSwapper) VisitGroup(*ast.GroupNode, *ast.Context) error { return nil }

func (s rootSwapper) Accept(root ast.Node, _ *ast.Context) (ast.Node, error) {
	*s.seen = root
	return &ast.GroupNode{Operator: ast.OpAnd}, nil
}

type noop struct{ ast.BaseVisitor }

func (noop) VisitGroup(*ast.GroupNode, *ast.Context) error { return nil }

func run(t *testing.T, p *Pipeline) {
	t.Helper()
	_, err := p.Run(&ast.GroupNode{}, ast.NewContext(context.Background(), ast.TypeQuery))
	require.NoError(t, err)
}

func TestPipeline_PriorityOrder(t *testing.T) {
	var log []string
	p := New("query")
	require.NoError(t, p.Add(&recorder{name: "c", log: &log}, 30))
	require.NoError(t, p.Add(&recorder{name: "a", log: &log}, 10))
	require.NoError(t, p.Add(&recorder{name: "b1", log: &log}, 20))
	require.NoError(t, p.Add(&recorder{name: "b2", log: &log}, 20))

	run(t, p)
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, log, "ties keep insertion order")
}

func TestPipeline_AddBeforeAfter(t *testing.T) {
	var log []string
	a := &recorder{name: "a", log: &log}
	b := &recorder{name: "b", log: &log}

	p := New("query")
	require.NoError(t, p.Add(a, 10))
	require.NoError(t, p.Add(b, 10))
	require.NoError(t, p.AddBefore(Is(b), &recorder{name: "before-b", log: &log}))
	require.NoError(t, p.AddAfter(Is(a), &recorder{name: "after-a", log: &log}))
	require.NoError(t, p.Add(&recorder{name: "late", log: &log}, 10))

	run(t, p)
	assert.Equal(t, []string{"a", "after-a", "before-b", "b", "late"}, log)

	err := p.AddAfter(Named("missing"), &recorder{name: "x", log: &log})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPipeline_Replace(t *testing.T) {
	var log []string
	a := &recorder{name: "a", log: &log}
	p := New("query")
	require.NoError(t, p.Add(a, 10))
	require.NoError(t, p.Add(&recorder{name: "b", log: &log}, 20))

	require.NoError(t, p.Replace(Is(a), &recorder{name: "a2", log: &log}))
	run(t, p)
	assert.Equal(t, []string{"a2", "b"}, log)

	log = nil
	require.NoError(t, p.ReplaceAt(Named("a2"), &recorder{name: "a3", log: &log}, 30))
	run(t, p)
	assert.Equal(t, []string{"b", "a3"}, log)

	assert.ErrorIs(t, p.Replace(Is(a), a), ErrNotFound)
}

func TestPipeline_RemoveByType(t *testing.T) {
	var log []string
	p := New("query")
	require.NoError(t, p.Add(&recorder{name: "a", log: &log}, 10))
	require.NoError(t, p.Add(&otherVisitor{recorder{name: "o1", log: &log}}, 20))
	require.NoError(t, p.Add(&otherVisitor{recorder{name: "o2", log: &log}}, 30))

	assert.True(t, p.Contains(OfType[*otherVisitor]()))
	require.NoError(t, p.Remove(OfType[*otherVisitor]()))
	assert.False(t, p.Contains(OfType[*otherVisitor]()))

	run(t, p)
	assert.Equal(t, []string{"a"}, log)
	assert.ErrorIs(t, p.Remove(OfType[*otherVisitor]()), ErrNotFound)
}

func TestPipeline_Freeze(t *testing.T) {
	var log []string
	a := &recorder{name: "a", log: &log}
	p := New("query")
	require.NoError(t, p.Add(a, 10))
	p.Freeze()

	assert.True(t, p.Frozen())
	assert.ErrorIs(t, p.Add(a, 1), ErrFrozen)
	assert.ErrorIs(t, p.Remove(Is(a)), ErrFrozen)
	assert.ErrorIs(t, p.Replace(Is(a), a), ErrFrozen)
	assert.ErrorIs(t, p.AddBefore(Is(a), a), ErrFrozen)
	assert.ErrorIs(t, p.AddAfter(Is(a), a), ErrFrozen)
	assert.Len(t, p.Entries(), 1)
}

func TestPipeline_ThreadsRoot(t *testing.T) {
	var seen ast.Node
	var log []string
	p := New("query")
	require.NoError(t, p.Add(rootSwapper{seen: &seen}, 0))
	require.NoError(t, p.Add(&recorder{name: "after", log: &log}, 10))

	original := &ast.GroupNode{}
	out, err := p.Run(original, ast.NewContext(context.Background(), ast.TypeQuery))
	require.NoError(t, err)

	assert.Same(t, original, seen)
	assert.NotSame(t, original, out)
	assert.Equal(t, ast.OpAnd, out.(*ast.GroupNode).Operator)
	assert.Equal(t, []string{"after"}, log)
}

func TestPipeline_ErrorStopsRun(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	p := New("query")
	require.NoError(t, p.Add(&recorder{name: "a", log: &log, err: boom}, 10))
	require.NoError(t, p.Add(&recorder{name: "b", log: &log}, 20))

	out, err := p.Run(&ast.GroupNode{}, ast.NewContext(context.Background(), ast.TypeQuery))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a: boom")
	assert.Nil(t, out)
	assert.Equal(t, []string{"a"}, log)
}

func TestPipeline_Cancellation(t *testing.T) {
	var log []string
	p := New("query")
	require.NoError(t, p.Add(&recorder{name: "a", log: &log}, 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(&ast.GroupNode{}, ast.NewContext(ctx, ast.TypeQuery))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, log)
}

type fakeObserver struct {
	mu       sync.Mutex
	visitors []string
	runs     int
	runErr   error
}

func (o *fakeObserver) ObserveVisitor(_, visitor string, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.visitors = append(o.visitors, visitor)
}

func (o *fakeObserver) ObserveRun(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs++
	o.runErr = err
}

func TestPipeline_Observer(t *testing.T) {
	var log []string
	obs := &fakeObserver{}
	p := New("sort", WithObserver(obs))
	require.NoError(t, p.Add(&recorder{name: "a", log: &log}, 10))
	require.NoError(t, p.Add(&recorder{name: "b", log: &log}, 20))

	run(t, p)
	assert.Equal(t, []string{"a", "b"}, obs.visitors)
	assert.Equal(t, 1, obs.runs)
	assert.NoError(t, obs.runErr)
}

func TestVisitorName(t *testing.T) {
	assert.Equal(t, "x", VisitorName(&recorder{name: "x"}))
	assert.Equal(t, "rootSwapper", VisitorName(rootSwapper{}))
}

func TestPipeline_ConcurrentRuns(t *testing.T) {
	p := New("query")
	require.NoError(t, p.Add(&noop{}, 0))
	p.Freeze()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Run(&ast.GroupNode{}, ast.NewContext(context.Background(), ast.TypeQuery))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
