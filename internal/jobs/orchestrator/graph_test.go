package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n    int
	path []string
}

func step(name string) Node[*counter] {
	return Node[*counter]{Name: name, Run: func(_ context.Context, c *counter) error {
		c.n++
		c.path = append(c.path, name)
		return nil
	}}
}

func TestInvokeFollowsConditionalEdges(t *testing.T) {
	g := New[*counter]("test").
		AddNode(step("a")).
		AddNode(step("b")).
		AddNode(step("c")).
		AddEdge(Start, "a").
		AddConditionalEdges("a", func(c *counter) string {
			if c.n > 1 {
				return "big"
			}
			return "small"
		}, map[string]string{"small": "b", "big": "c"}).
		AddEdge("b", End).
		AddEdge("c", End)
	r, err := g.Compile()
	require.NoError(t, err)

	st := &counter{}
	visited, err := r.Invoke(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, visited)

	st = &counter{n: 5}
	visited, err = r.Invoke(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, visited)
}

func TestCompileRejectsBrokenTopology(t *testing.T) {
	_, err := New[*counter]("x").AddNode(step("a")).Compile()
	require.Error(t, err, "missing start edge")

	_, err = New[*counter]("x").AddNode(step("a")).AddEdge(Start, "a").AddEdge("a", "zzz").Compile()
	require.Error(t, err, "unknown target")

	_, err = New[*counter]("x").AddNode(step("a")).AddNode(step("b")).AddEdge(Start, "a").AddEdge("a", End).Compile()
	require.Error(t, err, "b unreachable")

	_, err = New[*counter]("x").AddNode(step("a")).AddNode(step("a")).Compile()
	require.Error(t, err, "duplicate")
}

func TestMaxStepsStopsLoops(t *testing.T) {
	g := New[*counter]("loop").
		AddNode(step("a")).
		AddEdge(Start, "a").
		AddConditionalEdges("a", func(c *counter) string {
			if c.n > 1000 {
				return "done"
			}
			return "again"
		}, map[string]string{"again": "a", "done": End})
	r, err := g.Compile(WithMaxSteps(5))
	require.NoError(t, err)
	_, err = r.Invoke(context.Background(), &counter{})
	require.Error(t, err)
}

func TestNodeRetryAndPanic(t *testing.T) {
	calls := 0
	flaky := Node[*counter]{
		Name:  "flaky",
		Retry: RetryPolicy{MaxAttempts: 3, MinBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		Run: func(_ context.Context, _ *counter) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		},
	}
	r, err := New[*counter]("retry").AddNode(flaky).AddEdge(Start, "flaky").AddEdge("flaky", End).Compile()
	require.NoError(t, err)
	_, err = r.Invoke(context.Background(), &counter{})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	boom := Node[*counter]{Name: "boom", Run: func(context.Context, *counter) error { panic("bad") }}
	r, err = New[*counter]("panic").AddNode(boom).AddEdge(Start, "boom").AddEdge("boom", End).Compile()
	require.NoError(t, err)
	visited, err := r.Invoke(context.Background(), &counter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.Equal(t, []string{"boom"}, visited)
}

func TestNodeTimeout(t *testing.T) {
	slow := Node[*counter]{
		Name:    "slow",
		Timeout: 10 * time.Millisecond,
		Run: func(ctx context.Context, _ *counter) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	r, err := New[*counter]("timeout").AddNode(slow).AddEdge(Start, "slow").AddEdge("slow", End).Compile()
	require.NoError(t, err)
	_, err = r.Invoke(context.Background(), &counter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "timed out")
}
