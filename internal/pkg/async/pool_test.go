package async_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplens/internal/pkg/async"
)

func TestPoolExecuteCollectsAllResults(t *testing.T) {
	pool := async.NewPool(3)

	var tasks []async.Task
	for i := 0; i < 10; i++ {
		n := i
		tasks = append(tasks, async.Task{
			Name:    fmt.Sprintf("task-%d", n),
			Execute: func() (any, error) { return n * 2, nil },
		})
	}

	results := pool.Execute(context.Background(), tasks)
	require.Len(t, results, 10)
	for i := 0; i < 10; i++ {
		result := results[fmt.Sprintf("task-%d", i)]
		require.NoError(t, result.Err)
		assert.Equal(t, i*2, result.Data)
	}
}

func TestPoolExecutePropagatesErrors(t *testing.T) {
	pool := async.NewPool(2)
	boom := errors.New("boom")

	results := pool.Execute(context.Background(), []async.Task{
		{Name: "ok", Execute: func() (any, error) { return "fine", nil }},
		{Name: "bad", Execute: func() (any, error) { return nil, boom }},
	})

	require.Len(t, results, 2)
	assert.NoError(t, results["ok"].Err)
	assert.ErrorIs(t, results["bad"].Err, boom)
}

func TestPoolExecuteEmpty(t *testing.T) {
	results := async.NewPool(4).Execute(context.Background(), nil)
	assert.Empty(t, results)
}

func TestPoolExecuteCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := async.NewPool(2).Execute(ctx, []async.Task{
		{Name: "never", Execute: func() (any, error) { return nil, nil }},
	})
	// A pre-canceled context returns early with no guarantees on content.
	assert.LessOrEqual(t, len(results), 1)
}
