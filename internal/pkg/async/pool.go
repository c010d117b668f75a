// Package async runs named tasks on a bounded worker pool and collects
// their results by name.
package async

import (
	"context"
	"sync"
)

type Task struct {
	Name    string
	Execute func() (any, error)
}

type Result struct {
	Name string
	Data any
	Err  error
}

type Pool struct {
	workerCount int
}

func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

// Execute runs the tasks across the pool's workers and returns results keyed
// by task name. A canceled context stops dispatch and returns whatever has
// completed so far.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	results := make(map[string]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	taskCh := make(chan Task)
	resultCh := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case task, ok := <-taskCh:
					if !ok {
						return
					}
					data, err := task.Execute()
					select {
					case resultCh <- Result{Name: task.Name, Data: data, Err: err}:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	for i := 0; i < len(tasks); i++ {
		select {
		case result := <-resultCh:
			results[result.Name] = result
		case <-ctx.Done():
			return results
		}
	}

	wg.Wait()
	return results
}
