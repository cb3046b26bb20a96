// Package orchestrator runs registered tasks strictly one after another in
// an order that satisfies their declared dependencies.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Orchestrator struct {
	tasks    []Task
	handlers map[string]TaskHandler
	mu       sync.RWMutex

	// OnStart is called before each task runs.
	OnStart func(task Task)
}

func New() *Orchestrator {
	return &Orchestrator{handlers: make(map[string]TaskHandler)}
}

// Register adds a task. Registration order breaks ties between tasks
// whose dependencies are equally satisfied.
func (o *Orchestrator) Register(task Task, handler TaskHandler) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if task.Name == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	if _, exists := o.handlers[task.Name]; exists {
		return fmt.Errorf("task %s already registered", task.Name)
	}
	o.tasks = append(o.tasks, task)
	o.handlers[task.Name] = handler
	return nil
}

// Order returns the tasks sorted by dependency order
func (o *Orchestrator) Order() ([]Task, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var ordered []Task
	done := make(map[string]bool)

	for len(ordered) < len(o.tasks) {
		progress := false

		for _, task := range o.tasks {
			if done[task.Name] {
				continue
			}

			ready := true
			for _, dep := range task.DependsOn {
				if !done[dep] {
					ready = false
					break
				}
			}

			if ready {
				ordered = append(ordered, task)
				done[task.Name] = true
				progress = true
			}
		}

		if !progress {
			return nil, fmt.Errorf("circular dependency detected or missing dependency")
		}
	}

	return ordered, nil
}

// Run executes every task in dependency order and stops at the first
// failure. Results cover the tasks that ran.
func (o *Orchestrator) Run(ctx context.Context) ([]TaskResult, error) {
	ordered, err := o.Order()
	if err != nil {
		return nil, err
	}

	results := make([]TaskResult, 0, len(ordered))
	for _, task := range ordered {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if o.OnStart != nil {
			o.OnStart(task)
		}

		o.mu.RLock()
		handler := o.handlers[task.Name]
		o.mu.RUnlock()

		start := time.Now()
		err := handler.Execute(ctx)
		results = append(results, TaskResult{TaskName: task.Name, Error: err, Duration: time.Since(start)})
		if err != nil {
			return results, fmt.Errorf("%s: %w", task.Name, err)
		}
	}
	return results, nil
}
