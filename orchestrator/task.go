package orchestrator

import (
	"context"
	"time"
)

// Task is a named unit of work that runs after the tasks it depends on.
type Task struct {
	Name      string   `json:",omitempty"`
	DependsOn []string `json:",omitempty"`
}

type TaskResult struct {
	TaskName string
	Error    error
	Duration time.Duration
}

type TaskHandler interface {
	Execute(ctx context.Context) error
}

// TaskFunc adapts a function to TaskHandler.
type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Execute(ctx context.Context) error { return f(ctx) }
