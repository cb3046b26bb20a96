package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func record(order *[]string, name string, err error) TaskFunc {
	return func(context.Context) error {
		*order = append(*order, name)
		return err
	}
}

func TestRunInDependencyOrder(t *testing.T) {
	require := require.New(t)

	var ran []string
	o := New()
	require.NoError(o.Register(Task{Name: "resolver", DependsOn: []string{"synths", "feeds"}}, record(&ran, "resolver", nil)))
	require.NoError(o.Register(Task{Name: "core"}, record(&ran, "core", nil)))
	require.NoError(o.Register(Task{Name: "feeds", DependsOn: []string{"synths"}}, record(&ran, "feeds", nil)))
	require.NoError(o.Register(Task{Name: "synths", DependsOn: []string{"core"}}, record(&ran, "synths", nil)))

	var started []string
	o.OnStart = func(task Task) { started = append(started, task.Name) }

	results, err := o.Run(context.Background())
	require.NoError(err)
	require.Equal([]string{"core", "synths", "feeds", "resolver"}, ran)
	require.Equal(ran, started)
	require.Len(results, 4)
	require.Equal("resolver", results[3].TaskName)
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	require := require.New(t)

	boom := errors.New("boom")
	var ran []string
	o := New()
	require.NoError(o.Register(Task{Name: "core"}, record(&ran, "core", nil)))
	require.NoError(o.Register(Task{Name: "fees", DependsOn: []string{"core"}}, record(&ran, "fees", boom)))
	require.NoError(o.Register(Task{Name: "settings", DependsOn: []string{"fees"}}, record(&ran, "settings", nil)))

	results, err := o.Run(context.Background())
	require.ErrorIs(err, boom)
	require.Contains(err.Error(), "fees: boom")
	require.Equal([]string{"core", "fees"}, ran)
	require.Len(results, 2)
	require.ErrorIs(results[1].Error, boom)
}

func TestRegisterAndOrderErrors(t *testing.T) {
	require := require.New(t)

	o := New()
	noop := TaskFunc(func(context.Context) error { return nil })
	require.Error(o.Register(Task{}, noop))
	require.NoError(o.Register(Task{Name: "a", DependsOn: []string{"b"}}, noop))
	require.Error(o.Register(Task{Name: "a"}, noop))
	require.NoError(o.Register(Task{Name: "b", DependsOn: []string{"a"}}, noop))

	_, err := o.Order()
	require.Error(err)

	missing := New()
	require.NoError(missing.Register(Task{Name: "a", DependsOn: []string{"ghost"}}, noop))
	_, err = missing.Run(context.Background())
	require.Error(err)
}

func TestRunHonoursCancellation(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	var ran []string
	o := New()
	require.NoError(o.Register(Task{Name: "core"}, TaskFunc(func(context.Context) error {
		ran = append(ran, "core")
		cancel()
		return nil
	})))
	require.NoError(o.Register(Task{Name: "fees", DependsOn: []string{"core"}}, record(&ran, "fees", nil)))

	_, err := o.Run(ctx)
	require.ErrorIs(err, context.Canceled)
	require.Equal([]string{"core"}, ran)
}
