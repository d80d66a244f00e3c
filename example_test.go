package gorchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slok/gorchestrator"
	"github.com/slok/gorchestrator/config"
	"github.com/slok/gorchestrator/config/hclconfig"
	gerrors "github.com/slok/gorchestrator/errors"
)

// Will register an operation with the default settings and execute it waiting
// for the result.
func Example_basic() {
	o, err := gorchestrator.New(gorchestrator.Config{})
	if err != nil {
		panic(err)
	}
	defer o.TearDown()

	err = o.Register(gorchestrator.Operation{
		Name: "greet",
		Method: func(_ context.Context, _ interface{}, args ...interface{}) (interface{}, error) {
			return fmt.Sprintf("hello %s", args[0]), nil
		},
	})
	if err != nil {
		panic(err)
	}

	result, err := gorchestrator.CallAs[string](context.TODO(), o, gorchestrator.Call{
		Operation: "greet",
		Args:      []interface{}{"Bruce"},
	})
	if err != nil {
		result = "fallback result"
	}

	fmt.Printf("result is: %s\n", result)
	// Output: result is: hello Bruce
}

// Will set the limits of the operation and check the orchestration errors to
// fallback when the operation is not executed in time.
func Example_limits() {
	o, err := gorchestrator.New(gorchestrator.Config{})
	if err != nil {
		panic(err)
	}
	defer o.TearDown()

	err = o.Register(gorchestrator.Operation{
		Name: "slow",
		Method: gorchestrator.MethodFunc(func(ctx context.Context) (string, error) {
			select {
			case <-time.After(time.Second):
				return "done", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}),
		Declared: config.Orchestration{
			Limits: config.Limits{
				TimeLimit:       50 * time.Millisecond,
				ConcurrentLimit: 10,
			},
		},
	})
	if err != nil {
		panic(err)
	}

	_, err = o.Call(context.TODO(), gorchestrator.Call{Operation: "slow"})
	switch {
	case errors.Is(err, gerrors.ErrExecutionTimeout):
		fmt.Println("timeout, using fallback")
	case errors.Is(err, gerrors.ErrConcurrentOverflow):
		fmt.Println("too many executions, using fallback")
	}
	// Output: timeout, using fallback
}

// Will declare the operation settings using an HCL file content.
func Example_declared() {
	o, err := gorchestrator.New(gorchestrator.Config{})
	if err != nil {
		panic(err)
	}
	defer o.TearDown()

	err = o.Register(gorchestrator.Operation{
		Name: "notify",
		Void: true,
		Method: gorchestrator.VoidFunc(func(_ context.Context) error {
			return nil
		}),
	})
	if err != nil {
		panic(err)
	}

	decls, err := hclconfig.Parse([]byte(`
operation "notify" {
  mode = "async"
  limits {
    time_limit = "5s"
  }
}
`), "operations.hcl")
	if err != nil {
		panic(err)
	}

	if err := o.Declare(decls); err != nil {
		panic(err)
	}

	// Returns as soon as the execution is submitted.
	_, err = o.Call(context.TODO(), gorchestrator.Call{Operation: "notify"})
	fmt.Printf("submitted: %t\n", err == nil)
	// Output: submitted: true
}
