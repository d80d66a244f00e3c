// Package hclconfig loads the declared orchestration configuration of operations
// from HCL files.
//
//	operation "billing.charge" {
//	  mode = "sync"
//	  limits {
//	    time_limit       = "2s"
//	    concurrent_limit = 5
//	  }
//	  executor {
//	    kind       = "default"
//	    core_size  = 4
//	    max_size   = unbounded
//	    queue_size = 16
//	    keep_alive = 30 # seconds.
//	  }
//	}
//
// Durations can be strings in Go duration format or numbers of seconds. The
// `unlimited`, `unbounded` and `direct_handoff` variables can be used on
// concurrent_limit, max_size and queue_size.
package hclconfig

import (
	"fmt"
	"math/big"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/slok/gorchestrator/config"
	"github.com/slok/gorchestrator/errors"
)

type hclFile struct {
	Operations []*hclOperation `hcl:"operation,block"`
}

type hclOperation struct {
	Name     string       `hcl:"name,label"`
	Mode     *string      `hcl:"mode,optional"`
	Limits   *hclLimits   `hcl:"limits,block"`
	Executor *hclExecutor `hcl:"executor,block"`
}

type hclLimits struct {
	TimeLimit       hcl.Expression `hcl:"time_limit,optional"`
	ConcurrentLimit *int           `hcl:"concurrent_limit,optional"`
}

type hclExecutor struct {
	Kind       *string        `hcl:"kind,optional"`
	CoreSize   *int           `hcl:"core_size,optional"`
	MaxSize    *int           `hcl:"max_size,optional"`
	QueueSize  *int           `hcl:"queue_size,optional"`
	KeepAlive  hcl.Expression `hcl:"keep_alive,optional"`
	NameFormat *string        `hcl:"name_format,optional"`
}

// evalContext has the variables available on the configuration.
var evalContext = &hcl.EvalContext{
	Variables: map[string]cty.Value{
		"unlimited":      cty.NumberIntVal(config.Unlimited),
		"unbounded":      cty.NumberIntVal(config.Unbounded),
		"direct_handoff": cty.NumberIntVal(config.DirectHandoff),
	},
}

// Load reads and parses the HCL file on path.
func Load(path string) (map[string]config.Declaration, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse HCL file %s: %w", errors.ErrInvalidConfig, path, diags)
	}

	return decode(f.Body, path)
}

// Parse parses the HCL source, filename is only used on the diagnostic messages.
func Parse(src []byte, filename string) (map[string]config.Declaration, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse HCL file %s: %w", errors.ErrInvalidConfig, filename, diags)
	}

	return decode(f.Body, filename)
}

func decode(body hcl.Body, filename string) (map[string]config.Declaration, error) {
	var file hclFile
	diags := gohcl.DecodeBody(body, evalContext, &file)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode HCL file %s: %w", errors.ErrInvalidConfig, filename, diags)
	}

	decls := make(map[string]config.Declaration, len(file.Operations))
	for _, op := range file.Operations {
		if _, ok := decls[op.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate %q operation on %s", errors.ErrInvalidConfig, op.Name, filename)
		}

		decl, err := translateOperation(op)
		if err != nil {
			return nil, fmt.Errorf("operation %q on %s: %w", op.Name, filename, err)
		}
		decls[op.Name] = decl
	}

	return decls, nil
}

// translateOperation converts the HCL schema into the configuration model.
func translateOperation(op *hclOperation) (config.Declaration, error) {
	var decl config.Declaration

	if op.Mode != nil {
		switch *op.Mode {
		case config.ModeSync, config.ModeAsync:
			decl.Mode = *op.Mode
		default:
			return decl, fmt.Errorf("%w: unknown mode %q", errors.ErrInvalidConfig, *op.Mode)
		}
	}

	if l := op.Limits; l != nil {
		d, err := decodeDuration(l.TimeLimit, "time_limit")
		if err != nil {
			return decl, err
		}
		decl.Orchestration.Limits.TimeLimit = d
		decl.Orchestration.Limits.ConcurrentLimit = intOrZero(l.ConcurrentLimit)
	}

	if e := op.Executor; e != nil {
		d, err := decodeDuration(e.KeepAlive, "keep_alive")
		if err != nil {
			return decl, err
		}
		decl.Orchestration.Executor = config.Executor{
			Kind:       stringOrEmpty(e.Kind),
			CoreSize:   intOrZero(e.CoreSize),
			MaxSize:    intOrZero(e.MaxSize),
			QueueSize:  intOrZero(e.QueueSize),
			KeepAlive:  d,
			NameFormat: stringOrEmpty(e.NameFormat),
		}
	}

	// Fail fast on contradictory declarations, the same way the orchestrator will resolve them.
	if _, err := config.Resolve(decl.Orchestration); err != nil {
		return decl, err
	}

	return decl, nil
}

// decodeDuration evaluates a duration expression, a string with Go duration format
// or a number of seconds. Missing attributes are returned as 0 (unset).
func decodeDuration(expr hcl.Expression, attr string) (time.Duration, error) {
	if expr == nil {
		return 0, nil
	}

	val, diags := expr.Value(evalContext)
	if diags.HasErrors() {
		return 0, fmt.Errorf("%w: %s: %w", errors.ErrInvalidConfig, attr, diags)
	}

	if val.IsNull() {
		return 0, nil
	}

	if !val.IsKnown() {
		return 0, fmt.Errorf("%w: %s value must be known", errors.ErrInvalidConfig, attr)
	}

	switch val.Type() {
	case cty.String:
		d, err := time.ParseDuration(val.AsString())
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", errors.ErrInvalidConfig, attr, err)
		}
		return d, nil
	case cty.Number:
		secs, _ := new(big.Float).Mul(val.AsBigFloat(), big.NewFloat(float64(time.Second))).Int64()
		return time.Duration(secs), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a string or a number, got %s", errors.ErrInvalidConfig, attr, val.Type().FriendlyName())
	}
}

func intOrZero(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
