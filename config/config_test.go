package config_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/slok/gorchestrator/config"
	"github.com/slok/gorchestrator/errors"
)

func TestResolve(t *testing.T) {
	defaultExecutor := config.Executor{
		Kind:       config.DefaultKind,
		CoreSize:   config.DefaultCoreSize,
		MaxSize:    config.DefaultMaxSize,
		QueueSize:  config.DefaultQueueSize,
		KeepAlive:  config.DefaultKeepAlive,
		NameFormat: config.DefaultNameFormat,
	}

	tests := []struct {
		name   string
		layers []config.Orchestration
		expCfg config.Orchestration
		expErr error
	}{
		{
			name:   "Without layers it should return the defaults.",
			layers: nil,
			expCfg: config.Orchestration{
				Limits: config.Limits{
					TimeLimit:       config.DefaultTimeLimit,
					ConcurrentLimit: config.DefaultConcurrentLimit,
				},
				Executor: defaultExecutor,
			},
		},
		{
			name: "The first layer setting a field should win.",
			layers: []config.Orchestration{
				{Limits: config.Limits{TimeLimit: 2 * time.Second}},
				{Limits: config.Limits{TimeLimit: 5 * time.Second, ConcurrentLimit: 3}},
				{Limits: config.Limits{ConcurrentLimit: 7}, Executor: config.Executor{CoreSize: 2}},
			},
			expCfg: config.Orchestration{
				Limits: config.Limits{
					TimeLimit:       2 * time.Second,
					ConcurrentLimit: 3,
				},
				Executor: config.Executor{
					Kind:       config.DefaultKind,
					CoreSize:   2,
					MaxSize:    config.DefaultMaxSize,
					QueueSize:  config.DefaultQueueSize,
					KeepAlive:  config.DefaultKeepAlive,
					NameFormat: config.DefaultNameFormat,
				},
			},
		},
		{
			name: "An explicit unlimited should override a lower layer limit and be resolved as 0.",
			layers: []config.Orchestration{
				{Limits: config.Limits{ConcurrentLimit: config.Unlimited}},
				{Limits: config.Limits{ConcurrentLimit: 4}},
			},
			expCfg: config.Orchestration{
				Limits: config.Limits{
					TimeLimit:       config.DefaultTimeLimit,
					ConcurrentLimit: 0,
				},
				Executor: defaultExecutor,
			},
		},
		{
			name: "A bounded pool with queue should be resolved.",
			layers: []config.Orchestration{
				{Executor: config.Executor{CoreSize: 1, MaxSize: 1, QueueSize: 5, KeepAlive: time.Second, NameFormat: "pool-%s"}},
			},
			expCfg: config.Orchestration{
				Limits: config.Limits{
					TimeLimit: config.DefaultTimeLimit,
				},
				Executor: config.Executor{
					Kind:       config.DefaultKind,
					CoreSize:   1,
					MaxSize:    1,
					QueueSize:  5,
					KeepAlive:  time.Second,
					NameFormat: "pool-%s",
				},
			},
		},
		{
			name: "A negative time limit should fail.",
			layers: []config.Orchestration{
				{Limits: config.Limits{TimeLimit: -1}},
			},
			expErr: errors.ErrInvalidConfig,
		},
		{
			name: "A negative concurrent limit that is not the sentinel should fail.",
			layers: []config.Orchestration{
				{Limits: config.Limits{ConcurrentLimit: -5}},
			},
			expErr: errors.ErrInvalidConfig,
		},
		{
			name: "A max size less than the core size should fail.",
			layers: []config.Orchestration{
				{Executor: config.Executor{CoreSize: 4, MaxSize: 2}},
			},
			expErr: errors.ErrInvalidConfig,
		},
		{
			name: "An explicit direct handoff should win over the queue size of the next layers.",
			layers: []config.Orchestration{
				{Executor: config.Executor{QueueSize: config.DirectHandoff}},
				{Executor: config.Executor{QueueSize: 4}},
			},
			expCfg: config.Orchestration{
				Limits: config.Limits{
					TimeLimit:       config.DefaultTimeLimit,
					ConcurrentLimit: config.DefaultConcurrentLimit,
				},
				Executor: config.Executor{
					Kind:       config.DefaultKind,
					CoreSize:   config.DefaultCoreSize,
					MaxSize:    config.DefaultMaxSize,
					QueueSize:  0,
					KeepAlive:  config.DefaultKeepAlive,
					NameFormat: config.DefaultNameFormat,
				},
			},
		},
		{
			name: "A negative queue size should fail.",
			layers: []config.Orchestration{
				{Executor: config.Executor{QueueSize: -3}},
			},
			expErr: errors.ErrInvalidConfig,
		},
		{
			name: "A negative core size should fail.",
			layers: []config.Orchestration{
				{Executor: config.Executor{CoreSize: -1}},
			},
			expErr: errors.ErrInvalidConfig,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert := assert.New(t)

			gotCfg, err := config.Resolve(test.layers...)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			if assert.NoError(err) {
				assert.Empty(cmp.Diff(test.expCfg, gotCfg))
			}
		})
	}
}

func TestResolveIsPure(t *testing.T) {
	assert := assert.New(t)

	layer := config.Orchestration{Limits: config.Limits{ConcurrentLimit: config.Unlimited}}
	_, err := config.Resolve(layer)
	assert.NoError(err)

	// The layer must be untouched after resolving.
	assert.Equal(config.Unlimited, layer.Limits.ConcurrentLimit)
	assert.Equal(time.Duration(0), layer.Limits.TimeLimit)
}

func TestExecutorName(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		args    []interface{}
		expName string
	}{
		{
			name:    "Format with arguments should be formatted.",
			format:  "pool-%s-%d",
			args:    []interface{}{"billing", 2},
			expName: "pool-billing-2",
		},
		{
			name:    "Format without verbs should ignore the arguments.",
			format:  "system",
			args:    []interface{}{"billing"},
			expName: "system",
		},
		{
			name:    "Format without arguments should be returned as it is.",
			format:  "pool-%s",
			expName: "pool-%s",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := config.Executor{NameFormat: test.format}
			assert.Equal(t, test.expName, e.Name(test.args...))
		})
	}
}

func TestStrings(t *testing.T) {
	assert := assert.New(t)

	l := config.Limits{TimeLimit: 100 * time.Millisecond}
	assert.Equal("time limit: 100ms, concurrent limit: unlimited", l.String())

	l.ConcurrentLimit = 2
	assert.Equal("time limit: 100ms, concurrent limit: 2", l.String())

	e := config.Executor{Kind: "default", CoreSize: 1, MaxSize: config.Unbounded, KeepAlive: time.Second}
	assert.Equal("kind: default, core size: 1, max size: unbounded, queue: direct handoff, keep alive: 1s", e.String())

	e.MaxSize = 3
	e.QueueSize = 10
	assert.Equal("kind: default, core size: 1, max size: 3, queue: 10, keep alive: 1s", e.String())
}
