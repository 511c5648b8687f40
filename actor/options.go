package actor

import (
	"go.uber.org/zap"

	"github.com/hedisam/goexec/config"
)

type options struct {
	args    []interface{}
	evented bool
	cfg     config.Config
	logger  *zap.Logger
	name    string
	monitor *PID
}

type Option func(o *options)

func defaultOptions() *options {
	return &options{
		cfg:    config.Default(),
		logger: zap.L(),
	}
}

func WithArgs(args ...interface{}) Option {
	return func(o *options) {
		o.args = args
	}
}

// WithReactor makes the actor evented: its message handlers can wait on processes
// without blocking the actor
func WithReactor() Option {
	return func(o *options) {
		o.evented = true
	}
}

func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithName registers the actor in the process registry under name
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMonitor makes by receive a sysmsg.Exit when the actor terminates
func WithMonitor(by *PID) Option {
	return func(o *options) {
		o.monitor = by
	}
}
