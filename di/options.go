package di

import (
	metrics "github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
)

// settings are shared by a context and, unless overridden, its children.
type settings struct {
	id       string
	logger   logrus.FieldLogger
	registry metrics.Registry
	prefix   string
	eager    bool
}

// Option configures a Context at construction.
type Option func(*settings)

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records container metrics into r. The default is a private
// registry reachable through Context.Metrics.
func WithMetrics(r metrics.Registry) Option {
	return func(s *settings) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithMetricsPrefix sets the prefix of every metric name. Default "di".
func WithMetricsPrefix(prefix string) Option {
	return func(s *settings) { s.prefix = prefix }
}

// WithEagerBootstrap makes Start run ComputeAll after installing modules.
func WithEagerBootstrap(eager bool) Option {
	return func(s *settings) { s.eager = eager }
}

// WithID overrides the generated context ID used in log fields.
func WithID(id string) Option {
	return func(s *settings) {
		if id != "" {
			s.id = id
		}
	}
}
