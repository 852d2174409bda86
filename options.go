package sig

import "github.com/AnatoleLucet/sig/v2/internal"

type nodeConfig[T any] struct {
	name   string
	equals func(a, b T) bool
}

// Option configures a signal or computed.
type Option[T any] func(*nodeConfig[T])

// WithEquals replaces the default equality used to skip writes and memoize computeds.
// The default is == for comparable values and reflect.DeepEqual otherwise.
func WithEquals[T any](equals func(a, b T) bool) Option[T] {
	return func(c *nodeConfig[T]) { c.equals = equals }
}

// WithName sets the name reported in errors, logs and metrics.
func WithName[T any](name string) Option[T] {
	return func(c *nodeConfig[T]) { c.name = name }
}

func nodeOptions[T any](opts []Option[T]) internal.NodeOptions {
	var cfg nodeConfig[T]
	for _, opt := range opts {
		opt(&cfg)
	}

	o := internal.NodeOptions{Name: cfg.name}
	if eq := cfg.equals; eq != nil {
		o.Equals = func(a, b any) bool { return eq(as[T](a), as[T](b)) }
	}

	return o
}

type effectConfig struct {
	name string
}

// EffectOption configures an effect.
type EffectOption func(*effectConfig)

// WithEffectName sets the name reported in errors, logs and metrics.
func WithEffectName(name string) EffectOption {
	return func(c *effectConfig) { c.name = name }
}
