package brains

import (
	"reflect"

	"aquitania/internal/common"
	"aquitania/internal/dataset"
)

// Strategy is a trading strategy whose entry signal a model is trained for.
type Strategy interface {
	Signal() dataset.Signal
}

// Named lets a strategy choose its artifact name instead of its type name.
type Named interface {
	Name() string
}

// StrategyName returns Name() for strategies implementing Named and the
// strategy's type name otherwise.
func StrategyName(s Strategy) string {
	if n, ok := s.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	t := reflect.TypeOf(s)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}

// KecheStrategy trades the keche entry signal.
type KecheStrategy struct {
	Entry string
}

func (s KecheStrategy) Signal() dataset.Signal {
	if s.Entry == "" {
		return dataset.Signal{Entry: common.DefaultSignal}
	}
	return dataset.Signal{Entry: s.Entry}
}

// ConfiguredStrategy is a strategy defined only by configuration.
type ConfiguredStrategy struct {
	StrategyName string
	Entry        string
}

func (s ConfiguredStrategy) Name() string { return s.StrategyName }

func (s ConfiguredStrategy) Signal() dataset.Signal { return dataset.Signal{Entry: s.Entry} }

// LookupStrategy returns the built-in strategy type for name, or a configured
// strategy carrying name and signal.
func LookupStrategy(name, signal string) Strategy {
	switch name {
	case StrategyName(KecheStrategy{}):
		return KecheStrategy{Entry: signal}
	default:
		return ConfiguredStrategy{StrategyName: name, Entry: signal}
	}
}
