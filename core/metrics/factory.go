package metrics

import (
	"fmt"

	"github.com/kilianp07/chargectl/core/factory"
)

var sinkRegistry = factory.NewRegistry[Sink]()

// RegisterSink adds a sink factory under name. The infra/metrics package
// registers the built-in sinks from its init function.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinkRegistry.Types() }

// NewSink builds the configured sinks. No configuration yields a NopSink and
// several are combined into a MultiSink. When one entry fails the sinks
// already opened are closed again.
func NewSink(cfgs []factory.ModuleConfig) (Sink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		s, err := sinkRegistry.Create(cfgs[0])
		if err != nil {
			return nil, fmt.Errorf("metrics.sinks[0]: %w", err)
		}
		return s, nil
	}
	multi := NewMultiSink()
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			_ = multi.Close()
			return nil, fmt.Errorf("metrics.sinks[%d]: %w", i, err)
		}
		multi.Add(s)
	}
	return multi, nil
}
