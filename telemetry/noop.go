package telemetry

import "io"

// noOpCollector is a collector that does nothing. It provides zero overhead
// when telemetry is disabled.
type noOpCollector struct{}

func (noOpCollector) Start(name string) Timer { return noOpTimer{} }

func (noOpCollector) Report(w io.Writer) {}

// noOpTimer is a timer that does nothing.
type noOpTimer struct{}

func (noOpTimer) End() {}

func (noOpTimer) Child(name string) Timer { return noOpTimer{} }
