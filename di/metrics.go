package di

import (
	metrics "github.com/rcrowley/go-metrics"
)

// Metric names, relative to the configured prefix.
const (
	StatCreated  = "created"  // creators that produced a bean
	StatFailed   = "failed"   // creators that failed or panicked
	StatCycles   = "cycles"   // cycles detected
	StatReleased = "released" // handles released by Close
	StatLive     = "live"     // beans currently owned
	StatCreate   = "create"   // creator latency
)

type instruments struct {
	created  metrics.Counter
	failed   metrics.Counter
	cycles   metrics.Counter
	released metrics.Counter
	live     metrics.Counter
	create   metrics.Timer
}

func newInstruments(r metrics.Registry, prefix string) *instruments {
	name := func(s string) string {
		if prefix == "" {
			return s
		}
		return prefix + "." + s
	}
	return &instruments{
		created:  metrics.GetOrRegisterCounter(name(StatCreated), r),
		failed:   metrics.GetOrRegisterCounter(name(StatFailed), r),
		cycles:   metrics.GetOrRegisterCounter(name(StatCycles), r),
		released: metrics.GetOrRegisterCounter(name(StatReleased), r),
		live:     metrics.GetOrRegisterCounter(name(StatLive), r),
		create:   metrics.GetOrRegisterTimer(name(StatCreate), r),
	}
}
