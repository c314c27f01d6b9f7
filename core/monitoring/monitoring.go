// Package monitoring forwards unexpected failures to a process wide error
// tracker. Until Init is called every report is dropped.
package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// Monitor receives errors that no caller can handle.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

// NopMonitor discards everything.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init installs m as the global monitor. A nil m keeps the current one.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException reports err with tags. A nil err is ignored.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// CapturePanic turns a value returned by recover into an error, reports it
// tagged with module and returns it.
func CapturePanic(module string, r any) error {
	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("%v", r)
	}
	err := fmt.Errorf("%s panic: %w", module, cause)
	CaptureException(err, map[string]string{"module": module, "kind": "panic"})
	return err
}

// Flush waits up to d for buffered reports to be delivered.
func Flush(d time.Duration) {
	get().Flush(d)
}
