// Package output provides formatters for displaying controlled-process
// tables in various output formats (pretty, plain, json, yaml, etc.).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nudgeproject/nudge/pkg/nudge/logging"
)

// logger is the package-level logger for output operations.
var logger = logging.Get("output")

// ProcessInfo contains detailed information about a controlled process for
// output formatting. It extends the raw snapshot row with computed fields
// like the human-readable runtime delta for easier formatting.
type ProcessInfo struct {
	// PID is the process identifier.
	PID int32 `json:"pid" yaml:"pid"`

	// Name is the process name.
	Name string `json:"name" yaml:"name"`

	// Nice is the niceness the process held after the last cycle.
	Nice int `json:"nice" yaml:"nice"`

	// State is the load classification from the last cycle (low, med, high).
	State string `json:"state" yaml:"state"`

	// LastAction is the adjustment chosen in the last cycle (lower, raise, hold).
	LastAction string `json:"last_action" yaml:"last_action"`

	// DeltaNS is the CPU runtime consumed over the last cycle, in nanoseconds.
	DeltaNS uint64 `json:"delta_ns" yaml:"delta_ns"`

	// Delta is the human-readable runtime delta (e.g., "48.2ms").
	Delta string `json:"delta" yaml:"delta"`
}

// ControllerStats contains lifetime counters from the controller.
type ControllerStats struct {
	// Cycles is the number of completed scan cycles.
	Cycles uint64 `json:"cycles" yaml:"cycles"`

	// Applied is the number of niceness adjustments that took effect.
	Applied uint64 `json:"applied" yaml:"applied"`

	// Failed is the number of adjustments the kernel refused.
	Failed uint64 `json:"failed" yaml:"failed"`

	// Reaped is the number of exited processes dropped from tracking.
	Reaped uint64 `json:"reaped" yaml:"reaped"`

	// Uptime is how long the controller has been running.
	Uptime time.Duration `json:"uptime" yaml:"uptime"`
}

// Result contains the complete output data for formatting.
// It includes all tracked processes, controller statistics, and metadata
// about the running daemon.
type Result struct {
	// Processes contains all tracked processes, sorted by runtime delta
	// descending.
	Processes []ProcessInfo `json:"processes" yaml:"processes"`

	// Stats contains controller lifetime counters.
	Stats ControllerStats `json:"stats" yaml:"stats"`

	// Interval is the controller's pause between scan cycles.
	Interval time.Duration `json:"interval" yaml:"interval"`

	// DaemonUp indicates if the nudge daemon is running.
	DaemonUp bool `json:"daemon_up" yaml:"daemon_up"`

	// Tracked is the total number of processes under control.
	Tracked int `json:"tracked" yaml:"tracked"`

	// Warnings contains any warning messages generated while collecting
	// the snapshot.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// TotalDeltaNS returns the sum of all runtime deltas in the result.
func (r *Result) TotalDeltaNS() uint64 {
	var total uint64
	for _, p := range r.Processes {
		total += p.DeltaNS
	}
	return total
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
