package metrics

import "time"

// ResultLabel enumerates task and run result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for task executions, runs, watch
// triggers and live-reload signals.
type Recorder interface {
	ObserveTaskDuration(task, target string, d time.Duration)
	IncTaskResult(task string, result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome ResultLabel)
	IncWatchTrigger(target string)
	IncLiveReloadSignal()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTaskDuration(string, string, time.Duration) {}
func (NoopRecorder) IncTaskResult(string, ResultLabel)                 {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                  {}
func (NoopRecorder) IncRunOutcome(ResultLabel)                         {}
func (NoopRecorder) IncWatchTrigger(string)                            {}
func (NoopRecorder) IncLiveReloadSignal()                              {}
