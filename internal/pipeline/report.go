package pipeline

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

// StepResult is the outcome of one task target.
type StepResult struct {
	Spec     string
	Task     string
	Target   string
	Result   metrics.ResultLabel
	Duration time.Duration
	Err      error
	order    int
}

// Name returns "task:target".
func (s StepResult) Name() string { return s.Task + ":" + s.Target }

// Report collects the results of one run.
type Report struct {
	RunID    string
	Specs    []string
	Started  time.Time
	Finished time.Time
	Outcome  metrics.ResultLabel
	Err      error

	mu    sync.Mutex
	steps []StepResult
}

func newReport(runID string, specs []string) *Report {
	return &Report{RunID: runID, Specs: specs, Started: time.Now()}
}

// add records a target result; order is the step index so concurrent targets
// still sort by their position in the sequence.
func (r *Report) add(order int, s StepResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.order = order
	r.steps = append(r.steps, s)
}

func (r *Report) finish(err error) {
	r.Finished = time.Now()
	r.Err = err
	r.Outcome = outcomeFor(err)
}

// Steps returns the target results in step order.
func (r *Report) Steps() []StepResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]StepResult(nil), r.steps...)
	slices.SortStableFunc(out, func(a, b StepResult) int { return cmp.Compare(a.order, b.order) })
	return out
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return time.Since(r.Started)
	}
	return r.Finished.Sub(r.Started)
}

// Failed returns the failing targets.
func (r *Report) Failed() []StepResult {
	var out []StepResult
	for _, s := range r.Steps() {
		if s.Result == metrics.ResultFailed {
			out = append(out, s)
		}
	}
	return out
}

// WriteTiming prints the per-target timing table.
func (r *Report) WriteTiming(w io.Writer) error {
	total := r.Duration()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Execution Time (%s)\n", r.Started.Format(time.RFC1123))
	for _, s := range r.Steps() {
		share := 0.0
		if total > 0 {
			share = float64(s.Duration) / float64(total) * 100
		}
		bar := strings.Repeat("▇", int(share/5))
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s %.0f%%\t%s\n", s.Name(), s.Duration.Round(time.Millisecond), bar, share, s.Result)
	}
	_, _ = fmt.Fprintf(tw, "Total\t%s\t\t%s\n", total.Round(time.Millisecond), r.Outcome)
	return tw.Flush()
}
