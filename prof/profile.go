// Package prof records how long the stages of a run take.
package prof

import (
	"sort"
	"sync"
	"time"
)

// Stage aggregates the timings recorded under one label.
type Stage struct {
	Label string
	Count int
	Total time.Duration
	Max   time.Duration
}

// Recorder collects stage timings; it is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	order  []string
	stages map[string]*Stage
}

func NewRecorder() *Recorder {
	return &Recorder{stages: make(map[string]*Stage)}
}

// Track adds the time elapsed since start to the stage name. Meant for
// defer r.Track(time.Now(), "stage").
func (r *Recorder) Track(start time.Time, name string) {
	elapsed := time.Since(start)
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stages[name]
	if !ok {
		st = &Stage{Label: name}
		r.stages[name] = st
		r.order = append(r.order, name)
	}
	st.Count++
	st.Total += elapsed
	if elapsed > st.Max {
		st.Max = elapsed
	}
}

// Snapshot returns the stages in first-seen order.
func (r *Recorder) Snapshot() []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stage, len(r.order))
	for i, name := range r.order {
		out[i] = *r.stages[name]
	}
	return out
}

// SnapshotAndReset returns the stages and clears the recorder.
func (r *Recorder) SnapshotAndReset() []Stage {
	out := r.Snapshot()
	r.mu.Lock()
	r.order = nil
	r.stages = make(map[string]*Stage)
	r.mu.Unlock()
	return out
}

// ByTotal sorts stages by decreasing total time.
func ByTotal(stages []Stage) {
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Total > stages[j].Total })
}

var std = NewRecorder()

// Track records into the process-wide recorder.
func Track(start time.Time, name string) { std.Track(start, name) }

// SnapshotAndReset drains the process-wide recorder.
func SnapshotAndReset() []Stage { return std.SnapshotAndReset() }
