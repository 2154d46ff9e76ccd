// Package tracing times the stages of a single operation and logs them as
// one structured record.
package tracing

import (
	"context"
	"log/slog"
	"time"
)

type Stage struct {
	Name     string
	Duration time.Duration
}

// Trace is owned by one goroutine; it is not safe for concurrent use.
type Trace struct {
	name   string
	start  time.Time
	last   time.Time
	stages []Stage
	now    func() time.Time
}

func Start(name string) *Trace {
	return startAt(name, time.Now)
}

func startAt(name string, now func() time.Time) *Trace {
	t := now()
	return &Trace{name: name, start: t, last: t, stages: make([]Stage, 0, 6), now: now}
}

// Mark closes the stage running since the previous Mark (or Start).
func (t *Trace) Mark(stage string) {
	now := t.now()
	t.stages = append(t.stages, Stage{Name: stage, Duration: now.Sub(t.last)})
	t.last = now
}

func (t *Trace) Stages() []Stage {
	return t.stages
}

func (t *Trace) Total() time.Duration {
	return t.last.Sub(t.start)
}

// Log writes the trace at level with one "<stage>_us" attribute per stage.
func (t *Trace) Log(ctx context.Context, logger *slog.Logger, level slog.Level, attrs ...any) {
	if !logger.Enabled(ctx, level) {
		return
	}
	args := make([]any, 0, len(attrs)+2*len(t.stages)+2)
	args = append(args, attrs...)
	for _, s := range t.stages {
		args = append(args, s.Name+"_us", s.Duration.Microseconds())
	}
	args = append(args, "total_us", t.Total().Microseconds())
	logger.Log(ctx, level, t.name, args...)
}
