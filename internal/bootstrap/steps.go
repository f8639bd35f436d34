package bootstrap

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// StepRecord is the result of one executed step.
type StepRecord struct {
	Name     string
	Err      error
	Duration time.Duration
	Critical bool
}

// StepRecorder receives every executed step, e.g. for metrics.
type StepRecorder interface {
	RecordStep(step string, critical bool, duration time.Duration, err error)
}

// executor runs steps in order, records them and never escalates an error.
type executor struct {
	logger   *zap.Logger
	recorder StepRecorder

	mu             sync.Mutex
	records        []StepRecord
	criticalFailed bool
}

func newExecutor(logger *zap.Logger, recorder StepRecorder) *executor {
	return &executor{logger: logger, recorder: recorder}
}

// run executes fn as a log-and-continue step.
func (e *executor) run(name string, fn func() error) {
	e.exec(name, false, fn)
}

// runCritical executes fn; a failure marks the run as degraded.
func (e *executor) runCritical(name string, fn func() error) {
	e.exec(name, true, fn)
}

func (e *executor) exec(name string, critical bool, fn func() error) {
	start := time.Now()
	err := fn()
	rec := StepRecord{Name: name, Err: err, Duration: time.Since(start), Critical: critical}

	e.mu.Lock()
	e.records = append(e.records, rec)
	if err != nil && critical {
		e.criticalFailed = true
	}
	e.mu.Unlock()

	if e.recorder != nil {
		e.recorder.RecordStep(name, critical, rec.Duration, err)
	}

	switch {
	case err != nil && critical:
		e.logger.Error("Critical bootstrap step failed", zap.String("step", name), zap.Error(err))
	case err != nil:
		e.logger.Error("Bootstrap step failed", zap.String("step", name), zap.Error(err))
	default:
		e.logger.Debug("Bootstrap step done", zap.String("step", name), zap.Duration("duration", rec.Duration))
	}
}

func (e *executor) snapshot() ([]StepRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]StepRecord(nil), e.records...), e.criticalFailed
}

// logTiming writes one line with the duration of every step.
func (e *executor) logTiming(total time.Duration) {
	records, _ := e.snapshot()
	fields := make([]zap.Field, 0, len(records)+1)
	fields = append(fields, zap.Duration("total", total))
	for _, r := range records {
		fields = append(fields, zap.Duration(r.Name, r.Duration))
	}
	e.logger.Info("Startup timing", fields...)
}
