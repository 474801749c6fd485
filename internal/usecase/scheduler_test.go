package usecase

import (
	"context"
	"testing"
	"time"

	"ArticleEnricher/internal/logging"
	"ArticleEnricher/internal/testsupport"
)

// immediateDriver fires the job once on Start.
type immediateDriver struct {
	stopped bool
}

func (d *immediateDriver) Start(_ context.Context, job func(time.Time)) error {
	job(time.Now())
	return nil
}

func (d *immediateDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsFullPipeline(t *testing.T) {
	t.Parallel()

	now := time.Now()
	source := newFakeSource()
	source.add(1, "a", now.Add(-time.Minute), paraMarkup("Scheduled."))
	notifier := &fakeNotifier{}
	pipeline := newTestPipeline(t, source, testsupport.MustOpenStore(t), &fakeModel{}, notifier)

	driver := &immediateDriver{}
	s := NewScheduler(driver, pipeline, logging.Discard())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("the triggered job should run the pipeline once, got %d summaries", len(notifier.messages))
	}
	if err := s.Stop(context.Background()); err != nil || !driver.stopped {
		t.Fatalf("Stop = %v, stopped %v", err, driver.stopped)
	}
}
