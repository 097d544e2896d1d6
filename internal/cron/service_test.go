package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
	"github.com/angelmondragon/vendorbox-backend/pkg/metrics"
)

type fakeLock struct {
	held       bool
	acquireErr error
	releases   int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type fakeLocks map[string]*fakeLock

func (f fakeLocks) factory(job string) Lock {
	lock, ok := f[job]
	if !ok {
		lock = &fakeLock{}
		f[job] = lock
	}
	return lock
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T, registry *Registry, locks fakeLocks, clk *clock, m *metrics.CronJobMetrics) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: registry,
		Locks:    locks.factory,
		Metrics:  m,
		Now:      clk.Now,
	})
	require.NoError(t, err)
	return service
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	registry := NewRegistry(success, failure)
	locks := fakeLocks{}
	service := newTestService(t, registry, locks, &clock{now: time.Now()}, nil)

	require.NoError(t, service.runCycle(context.Background()))
	assert.Equal(t, 1, success.runs)
	assert.Equal(t, 1, failure.runs)
	assert.Equal(t, 1, locks["success"].releases)
	assert.Equal(t, 1, locks["fail"].releases)
}

func TestServiceHonorsPerJobInterval(t *testing.T) {
	fast := &testJob{name: "order-expiration"}
	slow := &testJob{name: "payment-cleanup"}
	registry := NewRegistry()
	registry.Register(fast, 5*time.Minute)
	registry.Register(slow, time.Hour)
	clk := &clock{now: time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC)}
	service := newTestService(t, registry, fakeLocks{}, clk, nil)
	ctx := context.Background()

	require.NoError(t, service.runCycle(ctx))
	for i := 0; i < 12; i++ {
		clk.advance(5 * time.Minute)
		require.NoError(t, service.runCycle(ctx))
	}

	assert.Equal(t, 13, fast.runs)
	assert.Equal(t, 2, slow.runs)
}

func TestServiceSkipsJobHeldByAnotherWorker(t *testing.T) {
	job := &testJob{name: "order-expiration"}
	locks := fakeLocks{"order-expiration": &fakeLock{held: true}}
	reg := prometheus.NewRegistry()
	service := newTestService(t, NewRegistry(job), locks, &clock{now: time.Now()}, metrics.NewCronJobMetrics(reg))

	require.NoError(t, service.runCycle(context.Background()))
	assert.Zero(t, job.runs)
	assert.Zero(t, locks["order-expiration"].releases)

	families, err := reg.Gather()
	require.NoError(t, err)
	var skipped float64
	for _, family := range families {
		if family.GetName() == "job_skipped" {
			skipped = family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, skipped)
}

func TestServiceCombinesLockErrors(t *testing.T) {
	a := &testJob{name: "a"}
	b := &testJob{name: "b"}
	locks := fakeLocks{
		"a": &fakeLock{acquireErr: errors.New("redis down")},
		"b": &fakeLock{acquireErr: errors.New("redis down")},
	}
	service := newTestService(t, NewRegistry(a, b), locks, &clock{now: time.Now()}, nil)

	err := service.runCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: lock acquire")
	assert.Contains(t, err.Error(), "b: lock acquire")
	assert.Zero(t, a.runs+b.runs)
}

func TestServiceRetriesJobAfterLockFailure(t *testing.T) {
	job := &testJob{name: "payment-cleanup"}
	registry := NewRegistry()
	registry.Register(job, 7*24*time.Hour)
	lock := &fakeLock{acquireErr: errors.New("redis down")}
	clk := &clock{now: time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC)}
	service := newTestService(t, registry, fakeLocks{"payment-cleanup": lock}, clk, nil)
	ctx := context.Background()

	require.Error(t, service.runCycle(ctx))
	assert.Zero(t, job.runs)

	lock.acquireErr = nil
	clk.advance(time.Minute)
	require.NoError(t, service.runCycle(ctx))
	assert.Equal(t, 1, job.runs)

	clk.advance(time.Minute)
	require.NoError(t, service.runCycle(ctx))
	assert.Equal(t, 1, job.runs, "job stays on its weekly cadence once it ran")
}

func TestServiceSkippedJobWaitsForNextInterval(t *testing.T) {
	job := &testJob{name: "order-expiration"}
	registry := NewRegistry()
	registry.Register(job, 5*time.Minute)
	lock := &fakeLock{held: true}
	clk := &clock{now: time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC)}
	service := newTestService(t, registry, fakeLocks{"order-expiration": lock}, clk, nil)
	ctx := context.Background()

	require.NoError(t, service.runCycle(ctx))
	lock.held = false
	clk.advance(time.Minute)
	require.NoError(t, service.runCycle(ctx))
	assert.Zero(t, job.runs)

	clk.advance(4 * time.Minute)
	require.NoError(t, service.runCycle(ctx))
	assert.Equal(t, 1, job.runs)
}

func TestServiceRecordsJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCronJobMetrics(reg)
	registry := NewRegistry(&testJob{name: "ok"}, &testJob{name: "bad", err: errors.New("boom")})
	service := newTestService(t, registry, fakeLocks{}, &clock{now: time.Now()}, m)

	require.NoError(t, service.runCycle(context.Background()))

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if metric.GetCounter() == nil {
				continue
			}
			for _, label := range metric.GetLabel() {
				if label.GetName() == "job" {
					counts[family.GetName()+"/"+label.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 1.0, counts["job_success/ok"])
	assert.Equal(t, 1.0, counts["job_failure/bad"])
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.New(logger.Options{Output: io.Discard})})
	require.Error(t, err)
}
