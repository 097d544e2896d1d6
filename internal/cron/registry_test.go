package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA, time.Minute)
	registry.Register(jobB, -time.Second)
	registry.Register(nil, time.Hour)
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	entries := registry.Entries()
	if entries[0].Every != time.Minute || entries[1].Every != 0 {
		t.Fatalf("unexpected intervals %+v", entries)
	}
	// ensure caller cannot mutate internal slice
	entries[0].Job = nil
	if registry.Entries()[0].Job == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "order-expiration"})
	if _, ok := registry.Lookup("order-expiration"); !ok {
		t.Fatal("expected registered job to be found")
	}
	if _, ok := registry.Lookup("missing"); ok {
		t.Fatal("expected unknown job lookup to fail")
	}
}
