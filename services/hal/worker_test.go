package hal

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"gasnode-go/types"
)

// fakeAdaptor implements the generic Adaptor interface. It returns
// ErrNotReady for the first `collectsTill` Collect() calls, then succeeds.
// Counters are atomic: the worker goroutine calls Trigger/Collect while
// the test goroutine adjusts and inspects them.
type fakeAdaptor struct {
	id    string
	after time.Duration

	collectsTill atomic.Int32 // number of ErrNotReady before success
	triggers     atomic.Int32
	collects     atomic.Int32
}

func (f *fakeAdaptor) ID() string              { return f.id }
func (f *fakeAdaptor) Capabilities() []CapInfo { return nil }
func (f *fakeAdaptor) Trigger(ctx context.Context) (time.Duration, error) {
	f.triggers.Add(1)
	return f.after, nil
}
func (f *fakeAdaptor) Collect(ctx context.Context) (Sample, error) {
	if f.collects.Add(1) <= f.collectsTill.Load() {
		return nil, ErrNotReady
	}
	ts := time.Now().UnixMilli()
	return Sample{
		{Kind: "eco2", Payload: types.ECO2Value{PPM: 415}, TsMs: ts},
		{Kind: "tvoc", Payload: types.TVOCValue{PPB: 12}, TsMs: ts},
	}, nil
}
func (f *fakeAdaptor) Control(kind, method string, payload any) (any, error) {
	return nil, ErrUnsupported
}

func TestWorker_SuccessWithRetries(t *testing.T) {
	cfg := WorkerConfig{
		TriggerTimeout: 50 * time.Millisecond,
		CollectTimeout: 50 * time.Millisecond,
		RetryBackoff:   2 * time.Millisecond,
		MaxRetries:     5,
	}
	results := make(chan Result, 4)
	w := NewWorker(cfg, results)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	ad := &fakeAdaptor{id: "gas1", after: 1 * time.Millisecond}
	ad.collectsTill.Store(2)
	if ok := w.Submit(MeasureReq{ID: ad.id, Adaptor: ad}); !ok {
		t.Fatal("submit failed")
	}

	select {
	case r := <-results:
		if r.Err != nil {
			t.Fatalf("unexpected error: %v", r.Err)
		}
		eco2 := findReading(t, r.Sample, "eco2").Payload.(types.ECO2Value)
		tvoc := findReading(t, r.Sample, "tvoc").Payload.(types.TVOCValue)
		if eco2.PPM != 415 || tvoc.PPB != 12 {
			t.Fatalf("bad data: eco2=%v tvoc=%v", eco2, tvoc)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for result")
	}
}

func TestWorker_RetryLimitFailure(t *testing.T) {
	cfg := WorkerConfig{RetryBackoff: 1 * time.Millisecond, MaxRetries: 2}
	results := make(chan Result, 4)
	w := NewWorker(cfg, results)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	ad := &fakeAdaptor{id: "gas2", after: 1 * time.Millisecond}
	ad.collectsTill.Store(10)
	if ok := w.Submit(MeasureReq{ID: ad.id, Adaptor: ad}); !ok {
		t.Fatal("submit failed")
	}

	select {
	case r := <-results:
		if r.Err == nil {
			t.Fatal("expected error after exhausting retries, got nil")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for failure result")
	}
}

func TestWorker_CoalescingAndReadNowDesire(t *testing.T) {
	cfg := WorkerConfig{
		RetryBackoff: 1 * time.Millisecond,
		MaxRetries:   1, // force a quick collect failure
	}
	results := make(chan Result, 4)
	w := NewWorker(cfg, results)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	// Submit a job that will fail its first collect cycle (ErrNotReady twice).
	ad := &fakeAdaptor{id: "gas3", after: 1 * time.Millisecond}
	ad.collectsTill.Store(2)

	if ok := w.Submit(MeasureReq{ID: ad.id, Adaptor: ad}); !ok {
		t.Fatal("submit failed")
	}
	// While pending, submit a priority request to set the desire flag.
	_ = w.Submit(MeasureReq{ID: ad.id, Adaptor: ad, Prio: true})

	// First result should be an error (due to retries exhausted).
	select {
	case r := <-results:
		if r.Err == nil {
			t.Fatal("expected error on first cycle")
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for first failure")
	}

	// Make subsequent collect succeed.
	ad.collectsTill.Store(0)

	// Expect success from the immediate re-trigger driven by desire.
	select {
	case r := <-results:
		if r.Err != nil {
			t.Fatalf("unexpected second error: %v", r.Err)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for success after desire re-trigger")
	}
	if n := ad.triggers.Load(); n < 2 {
		t.Fatalf("expected at least 2 triggers, got %d", n)
	}
}

// -------- helpers --------

func findReading(t *testing.T, s Sample, kind string) Reading {
	t.Helper()
	for _, r := range s {
		if r.Kind == kind {
			return r
		}
	}
	t.Fatalf("reading kind %q not found in sample: %#v", kind, s)
	return Reading{}
}
