package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRefillCountsBytesAndShortReads(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	r.ObserveRefill(0, 1, 128)
	r.ObserveRefill(0, 1, 0)

	if got := testutil.ToFloat64(r.refillBytes.WithLabelValues("0", "1")); got != 128 {
		t.Fatalf("refillBytes = %v, want 128", got)
	}
	if got := testutil.ToFloat64(r.refillShortReads.WithLabelValues("0", "1")); got != 1 {
		t.Fatalf("refillShortReads = %v, want 1", got)
	}
}

func TestIncSpectraEmitted(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	r.IncSpectraEmitted("auto", 3)
	r.IncSpectraEmitted("auto", 2)
	if got := testutil.ToFloat64(r.spectraEmitted.WithLabelValues("auto")); got != 5 {
		t.Fatalf("spectraEmitted = %v, want 5", got)
	}
}

func TestNilRegistryMethodsAreNoOps(t *testing.T) {
	var r *Registry
	r.ObserveRefill(0, 0, 10)
	r.ObserveRefillDuration(0, time.Millisecond)
	r.ObserveWorkerRun(0, time.Millisecond)
	r.IncSpectraEmitted("auto", 1)
	if err := r.Close(); err != nil {
		t.Fatalf("Close on nil Registry: %v", err)
	}
}
