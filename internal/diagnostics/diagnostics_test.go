package diagnostics

import (
	"context"
	"testing"
	"time"
)

func TestCollectReturnsPlausiblePercentages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := Collect(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for name, v := range map[string]float64{
		"cpu":  snap.CPUPercent,
		"mem":  snap.MemPercent,
		"disk": snap.DiskPercent,
	} {
		if v < 0 || v > 100 {
			t.Fatalf("%s percent out of range: %v", name, v)
		}
	}
}
