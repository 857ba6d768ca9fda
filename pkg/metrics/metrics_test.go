package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncrementSlowQuery(t *testing.T) {
	// ToFloat64 panics on labeled vectors, so this also guards the
	// counter against growing a per-query label back.
	before := testutil.ToFloat64(SlowQueryCount)

	IncrementSlowQuery(250 * time.Millisecond)
	IncrementSlowQuery(2 * time.Second)

	if got := testutil.ToFloat64(SlowQueryCount); got != before+2 {
		t.Errorf("slow query count = %v, want %v", got, before+2)
	}
}
