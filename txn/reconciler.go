package txn

import (
	"sync/atomic"
)

// IDSource hands out synthesized ids for not-yet-persisted entities.
// Implementations must be safe under arbitrary concurrent callers.
type IDSource interface {
	NextID() int64
}

// reconcilerSeed starts the counter far from zero so synthesized ids can
// never collide with small hand-written test ids or backend-assigned ids.
const reconcilerSeed = -1_000_000

// Reconciler is the process-wide synthesized-id counter: signed,
// monotonically decreasing, never reset, never reused. NextID is an atomic
// fetch-and-decrement and never blocks.
//
// The placeholder->id map that consumes these ids is NOT part of this type;
// it is owned per compile call so concurrent requests cannot contaminate
// each other's placeholder resolutions.
type Reconciler struct {
	counter atomic.Int64
}

// NewReconciler returns a reconciler with a fresh counter. Production code
// shares one instance per process; tests create their own for determinism.
func NewReconciler() *Reconciler {
	r := &Reconciler{}
	r.counter.Store(reconcilerSeed)
	return r
}

// NextID atomically decrements the counter and returns the new value.
func (r *Reconciler) NextID() int64 {
	return r.counter.Add(-1)
}
