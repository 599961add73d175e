package businessflow

import "sync"

// divisionMutex serializes division creation across requests so the 100%
// ceiling check and the insert cannot interleave.
var (
	divisionMutex sync.Mutex
)

func lockDivisionCreate() {
	divisionMutex.Lock()
}

func unlockDivisionCreate() {
	divisionMutex.Unlock()
}
