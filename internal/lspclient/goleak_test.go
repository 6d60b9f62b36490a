package lspclient

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures readLoop goroutines from every Client spawned in this
// package's tests are gone by the time the suite exits.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	)
}
