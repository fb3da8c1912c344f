package affinity

import "testing"

// SetAffinity is platform-dependent and the test environment may not
// grant CGROUP/scheduling permissions, so this only checks that the
// call returns without panicking; the returned error is not inspected.
func TestSetAffinityDoesNotPanic(t *testing.T) {
	_ = SetAffinity(0)
}
