//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for pinning the engine's poll goroutine
// to a single CPU core, via golang.org/x/sys/unix rather than cgo so
// the resulting binary stays statically linkable.

package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// setAffinityPlatform sets the calling OS thread's affinity to cpuID.
// Callers must have already pinned their goroutine to its OS thread
// with runtime.LockOSThread, since CPU affinity is a thread property,
// not a goroutine property.
func setAffinityPlatform(cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: SchedSetaffinity failed: %w", err)
	}
	return nil
}
