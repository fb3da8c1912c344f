// Package version reports this module's own version surface. It is
// intentionally minimal: the spec lists version reporting as out of
// scope for deep engineering, but the three-integer/packed surface is
// still part of the public interface so it is implemented functionally.
package version

import (
	"fmt"
	"runtime"
)

const (
	Major = 1
	Minor = 0
	Patch = 0
)

// Packed returns (major<<16)|(minor<<8)|patch, matching the packed
// integer surface of the original C++ library's version header.
func Packed() uint32 {
	return uint32(Major)<<16 | uint32(Minor)<<8 | uint32(Patch)
}

// String returns "major.minor.patch".
func String() string {
	return fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
}

// TransportVersion is the closest honest analogue of the original
// library's getCurlVersion(): there is no single "transport library"
// version string backing net/http, so this reports the Go runtime
// version alongside this module's own version.
func TransportVersion() string {
	return fmt.Sprintf("urlreq/%s (%s)", String(), runtime.Version())
}
