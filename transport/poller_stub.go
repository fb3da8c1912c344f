//go:build !linux

package transport

import "errors"

// NewPoller returns an error on platforms without an epoll-equivalent
// wired up. The engine treats this as "no optimization available" and
// falls back to its fixed-interval poll tick, per Poller's doc comment.
func NewPoller() (Poller, error) {
	return nil, errors.New("transport: no Poller implementation for this platform")
}
