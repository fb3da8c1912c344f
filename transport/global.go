package transport

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

var (
	globalInitOnce    sync.Once
	globalInitSuccess atomic.Bool
)

// GlobalInit performs this package's one-time setup: tuning the shared
// HTTPClient's transport connection pool. Grounded on
// original_source/src/Requester.cpp's file-scope GlobalSetup struct
// (curl_global_init/curl_global_cleanup), translated to the nearest Go
// equivalent of "one-time library-wide setup" — this module has no
// process-wide handle to initialize, so the closest honest analogue is
// tuning net/http's shared transport once up front. Safe to call
// multiple times; only the first call does anything.
func GlobalInit() {
	globalInitOnce.Do(func() {
		if rt, ok := HTTPClient.Transport.(*http.Transport); ok {
			rt.MaxIdleConnsPerHost = 64
		} else if HTTPClient.Transport == nil {
			HTTPClient.Transport = &http.Transport{
				MaxIdleConnsPerHost:   64,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
			}
		}
		globalInitSuccess.Store(true)
	})
}

// GlobalInitOK reports whether GlobalInit has run and succeeded.
func GlobalInitOK() bool {
	return globalInitSuccess.Load()
}
