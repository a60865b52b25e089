package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

const testModeEnv = "WEIGHCHECK_TEST_MODE"

// testMode caches the parsed flag; nil until first read.
var testMode atomic.Pointer[bool]

func readTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(testModeEnv))
	return err == nil && on
}

// InTestMode reports whether the binaries should return before opening
// Redis, Postgres or the listeners.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	on := readTestMode()
	testMode.CompareAndSwap(nil, &on)
	return *testMode.Load()
}

// RefreshTestMode re-reads the environment after it changed.
func RefreshTestMode() {
	on := readTestMode()
	testMode.Store(&on)
}
