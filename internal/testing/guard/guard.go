// Package guard flips the binaries into test mode when imported by a test.
// Importing it also moves the store namespace off the default so a stray
// main() call cannot touch production keys.
package guard

import "os"

func init() {
	setDefault("WEIGHCHECK_TEST_MODE", "1")
	setDefault("STORE_NAMESPACE", "weighcheck-test")
}

func setDefault(key, value string) {
	if _, ok := os.LookupEnv(key); !ok {
		_ = os.Setenv(key, value)
	}
}
