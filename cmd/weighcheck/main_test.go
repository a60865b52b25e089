package main

import (
	"testing"

	_ "github.com/weighcheck/weighcheck/internal/testing/guard"

	"github.com/weighcheck/weighcheck/internal/app"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	if !app.InTestMode() {
		t.Fatal("expected test mode")
	}
	main()
}
