// Package profile stores the operator profile, UI preferences and linked
// cloud accounts of a receiving station.
package profile

import (
	"fmt"

	"github.com/weighcheck/weighcheck/internal/platform/httpx"
)

// Theme is the UI color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// DefaultLanguage is used until the operator picks another one.
const DefaultLanguage = "pt"

// Profile identifies the operator. Store is stamped onto every record saved.
type Profile struct {
	Name  string `json:"name" validate:"max=120"`
	Role  string `json:"role" validate:"max=120"`
	Store string `json:"store" validate:"max=120"`
	Photo string `json:"photo,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// Preferences are the UI settings the station keeps.
type Preferences struct {
	Theme    Theme  `json:"theme" validate:"required,oneof=light dark"`
	Language string `json:"language" validate:"required,min=2,max=10"`
}

// Links maps an external provider (e.g. "google") to the linked account.
type Links map[string]string

// ErrValidation wraps invalid profile input.
var ErrValidation = fmt.Errorf("profile: %w", httpx.ErrValidation)
