package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/weighcheck/weighcheck/internal/kvstore"
)

// Service reads and writes the station profile and preferences.
type Service struct {
	store    kvstore.Store
	validate *validator.Validate
}

// NewService constructs the profile service.
func NewService(store kvstore.Store) *Service {
	return &Service{store: store, validate: validator.New()}
}

// Profile returns the stored profile or an empty one.
func (s *Service) Profile(ctx context.Context) (Profile, error) {
	var p Profile
	if _, err := kvstore.GetJSON(ctx, s.store, kvstore.KeyProfile, &p); err != nil {
		return Profile{}, fmt.Errorf("profile: load: %w", err)
	}
	return p, nil
}

// UpdateProfile validates and replaces the profile.
func (s *Service) UpdateProfile(ctx context.Context, p Profile) (Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Role = strings.TrimSpace(p.Role)
	p.Store = strings.TrimSpace(p.Store)
	p.Email = strings.TrimSpace(p.Email)
	if err := s.check(p); err != nil {
		return Profile{}, err
	}
	if err := s.ReplaceProfile(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// ReplaceProfile writes p without validation. Used by restore.
func (s *Service) ReplaceProfile(ctx context.Context, p Profile) error {
	if err := kvstore.SetJSON(ctx, s.store, kvstore.KeyProfile, p); err != nil {
		return fmt.Errorf("profile: save: %w", err)
	}
	return nil
}

// Theme returns the stored theme, light when unset.
func (s *Service) Theme(ctx context.Context) (Theme, error) {
	var t Theme
	found, err := kvstore.GetJSON(ctx, s.store, kvstore.KeyTheme, &t)
	if err != nil {
		return "", fmt.Errorf("profile: load theme: %w", err)
	}
	if !found || t == "" {
		return ThemeLight, nil
	}
	return t, nil
}

// SetTheme stores t.
func (s *Service) SetTheme(ctx context.Context, t Theme) error {
	if t != ThemeLight && t != ThemeDark {
		return fmt.Errorf("%w: theme must be light or dark", ErrValidation)
	}
	if err := kvstore.SetJSON(ctx, s.store, kvstore.KeyTheme, t); err != nil {
		return fmt.Errorf("profile: save theme: %w", err)
	}
	return nil
}

// Language returns the stored UI language.
func (s *Service) Language(ctx context.Context) (string, error) {
	var lang string
	found, err := kvstore.GetJSON(ctx, s.store, kvstore.KeyLanguage, &lang)
	if err != nil {
		return "", fmt.Errorf("profile: load language: %w", err)
	}
	if !found || lang == "" {
		return DefaultLanguage, nil
	}
	return lang, nil
}

// SetLanguage stores lang.
func (s *Service) SetLanguage(ctx context.Context, lang string) error {
	lang = strings.TrimSpace(lang)
	if err := s.validate.Var(lang, "required,min=2,max=10"); err != nil {
		return fmt.Errorf("%w: language must be 2 to 10 characters", ErrValidation)
	}
	if err := kvstore.SetJSON(ctx, s.store, kvstore.KeyLanguage, lang); err != nil {
		return fmt.Errorf("profile: save language: %w", err)
	}
	return nil
}

// Preferences returns theme and language together.
func (s *Service) Preferences(ctx context.Context) (Preferences, error) {
	theme, err := s.Theme(ctx)
	if err != nil {
		return Preferences{}, err
	}
	lang, err := s.Language(ctx)
	if err != nil {
		return Preferences{}, err
	}
	return Preferences{Theme: theme, Language: lang}, nil
}

// UpdatePreferences validates and stores both preferences.
func (s *Service) UpdatePreferences(ctx context.Context, p Preferences) (Preferences, error) {
	p.Language = strings.TrimSpace(p.Language)
	if err := s.check(p); err != nil {
		return Preferences{}, err
	}
	if err := s.SetTheme(ctx, p.Theme); err != nil {
		return Preferences{}, err
	}
	if err := s.SetLanguage(ctx, p.Language); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// Links returns the linked accounts.
func (s *Service) Links(ctx context.Context) (Links, error) {
	links := Links{}
	if _, err := kvstore.GetJSON(ctx, s.store, kvstore.KeyAuthLinks, &links); err != nil {
		return nil, fmt.Errorf("profile: load links: %w", err)
	}
	if links == nil {
		links = Links{}
	}
	return links, nil
}

// SetLink links account to provider. An empty account unlinks it.
func (s *Service) SetLink(ctx context.Context, provider, account string) (Links, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if err := s.validate.Var(provider, "required,alphanum,max=32"); err != nil {
		return nil, fmt.Errorf("%w: invalid provider", ErrValidation)
	}
	links, err := s.Links(ctx)
	if err != nil {
		return nil, err
	}
	account = strings.TrimSpace(account)
	if account == "" {
		delete(links, provider)
	} else {
		links[provider] = account
	}
	if err := kvstore.SetJSON(ctx, s.store, kvstore.KeyAuthLinks, links); err != nil {
		return nil, fmt.Errorf("profile: save links: %w", err)
	}
	return links, nil
}

func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field())))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}
