package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tesebook/pkg/auth"
	"tesebook/pkg/chat"
	"tesebook/pkg/domain"
	"tesebook/pkg/storage"
	"tesebook/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	SessionBackend string
	SessionTTL     time.Duration
	JWTSecret      string

	// Documents receives PDF uploads, Images covers and profile photos.
	Documents storage.ObjectStore
	Images    storage.ObjectStore

	// Store and Sessions override the config-driven backends (tests).
	Store    store.Store
	Sessions store.SessionStore
}

// App is the core application service wiring storage, sessions, and the
// domain flows together.
type App struct {
	store     store.Store
	sessions  store.SessionStore
	documents storage.ObjectStore
	images    storage.ObjectStore
	feeds     *chat.Feeds
	now       func() time.Time
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		switch cfg.SessionBackend {
		case "jwt":
			var revoker store.TokenRevoker
			if strings.TrimSpace(cfg.RedisAddr) != "" {
				revoker = store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
			}
			var err error
			sessionStore, err = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL, revoker)
			if err != nil {
				return nil, fmt.Errorf("init jwt session store: %w", err)
			}
		case "redis", "":
			if strings.TrimSpace(cfg.RedisAddr) == "" {
				return nil, fmt.Errorf("redisAddr is required for the redis session backend")
			}
			sessionStore = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		default:
			return nil, fmt.Errorf("unknown session backend: %s", cfg.SessionBackend)
		}
	}

	if cfg.Documents == nil || cfg.Images == nil {
		return nil, fmt.Errorf("document and image object stores are required")
	}

	return &App{
		store:     dataStore,
		sessions:  sessionStore,
		documents: cfg.Documents,
		images:    cfg.Images,
		feeds:     chat.NewFeeds(),
		now:       time.Now,
	}, nil
}

// RegisterInput carries the sign-up form fields.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Course      string
	Institution string
	Degree      string
}

// SignUp registers a new user and upserts the 1:1 profile row, so
// re-registering the same identifier updates the profile instead of
// failing with a duplicate.
func (a *App) SignUp(in RegisterInput) (domain.User, string, error) {
	email := auth.NormalizeEmail(in.Email)
	if email == "" {
		return domain.User{}, "", ErrEmailRequired
	}
	if in.Password == "" {
		return domain.User{}, "", ErrPasswordRequired
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return domain.User{}, "", err
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		return domain.User{}, "", ErrDisplayNameRequired
	}

	user, exists, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		// Same identifier, matching password: treat as a profile update.
		if !auth.CheckPassword(in.Password, user.PasswordHash) {
			return domain.User{}, "", ErrEmailAlreadyExists
		}
	} else {
		passwordHash, err := auth.HashPassword(in.Password)
		if err != nil {
			return domain.User{}, "", fmt.Errorf("hash password: %w", err)
		}
		now := a.now().UTC()
		user = domain.User{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: passwordHash,
			Status:       domain.StatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := a.store.SaveUser(user); err != nil {
			return domain.User{}, "", fmt.Errorf("save user: %w", err)
		}
	}

	profile := domain.UserProfile{
		ID:          user.ID,
		DisplayName: strings.TrimSpace(in.DisplayName),
		Course:      strings.TrimSpace(in.Course),
		Institution: strings.TrimSpace(in.Institution),
		Degree:      strings.TrimSpace(in.Degree),
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   a.now().UTC(),
	}
	if existing, ok, err := a.store.GetProfile(user.ID); err == nil && ok {
		profile.CreatedAt = existing.CreatedAt
		profile.PhotoURL = existing.PhotoURL
	}
	if err := a.store.SaveProfile(profile); err != nil {
		return domain.User{}, "", fmt.Errorf("save profile: %w", err)
	}

	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	normalized := auth.NormalizeEmail(email)
	if normalized == "" {
		return domain.User{}, "", ErrEmailRequired
	}
	if password == "" {
		return domain.User{}, "", ErrPasswordRequired
	}
	user, ok, err := a.store.GetUserByEmail(normalized)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if user.Status == domain.StatusDisabled {
		return domain.User{}, "", ErrUserDisabled
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	return user, token, nil
}

// Logout invalidates a session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	if user.Status == domain.StatusDisabled {
		return domain.User{}, false
	}
	return user, true
}

// Profile returns the user's profile, falling back to a minimal one when
// the row is missing.
func (a *App) Profile(user domain.User) (domain.UserProfile, error) {
	profile, ok, err := a.store.GetProfile(user.ID)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("fetch profile: %w", err)
	}
	if !ok {
		return domain.UserProfile{ID: user.ID}, nil
	}
	return profile, nil
}

// ProfileUpdate carries the editable profile fields plus an optional photo.
type ProfileUpdate struct {
	DisplayName string
	Course      string
	Institution string
	Degree      string
	PhotoName   string
	Photo       []byte
}

// UpdateProfile uploads the new photo when present and upserts the profile.
func (a *App) UpdateProfile(user domain.User, in ProfileUpdate) (domain.UserProfile, error) {
	if strings.TrimSpace(in.DisplayName) == "" {
		return domain.UserProfile{}, ErrDisplayNameRequired
	}
	profile, err := a.Profile(user)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if len(in.Photo) > 0 {
		url, err := a.putObject(a.images, in.PhotoName, in.Photo)
		if err != nil {
			return domain.UserProfile{}, fmt.Errorf("enviar foto: %w", err)
		}
		profile.PhotoURL = url
	}
	profile.DisplayName = strings.TrimSpace(in.DisplayName)
	profile.Course = strings.TrimSpace(in.Course)
	profile.Institution = strings.TrimSpace(in.Institution)
	profile.Degree = strings.TrimSpace(in.Degree)
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = a.now().UTC()
	}
	profile.UpdatedAt = a.now().UTC()
	if err := a.store.SaveProfile(profile); err != nil {
		return domain.UserProfile{}, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}
