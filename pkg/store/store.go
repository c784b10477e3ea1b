package store

import "tesebook/pkg/domain"

// Store defines persistence operations for users, profiles, works,
// favorites, and suggested topics.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// profiles
	SaveProfile(domain.UserProfile) error
	GetProfile(id string) (domain.UserProfile, bool, error)

	// works
	SaveWork(domain.WorkRecord) error
	ListWorks() ([]domain.WorkRecord, error)
	ListWorksByOwner(ownerID string) ([]domain.WorkRecord, error)
	GetWork(id string) (domain.WorkRecord, bool, error)
	DeleteWork(id string) error

	// favorites
	AddFavorite(userID, workID string) error
	RemoveFavorite(userID, workID string) error
	ListFavoriteWorks(userID string) ([]domain.WorkRecord, error)

	// suggested topics
	SaveSuggestedTopic(domain.SuggestedTopic) error
	ListSuggestedTopics(limit int) ([]domain.SuggestedTopic, error)
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
