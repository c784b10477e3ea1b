package domain

import "time"

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusDisabled UserStatus = "disabled"
)

// User is the authentication identity. Profile data lives in UserProfile,
// keyed 1:1 by the same ID.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// UserProfile holds the public-facing profile, upserted by user ID so
// re-registration is idempotent.
type UserProfile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Course      string    `json:"course,omitempty"`
	Institution string    `json:"institution,omitempty"`
	Degree      string    `json:"degree,omitempty"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// WorkRecord is a published academic work: a stored PDF plus metadata.
// The row insert is the publication point; a record is never visible
// before its PDF has been durably stored.
type WorkRecord struct {
	ID            string    `json:"id"`
	Title         string    `json:"title,omitempty"`
	Topic         string    `json:"topic"`
	Course        string    `json:"course,omitempty"`
	Institution   string    `json:"institution,omitempty"`
	Degree        string    `json:"degree,omitempty"`
	CoverURL      string    `json:"coverUrl,omitempty"`
	PDFURL        string    `json:"pdfUrl"`
	Pages         int       `json:"pages,omitempty"`
	AllowDownload bool      `json:"allowDownload"`
	OwnerID       string    `json:"ownerId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SuggestedTopic is a study-topic suggestion shown on the home feed.
type SuggestedTopic struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	Course      string    `json:"course,omitempty"`
	Description string    `json:"description,omitempty"`
	AuthorID    string    `json:"authorId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ChatMessage is one entry of a conversation feed. Time is formatted once
// at creation and never re-derived.
type ChatMessage struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Sent bool   `json:"sent"`
	Time string `json:"time"`
}
