package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Status       string
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type ProfileModel struct {
	ID          string `gorm:"primaryKey"`
	DisplayName string
	Course      string
	Institution string
	Degree      string
	PhotoURL    string
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time
}

type WorkModel struct {
	ID            string `gorm:"primaryKey"`
	Title         string
	Topic         string `gorm:"not null"`
	Course        string `gorm:"index"`
	Institution   string `gorm:"index"`
	Degree        string
	CoverURL      string
	PDFURL        string `gorm:"not null"`
	Pages         int
	AllowDownload bool      `gorm:"not null"`
	OwnerID       string    `gorm:"not null;index"`
	CreatedAt     time.Time `gorm:"not null;index"`
	UpdatedAt     time.Time `gorm:"not null"`
}

type FavoriteModel struct {
	UserID    string    `gorm:"primaryKey"`
	WorkID    string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

type SuggestedTopicModel struct {
	ID          string `gorm:"primaryKey"`
	Topic       string `gorm:"not null"`
	Course      string
	Description string
	AuthorID    string    `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"not null;index"`
}
