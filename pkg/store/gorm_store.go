package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"tesebook/pkg/domain"
)

const migrateLockID int64 = 84318431

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{},
			&ProfileModel{},
			&WorkModel{},
			&FavoriteModel{},
			&SuggestedTopicModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "status", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveProfile upserts a profile row keyed by user ID.
func (s *GormStore) SaveProfile(p domain.UserProfile) error {
	model := profileToModel(p)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "course", "institution", "degree", "photo_url", "updated_at"}),
	}).Create(&model).Error
}

// GetProfile returns a profile by user ID.
func (s *GormStore) GetProfile(id string) (domain.UserProfile, bool, error) {
	var model ProfileModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.UserProfile{}, false, nil
		}
		return domain.UserProfile{}, false, err
	}
	return profileFromModel(model), true, nil
}

// SaveWork stores or updates a work record.
func (s *GormStore) SaveWork(w domain.WorkRecord) error {
	model := workToModel(w)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "topic", "course", "institution", "degree", "cover_url", "pdf_url", "pages", "allow_download", "updated_at"}),
	}).Create(&model).Error
}

// ListWorks returns all works, newest first.
func (s *GormStore) ListWorks() ([]domain.WorkRecord, error) {
	return s.listWorks("created_at DESC")
}

// ListWorksByOwner returns the owner's works, newest first.
func (s *GormStore) ListWorksByOwner(ownerID string) ([]domain.WorkRecord, error) {
	return s.listWorks("created_at DESC", "owner_id = ?", ownerID)
}

func (s *GormStore) listWorks(order string, conds ...any) ([]domain.WorkRecord, error) {
	var models []WorkModel
	tx := s.db.Order(order)
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.WorkRecord, 0, len(models))
	for _, m := range models {
		res = append(res, workFromModel(m))
	}
	return res, nil
}

// GetWork retrieves a work record.
func (s *GormStore) GetWork(id string) (domain.WorkRecord, bool, error) {
	var model WorkModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.WorkRecord{}, false, nil
		}
		return domain.WorkRecord{}, false, err
	}
	return workFromModel(model), true, nil
}

// DeleteWork removes a work record and its favorite rows.
func (s *GormStore) DeleteWork(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&FavoriteModel{}, "work_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&WorkModel{}, "id = ?", id).Error
	})
}

// AddFavorite marks a work as favorited; repeated calls are no-ops.
func (s *GormStore) AddFavorite(userID, workID string) error {
	model := FavoriteModel{UserID: userID, WorkID: workID, CreatedAt: time.Now().UTC()}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
}

// RemoveFavorite unmarks a favorite.
func (s *GormStore) RemoveFavorite(userID, workID string) error {
	return s.db.Delete(&FavoriteModel{}, "user_id = ? AND work_id = ?", userID, workID).Error
}

// ListFavoriteWorks returns favorited works, most recently favorited first.
func (s *GormStore) ListFavoriteWorks(userID string) ([]domain.WorkRecord, error) {
	var models []WorkModel
	err := s.db.Model(&WorkModel{}).
		Joins("JOIN favorite_models ON favorite_models.work_id = work_models.id").
		Where("favorite_models.user_id = ?", userID).
		Order("favorite_models.created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.WorkRecord, 0, len(models))
	for _, m := range models {
		res = append(res, workFromModel(m))
	}
	return res, nil
}

// SaveSuggestedTopic stores a topic suggestion.
func (s *GormStore) SaveSuggestedTopic(t domain.SuggestedTopic) error {
	model := suggestedTopicToModel(t)
	return s.db.Create(&model).Error
}

// ListSuggestedTopics returns the newest suggestions up to limit.
func (s *GormStore) ListSuggestedTopics(limit int) ([]domain.SuggestedTopic, error) {
	var models []SuggestedTopicModel
	tx := s.db.Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.SuggestedTopic, 0, len(models))
	for _, m := range models {
		res = append(res, suggestedTopicFromModel(m))
	}
	return res, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Status:       string(u.Status),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Status:       domain.UserStatus(m.Status),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func profileToModel(p domain.UserProfile) ProfileModel {
	return ProfileModel{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Course:      p.Course,
		Institution: p.Institution,
		Degree:      p.Degree,
		PhotoURL:    p.PhotoURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func profileFromModel(m ProfileModel) domain.UserProfile {
	return domain.UserProfile{
		ID:          m.ID,
		DisplayName: m.DisplayName,
		Course:      m.Course,
		Institution: m.Institution,
		Degree:      m.Degree,
		PhotoURL:    m.PhotoURL,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func workToModel(w domain.WorkRecord) WorkModel {
	return WorkModel{
		ID:            w.ID,
		Title:         w.Title,
		Topic:         w.Topic,
		Course:        w.Course,
		Institution:   w.Institution,
		Degree:        w.Degree,
		CoverURL:      w.CoverURL,
		PDFURL:        w.PDFURL,
		Pages:         w.Pages,
		AllowDownload: w.AllowDownload,
		OwnerID:       w.OwnerID,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}

func workFromModel(m WorkModel) domain.WorkRecord {
	return domain.WorkRecord{
		ID:            m.ID,
		Title:         m.Title,
		Topic:         m.Topic,
		Course:        m.Course,
		Institution:   m.Institution,
		Degree:        m.Degree,
		CoverURL:      m.CoverURL,
		PDFURL:        m.PDFURL,
		Pages:         m.Pages,
		AllowDownload: m.AllowDownload,
		OwnerID:       m.OwnerID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func suggestedTopicToModel(t domain.SuggestedTopic) SuggestedTopicModel {
	return SuggestedTopicModel{
		ID:          t.ID,
		Topic:       t.Topic,
		Course:      t.Course,
		Description: t.Description,
		AuthorID:    t.AuthorID,
		CreatedAt:   t.CreatedAt,
	}
}

func suggestedTopicFromModel(m SuggestedTopicModel) domain.SuggestedTopic {
	return domain.SuggestedTopic{
		ID:          m.ID,
		Topic:       m.Topic,
		Course:      m.Course,
		Description: m.Description,
		AuthorID:    m.AuthorID,
		CreatedAt:   m.CreatedAt,
	}
}
