package app

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tesebook/pkg/domain"
	"tesebook/pkg/storage"
)

const suggestedTopicLimit = 10

// PublishInput carries the add-work form fields. PDF holds the picked
// document bytes; Cover is optional.
type PublishInput struct {
	Topic         string
	Title         string
	Course        string
	Institution   string
	Degree        string
	AllowDownload *bool
	PDFName       string
	PDF           []byte
	CoverName     string
	Cover         []byte
}

// PublishWork turns a picked PDF (plus optional cover) into a stored,
// publicly retrievable object pair and a work record. Steps run strictly
// in order: validate, upload PDF, upload cover, insert. Any failure aborts
// before the next step; already-stored objects are not rolled back, and
// the record only becomes visible once the final insert succeeds.
func (a *App) PublishWork(user domain.User, in PublishInput) (domain.WorkRecord, error) {
	// Local validation happens before any network call.
	if strings.TrimSpace(in.Topic) == "" {
		return domain.WorkRecord{}, ErrTopicRequired
	}
	if len(in.PDF) == 0 {
		return domain.WorkRecord{}, ErrPDFRequired
	}
	if in.AllowDownload == nil {
		return domain.WorkRecord{}, ErrDownloadChoiceRequired
	}
	if user.ID == "" {
		return domain.WorkRecord{}, ErrNotSignedIn
	}
	pages, err := pdfPageCount(in.PDF)
	if err != nil {
		return domain.WorkRecord{}, ErrInvalidPDF
	}

	pdfURL, err := a.putObject(a.documents, in.PDFName, in.PDF)
	if err != nil {
		return domain.WorkRecord{}, fmt.Errorf("enviar PDF: %w", err)
	}

	coverURL := ""
	if len(in.Cover) > 0 {
		coverURL, err = a.putObject(a.images, in.CoverName, in.Cover)
		if err != nil {
			// Cover failure is fatal before the insert; the work is not
			// published with a missing cover the user picked.
			return domain.WorkRecord{}, fmt.Errorf("enviar capa: %w", err)
		}
	}

	now := a.now().UTC()
	work := domain.WorkRecord{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(in.Title),
		Topic:         strings.TrimSpace(in.Topic),
		Course:        strings.TrimSpace(in.Course),
		Institution:   strings.TrimSpace(in.Institution),
		Degree:        strings.TrimSpace(in.Degree),
		CoverURL:      coverURL,
		PDFURL:        pdfURL,
		Pages:         pages,
		AllowDownload: *in.AllowDownload,
		OwnerID:       user.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := a.store.SaveWork(work); err != nil {
		return domain.WorkRecord{}, fmt.Errorf("save work: %w", err)
	}
	return work, nil
}

func (a *App) putObject(objects storage.ObjectStore, filename string, data []byte) (string, error) {
	key := storage.ObjectKey(a.now(), filename)
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	err := objects.Put(context.Background(), key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return "", err
	}
	return objects.PublicURL(key), nil
}

// ListWorks returns every published work, newest first.
func (a *App) ListWorks() ([]domain.WorkRecord, error) {
	return a.store.ListWorks()
}

// ListOwnWorks returns the user's works, newest first.
func (a *App) ListOwnWorks(user domain.User) ([]domain.WorkRecord, error) {
	return a.store.ListWorksByOwner(user.ID)
}

// GetWork retrieves a work by ID.
func (a *App) GetWork(id string) (domain.WorkRecord, error) {
	work, ok, err := a.store.GetWork(id)
	if err != nil {
		return domain.WorkRecord{}, fmt.Errorf("fetch work: %w", err)
	}
	if !ok {
		return domain.WorkRecord{}, ErrWorkNotFound
	}
	return work, nil
}

// DeleteWork removes one of the user's own works.
func (a *App) DeleteWork(user domain.User, id string) error {
	work, ok, err := a.store.GetWork(id)
	if err != nil {
		return fmt.Errorf("fetch work: %w", err)
	}
	if !ok {
		return ErrWorkNotFound
	}
	if work.OwnerID != user.ID {
		return ErrForbidden
	}
	return a.store.DeleteWork(id)
}

// AddFavorite marks an existing work as a favorite.
func (a *App) AddFavorite(user domain.User, workID string) error {
	if _, ok, err := a.store.GetWork(workID); err != nil {
		return fmt.Errorf("fetch work: %w", err)
	} else if !ok {
		return ErrWorkNotFound
	}
	return a.store.AddFavorite(user.ID, workID)
}

// RemoveFavorite unmarks a favorite.
func (a *App) RemoveFavorite(user domain.User, workID string) error {
	return a.store.RemoveFavorite(user.ID, workID)
}

// ListFavorites returns the user's favorited works.
func (a *App) ListFavorites(user domain.User) ([]domain.WorkRecord, error) {
	return a.store.ListFavoriteWorks(user.ID)
}

// SuggestTopic stores a study-topic suggestion for the home feed.
func (a *App) SuggestTopic(user domain.User, topic, course, description string) (domain.SuggestedTopic, error) {
	if strings.TrimSpace(topic) == "" {
		return domain.SuggestedTopic{}, ErrTopicRequired
	}
	suggestion := domain.SuggestedTopic{
		ID:          uuid.NewString(),
		Topic:       strings.TrimSpace(topic),
		Course:      strings.TrimSpace(course),
		Description: strings.TrimSpace(description),
		AuthorID:    user.ID,
		CreatedAt:   a.now().UTC(),
	}
	if err := a.store.SaveSuggestedTopic(suggestion); err != nil {
		return domain.SuggestedTopic{}, fmt.Errorf("save topic: %w", err)
	}
	return suggestion, nil
}

// SuggestedTopics returns the newest suggestions for the home feed.
func (a *App) SuggestedTopics() ([]domain.SuggestedTopic, error) {
	return a.store.ListSuggestedTopics(suggestedTopicLimit)
}

// Overview is the home feed payload.
type Overview struct {
	Works           []domain.WorkRecord     `json:"works"`
	SuggestedTopics []domain.SuggestedTopic `json:"suggestedTopics"`
}

// HomeOverview loads the home feed sections concurrently.
func (a *App) HomeOverview(ctx context.Context) (Overview, error) {
	var overview Overview
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		works, err := a.store.ListWorks()
		if err != nil {
			return fmt.Errorf("list works: %w", err)
		}
		overview.Works = works
		return nil
	})
	g.Go(func() error {
		topics, err := a.store.ListSuggestedTopics(suggestedTopicLimit)
		if err != nil {
			return fmt.Errorf("list topics: %w", err)
		}
		overview.SuggestedTopics = topics
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return overview, nil
}
