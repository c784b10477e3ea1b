package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"tesebook/pkg/domain"
)

// minimalPDF builds a one-page PDF with a correct cross-reference table.
func minimalPDF(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 4)
	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	writeObj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	xrefPos := buf.Len()
	buf.WriteString("xref\n0 4\n")
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xrefPos)
	return buf.Bytes()
}

func publishInput(t *testing.T) PublishInput {
	t.Helper()
	allow := true
	return PublishInput{
		Topic:         "Inflação",
		Title:         "Política monetária no Brasil",
		Course:        "Economia",
		Institution:   "UFMG",
		Degree:        "Mestrado",
		AllowDownload: &allow,
		PDFName:       "monografia.pdf",
		PDF:           minimalPDF(t),
		CoverName:     "capa.png",
		Cover:         []byte("png-bytes"),
	}
}

func signedUpUser(t *testing.T, app *testApp) domain.User {
	t.Helper()
	user, _, err := app.SignUp(registerInput("autor"))
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	return user
}

func TestPublishWorkStoresObjectsAndRecord(t *testing.T) {
	app := newTestApp(t)
	user := signedUpUser(t, app)

	work, err := app.PublishWork(user, publishInput(t))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(app.documents.keys) != 1 || len(app.images.keys) != 1 {
		t.Fatalf("expected one PDF and one cover upload, got %d/%d", len(app.documents.keys), len(app.images.keys))
	}
	keyPattern := regexp.MustCompile(`^\d+-[0-9a-f]{8}\.pdf$`)
	if !keyPattern.MatchString(app.documents.keys[0]) {
		t.Fatalf("unexpected PDF key: %q", app.documents.keys[0])
	}
	if !strings.HasSuffix(app.images.keys[0], ".png") {
		t.Fatalf("unexpected cover key: %q", app.images.keys[0])
	}

	if work.ID == "" || work.OwnerID != user.ID {
		t.Fatalf("unexpected record identity: %+v", work)
	}
	if work.Pages != 1 {
		t.Fatalf("expected 1 page, got %d", work.Pages)
	}
	if !strings.HasPrefix(work.PDFURL, "http://storage/pdfs/") {
		t.Fatalf("unexpected PDF URL: %q", work.PDFURL)
	}
	if !strings.HasPrefix(work.CoverURL, "http://storage/images/") {
		t.Fatalf("unexpected cover URL: %q", work.CoverURL)
	}
	if !work.AllowDownload {
		t.Fatalf("expected allowDownload true")
	}

	stored, ok, err := app.store.GetWork(work.ID)
	if err != nil || !ok {
		t.Fatalf("record not stored: ok=%v err=%v", ok, err)
	}
	if stored.Topic != "Inflação" {
		t.Fatalf("unexpected stored record: %+v", stored)
	}
}

func TestPublishWorkCoverIsOptional(t *testing.T) {
	app := newTestApp(t)
	user := signedUpUser(t, app)

	in := publishInput(t)
	in.CoverName = ""
	in.Cover = nil
	work, err := app.PublishWork(user, in)
	if err != nil {
		t.Fatalf("publish without cover: %v", err)
	}
	if work.CoverURL != "" {
		t.Fatalf("expected empty cover URL, got %q", work.CoverURL)
	}
	if len(app.images.keys) != 0 {
		t.Fatalf("expected no image uploads")
	}
}

func TestPublishWorkValidationRunsBeforeUploads(t *testing.T) {
	app := newTestApp(t)
	user := signedUpUser(t, app)
	allow := true

	cases := []struct {
		name string
		in   PublishInput
		user domain.User
		want error
	}{
		{"missing topic", PublishInput{PDF: minimalPDF(t), AllowDownload: &allow}, user, ErrTopicRequired},
		{"missing pdf", PublishInput{Topic: "t", AllowDownload: &allow}, user, ErrPDFRequired},
		{"missing download choice", PublishInput{Topic: "t", PDF: minimalPDF(t)}, user, ErrDownloadChoiceRequired},
		{"not signed in", PublishInput{Topic: "t", PDF: minimalPDF(t), AllowDownload: &allow}, domain.User{}, ErrNotSignedIn},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := app.PublishWork(tc.user, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
	if len(app.documents.keys) != 0 || len(app.images.keys) != 0 {
		t.Fatalf("validation failures must not upload anything")
	}
	works, _ := app.store.ListWorks()
	if len(works) != 0 {
		t.Fatalf("validation failures must not insert records")
	}
}

func TestPublishWorkRejectsInvalidPDF(t *testing.T) {
	app := newTestApp(t)
	user := signedUpUser(t, app)

	in := publishInput(t)
	in.PDF = []byte("isto não é um pdf")
	if _, err := app.PublishWork(user, in); !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("got %v, want ErrInvalidPDF", err)
	}
	if len(app.documents.keys) != 0 {
		t.Fatalf("invalid PDF must not be uploaded")
	}
}

func TestPublishWorkPDFUploadFailureAbortsBeforeInsert(t *testing.T) {
	app := newTestApp(t)
	user := signedUpUser(t, app)
	app.documents.fail = true

	_, err := app.PublishWork(user, publishInput(t))
	if err == nil || !strings.Contains(err.Error(), "enviar PDF") {
		t.Fatalf("expected wrapped PDF upload error, got %v", err)
	}
	works, _ := app.store.ListWorks()
	if len(works) != 0 {
		t.Fatalf("failed upload must not publish a record")
	}
	if len(app.images.keys) != 0 {
		t.Fatalf("cover must not upload after PDF failure")
	}
}

func TestPublishWorkCoverFailureIsFatal(t *testing.T) {
	app := newTestApp(t)
	user := signedUpUser(t, app)
	app.images.fail = true

	_, err := app.PublishWork(user, publishInput(t))
	if err == nil || !strings.Contains(err.Error(), "enviar capa") {
		t.Fatalf("expected wrapped cover upload error, got %v", err)
	}
	works, _ := app.store.ListWorks()
	if len(works) != 0 {
		t.Fatalf("cover failure must abort before the insert")
	}
	// The PDF upload happened first and is not rolled back.
	if len(app.documents.keys) != 1 {
		t.Fatalf("expected the already-stored PDF to remain")
	}
}

func TestDeleteWorkOwnership(t *testing.T) {
	app := newTestApp(t)
	owner := signedUpUser(t, app)
	work, err := app.PublishWork(owner, publishInput(t))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	other, _, err := app.SignUp(registerInput("outro"))
	if err != nil {
		t.Fatalf("sign up second user: %v", err)
	}
	if err := app.DeleteWork(other, work.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
	if err := app.DeleteWork(owner, work.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := app.GetWork(work.ID); !errors.Is(err, ErrWorkNotFound) {
		t.Fatalf("got %v, want ErrWorkNotFound", err)
	}
}

func TestFavorites(t *testing.T) {
	app := newTestApp(t)
	user := signedUpUser(t, app)
	work, err := app.PublishWork(user, publishInput(t))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if err := app.AddFavorite(user, "nao-existe"); !errors.Is(err, ErrWorkNotFound) {
		t.Fatalf("favoriting a missing work: got %v", err)
	}
	if err := app.AddFavorite(user, work.ID); err != nil {
		t.Fatalf("add favorite: %v", err)
	}
	favs, err := app.ListFavorites(user)
	if err != nil || len(favs) != 1 || favs[0].ID != work.ID {
		t.Fatalf("unexpected favorites: %+v err=%v", favs, err)
	}
	if err := app.RemoveFavorite(user, work.ID); err != nil {
		t.Fatalf("remove favorite: %v", err)
	}
	favs, _ = app.ListFavorites(user)
	if len(favs) != 0 {
		t.Fatalf("expected empty favorites, got %+v", favs)
	}
}

func TestSearchWorksFiltersFeed(t *testing.T) {
	app := newTestApp(t)
	user := signedUpUser(t, app)

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	step := 0
	app.App.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	courses := []string{"Economia", "Direito", "Economia"}
	for i, course := range courses {
		in := publishInput(t)
		in.Course = course
		in.Title = fmt.Sprintf("Trabalho %d", i+1)
		if _, err := app.PublishWork(user, in); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	found, err := app.SearchWorks("", "economia", "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(found))
	}
	if !found[0].CreatedAt.After(found[1].CreatedAt) {
		t.Fatalf("search must keep newest-first order")
	}

	options, err := app.WorkFilterOptions()
	if err != nil {
		t.Fatalf("filter options: %v", err)
	}
	if len(options.Courses) != 2 || options.Courses[0] != "Direito" || options.Courses[1] != "Economia" {
		t.Fatalf("unexpected course options: %v", options.Courses)
	}
}

func TestSuggestTopicAndOverview(t *testing.T) {
	app := newTestApp(t)
	user := signedUpUser(t, app)

	if _, err := app.SuggestTopic(user, "  ", "", ""); !errors.Is(err, ErrTopicRequired) {
		t.Fatalf("blank topic: got %v", err)
	}
	for i := 0; i < 12; i++ {
		if _, err := app.SuggestTopic(user, fmt.Sprintf("Tema %d", i), "Direito", ""); err != nil {
			t.Fatalf("suggest topic %d: %v", i, err)
		}
	}
	topics, err := app.SuggestedTopics()
	if err != nil {
		t.Fatalf("list topics: %v", err)
	}
	if len(topics) != 10 {
		t.Fatalf("expected the topic list capped at 10, got %d", len(topics))
	}

	if _, err := app.PublishWork(user, publishInput(t)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	overview, err := app.HomeOverview(context.Background())
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(overview.Works) != 1 || len(overview.SuggestedTopics) != 10 {
		t.Fatalf("unexpected overview sizes: works=%d topics=%d", len(overview.Works), len(overview.SuggestedTopics))
	}
}
