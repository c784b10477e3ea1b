package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"tesebook/pkg/domain"
	"tesebook/pkg/store"
)

type fakeObjectStore struct {
	bucket string
	fail   bool
	keys   []string
}

func (f *fakeObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if f.fail {
		return errors.New("storage indisponível")
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return "http://storage/" + f.bucket + "/" + key
}

func (f *fakeObjectStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return f.PublicURL(key), nil
}

func (f *fakeObjectStore) Delete(_ context.Context, _ string) error {
	return nil
}

type testApp struct {
	*App
	store     *store.MemoryStore
	documents *fakeObjectStore
	images    *fakeObjectStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	mem := store.NewMemoryStore()
	documents := &fakeObjectStore{bucket: "pdfs"}
	images := &fakeObjectStore{bucket: "images"}
	a, err := New(Config{
		Store:     mem,
		Sessions:  mem,
		Documents: documents,
		Images:    images,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return &testApp{App: a, store: mem, documents: documents, images: images}
}

func registerInput(email string) RegisterInput {
	return RegisterInput{
		Email:       email,
		Password:    "senha123",
		DisplayName: "João Silva",
		Course:      "Direito",
		Institution: "USP",
		Degree:      "Bacharelado",
	}
}

func TestSignUpNormalizesEmailAndCreatesProfile(t *testing.T) {
	app := newTestApp(t)

	user, token, err := app.SignUp(registerInput("  Joao "))
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if user.Email != "joao@tesebook.com" {
		t.Fatalf("unexpected normalized email: %q", user.Email)
	}
	if token == "" {
		t.Fatalf("expected session token")
	}
	profile, ok, err := app.store.GetProfile(user.ID)
	if err != nil || !ok {
		t.Fatalf("profile missing: ok=%v err=%v", ok, err)
	}
	if profile.DisplayName != "João Silva" || profile.Course != "Direito" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	resolved, ok := app.UserFromToken(token)
	if !ok || resolved.ID != user.ID {
		t.Fatalf("token should resolve the user: ok=%v", ok)
	}
}

func TestSignUpValidation(t *testing.T) {
	app := newTestApp(t)
	cases := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"missing email", RegisterInput{Password: "senha123", DisplayName: "x"}, ErrEmailRequired},
		{"missing password", RegisterInput{Email: "a", DisplayName: "x"}, ErrPasswordRequired},
		{"missing name", RegisterInput{Email: "a", Password: "senha123"}, ErrDisplayNameRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := app.SignUp(tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSignUpExistingEmailWrongPassword(t *testing.T) {
	app := newTestApp(t)
	if _, _, err := app.SignUp(registerInput("joao")); err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	in := registerInput("joao")
	in.Password = "outrasenha"
	if _, _, err := app.SignUp(in); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("got %v, want ErrEmailAlreadyExists", err)
	}
}

func TestSignUpSameCredentialsUpdatesProfile(t *testing.T) {
	app := newTestApp(t)
	first, _, err := app.SignUp(registerInput("joao"))
	if err != nil {
		t.Fatalf("first sign up: %v", err)
	}

	in := registerInput("joao")
	in.Course = "Economia"
	second, _, err := app.SignUp(in)
	if err != nil {
		t.Fatalf("repeat sign up: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("repeat sign up must not create a second user")
	}
	profile, _, _ := app.store.GetProfile(first.ID)
	if profile.Course != "Economia" {
		t.Fatalf("expected profile update, got %+v", profile)
	}
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)
	registered, _, err := app.SignUp(registerInput("joao"))
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	user, token, err := app.Login("Joao", "senha123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != registered.ID || token == "" {
		t.Fatalf("unexpected login result")
	}

	if _, _, err := app.Login("joao", "errada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, _, err := app.Login("naoexiste", "senha123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: got %v", err)
	}
}

func TestLoginDisabledUser(t *testing.T) {
	app := newTestApp(t)
	user, _, err := app.SignUp(registerInput("joao"))
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	user.Status = domain.StatusDisabled
	if err := app.store.SaveUser(user); err != nil {
		t.Fatalf("disable user: %v", err)
	}
	if _, _, err := app.Login("joao", "senha123"); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("got %v, want ErrUserDisabled", err)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	app := newTestApp(t)
	_, token, err := app.SignUp(registerInput("joao"))
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := app.Logout(token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := app.UserFromToken(token); ok {
		t.Fatalf("expected token to be invalid after logout")
	}
}

func TestUpdateProfileUploadsPhoto(t *testing.T) {
	app := newTestApp(t)
	user, _, err := app.SignUp(registerInput("joao"))
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	profile, err := app.UpdateProfile(user, ProfileUpdate{
		DisplayName: "João S.",
		Course:      "Direito",
		PhotoName:   "perfil.png",
		Photo:       []byte("png-bytes"),
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if len(app.images.keys) != 1 {
		t.Fatalf("expected one photo upload, got %d", len(app.images.keys))
	}
	if !strings.HasSuffix(app.images.keys[0], ".png") {
		t.Fatalf("unexpected photo key: %q", app.images.keys[0])
	}
	if !strings.HasPrefix(profile.PhotoURL, "http://storage/images/") {
		t.Fatalf("unexpected photo URL: %q", profile.PhotoURL)
	}
	if profile.DisplayName != "João S." {
		t.Fatalf("unexpected display name: %q", profile.DisplayName)
	}
}

func TestUpdateProfileRequiresDisplayName(t *testing.T) {
	app := newTestApp(t)
	user, _, _ := app.SignUp(registerInput("joao"))
	if _, err := app.UpdateProfile(user, ProfileUpdate{DisplayName: "  "}); !errors.Is(err, ErrDisplayNameRequired) {
		t.Fatalf("got %v, want ErrDisplayNameRequired", err)
	}
}

func TestSendMessage(t *testing.T) {
	app := newTestApp(t)
	if _, err := app.SendMessage("conv-1", "   "); !errors.Is(err, ErrMessageEmpty) {
		t.Fatalf("whitespace message: got %v", err)
	}
	msg, err := app.SendMessage("conv-1", "Olá")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if !msg.Sent || msg.Text != "Olá" || msg.ID == "" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	msgs := app.ConversationMessages("conv-1")
	if len(msgs) != 1 || msgs[0].ID != msg.ID {
		t.Fatalf("unexpected feed: %+v", msgs)
	}
	if got := app.ConversationMessages("conv-2"); len(got) != 0 {
		t.Fatalf("conversations must be isolated, got %+v", got)
	}
}
