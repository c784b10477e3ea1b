package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"tesebook/internal/ratelimit"
	"tesebook/internal/util"
	"tesebook/pkg/auth"
	"tesebook/pkg/domain"
	"tesebook/services/api/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                      *app.App
	RedisAddr                string
	RedisPassword            string
	SignupRateLimitPerMinute int
	LoginRateLimitPerMinute  int
	MaxUploadBytes           int64
	TrustedProxyCIDRs        []string
	// FilesDir, when set, is served under /files/ (fs storage backend).
	FilesDir string
}

// Server exposes the HTTP endpoints of the API.
type Server struct {
	app             *app.App
	mux             *http.ServeMux
	maxUploadBytes  int64
	imageExtensions map[string]struct{}
	signupLimiter   *ratelimit.FixedWindowLimiter
	loginLimiter    *ratelimit.FixedWindowLimiter
	trustedProxies  *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	signupLimit := cfg.SignupRateLimitPerMinute
	if signupLimit <= 0 {
		signupLimit = 5
	}
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = 10
	}
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "tesebook:api:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	signupLimiter, err := newLimiter("signup", signupLimit)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := newLimiter("login", loginLimit)
	if err != nil {
		return nil, err
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s := &Server{
		app:             cfg.App,
		mux:             http.NewServeMux(),
		maxUploadBytes:  normalizeMaxBytes(cfg.MaxUploadBytes),
		imageExtensions: imageExtensionSet(),
		signupLimiter:   signupLimiter,
		loginLimiter:    loginLimiter,
		trustedProxies:  trusted,
	}
	s.routes(cfg.FilesDir)
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	handler := util.WithSecurityHeaders(util.WithCORS(s.mux))
	handler = util.WithRequestLog(handler)
	return util.WithRequestID(handler)
}

func (s *Server) routes(filesDir string) {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))
	s.mux.Handle("/api/profiles/me", s.authenticated(s.handleProfile))

	// works
	s.mux.Handle("/api/works", s.authenticated(s.handleWorks))
	s.mux.Handle("/api/works/mine", s.authenticated(s.handleOwnWorks))
	s.mux.Handle("/api/works/options", s.authenticated(s.handleWorkOptions))
	s.mux.Handle("/api/works/search", s.authenticated(s.handleWorkSearch))
	s.mux.Handle("/api/works/", s.authenticated(s.handleWorkByID))

	// favorites
	s.mux.Handle("/api/favorites", s.authenticated(s.handleFavorites))
	s.mux.Handle("/api/favorites/", s.authenticated(s.handleFavoriteByID))

	// home feed
	s.mux.Handle("/api/overview", s.authenticated(s.handleOverview))
	s.mux.Handle("/api/topics", s.authenticated(s.handleTopics))

	// chat
	s.mux.Handle("/api/chats/", s.authenticated(s.handleChat))

	if filesDir != "" {
		s.mux.Handle("/files/", http.StripPrefix("/files/", http.FileServer(http.Dir(filesDir))))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, "api.authorize", "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, app.ErrNotSignedIn.Error())
			return
		}
		user, ok := s.app.UserFromToken(token)
		if !ok {
			s.audit(r, "api.authorize", "fail", "reason", "invalid_token")
			writeError(w, http.StatusUnauthorized, app.ErrNotSignedIn.Error())
			return
		}
		next(w, r, user)
	})
}

// auth handlers
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.signupLimiter, "muitas tentativas de registro") {
		s.audit(r, "api.signup", "rate_limited")
		return
	}
	var req signupRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "api.signup", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.SignUp(app.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Course:      req.Course,
		Institution: req.Institution,
		Degree:      req.Degree,
	})
	if err != nil {
		s.audit(r, "api.signup", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "api.signup", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "muitas tentativas de login") {
		s.audit(r, "api.login", "rate_limited")
		return
	}
	var req authRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "api.login", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.audit(r, "api.login", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "api.login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, app.ErrNotSignedIn.Error())
		return
	}
	if err := s.app.Logout(token); err != nil {
		s.audit(r, "api.logout", "fail", "reason", err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.audit(r, "api.logout", "success")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		profile, err := s.app.Profile(user)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodPut:
		update, ok := s.parseProfileForm(w, r)
		if !ok {
			return
		}
		profile, err := s.app.UpdateProfile(user, update)
		if err != nil {
			s.audit(r, "api.profile.update", "fail", "user_id", user.ID, "reason", err.Error())
			writeAppError(w, err)
			return
		}
		s.audit(r, "api.profile.update", "success", "user_id", user.ID)
		writeJSON(w, http.StatusOK, profile)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) parseProfileForm(w http.ResponseWriter, r *http.Request) (app.ProfileUpdate, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return app.ProfileUpdate{}, false
	}
	update := app.ProfileUpdate{
		DisplayName: r.FormValue("displayName"),
		Course:      r.FormValue("course"),
		Institution: r.FormValue("institution"),
		Degree:      r.FormValue("degree"),
	}
	name, data, ok, err := s.readFormFile(r, "photo", s.imageExtensions)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return app.ProfileUpdate{}, false
	}
	if ok {
		update.PhotoName = name
		update.Photo = data
	}
	return update, true
}

// /api/works
func (s *Server) handleWorks(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		works, err := s.app.ListWorks()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeWorkList(w, works)
	case http.MethodPost:
		s.handlePublishWork(w, r, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handlePublishWork(w http.ResponseWriter, r *http.Request, user domain.User) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	input := app.PublishInput{
		Topic:         r.FormValue("topic"),
		Title:         r.FormValue("title"),
		Course:        r.FormValue("course"),
		Institution:   r.FormValue("institution"),
		Degree:        r.FormValue("degree"),
		AllowDownload: parseAllowDownload(r.FormValue("allowDownload")),
	}
	pdfName, pdfData, ok, err := s.readFormFile(r, "pdf", map[string]struct{}{".pdf": {}})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if ok {
		input.PDFName = pdfName
		input.PDF = pdfData
	}
	coverName, coverData, ok, err := s.readFormFile(r, "cover", s.imageExtensions)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if ok {
		input.CoverName = coverName
		input.Cover = coverData
	}

	work, err := s.app.PublishWork(user, input)
	if err != nil {
		s.audit(r, "api.work.publish", "fail", "user_id", user.ID, "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "api.work.publish", "success", "user_id", user.ID, "work_id", work.ID)
	writeJSON(w, http.StatusCreated, work)
}

func (s *Server) handleOwnWorks(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	works, err := s.app.ListOwnWorks(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeWorkList(w, works)
}

func (s *Server) handleWorkOptions(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	options, err := s.app.WorkFilterOptions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func (s *Server) handleWorkSearch(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	works, err := s.app.SearchWorks(q.Get("q"), q.Get("course"), q.Get("institution"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeWorkList(w, works)
}

func (s *Server) handleWorkByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	id := strings.TrimPrefix(r.URL.Path, "/api/works/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		work, err := s.app.GetWork(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, work)
	case http.MethodDelete:
		if err := s.app.DeleteWork(user, id); err != nil {
			s.audit(r, "api.work.delete", "fail", "user_id", user.ID, "work_id", id, "reason", err.Error())
			writeAppError(w, err)
			return
		}
		s.audit(r, "api.work.delete", "success", "user_id", user.ID, "work_id", id)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// /api/favorites
func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		works, err := s.app.ListFavorites(user)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeWorkList(w, works)
	case http.MethodPost:
		var req favoriteRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.app.AddFavorite(user, req.WorkID); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleFavoriteByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	workID := strings.TrimPrefix(r.URL.Path, "/api/favorites/")
	if workID == "" || strings.Contains(workID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err := s.app.RemoveFavorite(user, workID); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	overview, err := s.app.HomeOverview(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		topics, err := s.app.SuggestedTopics()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": topics, "count": len(topics)})
	case http.MethodPost:
		var req topicRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		topic, err := s.app.SuggestTopic(user, req.Topic, req.Course, req.Description)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, topic)
	default:
		methodNotAllowed(w)
	}
}

// /api/chats/{id}/messages
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, _ domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/chats/")
	conversationID, tail, found := strings.Cut(rest, "/")
	if !found || conversationID == "" || tail != "messages" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		messages := s.app.ConversationMessages(conversationID)
		writeJSON(w, http.StatusOK, map[string]any{"items": messages, "count": len(messages)})
	case http.MethodPost:
		var req messageRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		msg, err := s.app.SendMessage(conversationID, req.Text)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) readFormFile(r *http.Request, field string, allowed map[string]struct{}) (string, []byte, bool, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, false, nil
		}
		return "", nil, false, fmt.Errorf("read %s upload: %w", field, err)
	}
	defer file.Close()
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := allowed[ext]; !ok {
		return "", nil, false, fmt.Errorf("extensão %s não permitida para %s", ext, field)
	}
	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		return "", nil, false, fmt.Errorf("read %s upload: %w", field, err)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return "", nil, false, fmt.Errorf("arquivo %s excede o tamanho máximo", field)
	}
	return header.Filename, data, true, nil
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := util.ClientIP(r, s.trustedProxies)
	if limiter.Allow(key) {
		return true
	}
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	slog.Info("audit", logAttrs...)
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Course      string `json:"course,omitempty"`
	Institution string `json:"institution,omitempty"`
	Degree      string `json:"degree,omitempty"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type favoriteRequest struct {
	WorkID string `json:"workId"`
}

type topicRequest struct {
	Topic       string `json:"topic"`
	Course      string `json:"course,omitempty"`
	Description string `json:"description,omitempty"`
}

type messageRequest struct {
	Text string `json:"text"`
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func parseAllowDownload(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sim", "true", "yes":
		v := true
		return &v
	case "nao", "não", "false", "no":
		v := false
		return &v
	default:
		return nil
	}
}

func writeWorkList(w http.ResponseWriter, works []domain.WorkRecord) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": works,
		"count": len(works),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrNotSignedIn):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrWorkNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials),
		errors.Is(err, app.ErrUserDisabled):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrEmailRequired),
		errors.Is(err, app.ErrPasswordRequired),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, app.ErrEmailAlreadyExists),
		errors.Is(err, app.ErrTopicRequired),
		errors.Is(err, app.ErrPDFRequired),
		errors.Is(err, app.ErrDownloadChoiceRequired),
		errors.Is(err, app.ErrInvalidPDF),
		errors.Is(err, app.ErrDisplayNameRequired),
		errors.Is(err, app.ErrMessageEmpty):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 50 * 1024 * 1024
	}
	return value
}

func imageExtensionSet() map[string]struct{} {
	return map[string]struct{}{
		".png":  {},
		".jpg":  {},
		".jpeg": {},
		".webp": {},
	}
}
