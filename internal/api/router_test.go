package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/pinsync/pinsync-server/internal/core/domain"
	"github.com/pinsync/pinsync-server/internal/core/ports"
	"github.com/pinsync/pinsync-server/internal/core/service"
)

// The tests below drive the full HTTP surface against the real services with
// in-memory adapters behind them, so routing, binding, the central error
// handler, and the service rules are all exercised together.

type memUserRepo struct {
	mu    sync.Mutex
	seq   int
	order []string
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func copyUser(u *domain.User) *domain.User {
	clone := *u
	if u.LikedImages != nil {
		clone.LikedImages = append([]string{}, u.LikedImages...)
	}
	clone.Portfolio = append([]domain.PortfolioItem(nil), u.Portfolio...)
	return &clone
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, domain.ErrUserExists
		}
	}
	r.seq++
	stored := copyUser(user)
	stored.ID = fmt.Sprintf("user-%d", r.seq)
	r.users[stored.ID] = stored
	r.order = append(r.order, stored.ID)
	return copyUser(stored), nil
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]*domain.User, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, copyUser(r.users[id]))
	}
	return users, nil
}

func (r *memUserRepo) UpdateLikedImages(_ context.Context, id string, likedImages []string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	// nil means the field was absent; the stored list stays as it is.
	if likedImages != nil {
		u.LikedImages = append([]string{}, likedImages...)
	}
	return copyUser(u), nil
}

func (r *memUserRepo) SetApproval(_ context.Context, id string, approved bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if u.Role != domain.RoleArtist {
		return nil, domain.ErrInvalidRole
	}
	u.Approved = approved
	return copyUser(u), nil
}

func (r *memUserRepo) Delete(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	delete(r.users, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return u, nil
}

type memUploadRepo struct {
	mu      sync.Mutex
	seq     int
	order   []string
	uploads map[string]*domain.Upload
}

func newMemUploadRepo() *memUploadRepo {
	return &memUploadRepo{uploads: make(map[string]*domain.Upload)}
}

func copyUpload(u *domain.Upload) *domain.Upload {
	clone := *u
	if u.LikedBy != nil {
		clone.LikedBy = append([]string{}, u.LikedBy...)
	}
	return &clone
}

func (r *memUploadRepo) Create(_ context.Context, upload *domain.Upload) (*domain.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	stored := copyUpload(upload)
	stored.ID = fmt.Sprintf("upload-%d", r.seq)
	r.uploads[stored.ID] = stored
	r.order = append(r.order, stored.ID)
	return copyUpload(stored), nil
}

func (r *memUploadRepo) FindByID(_ context.Context, id string) (*domain.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, domain.ErrUploadNotFound
	}
	return copyUpload(u), nil
}

func (r *memUploadRepo) List(_ context.Context) ([]*domain.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uploads := make([]*domain.Upload, 0, len(r.order))
	for _, id := range r.order {
		uploads = append(uploads, copyUpload(r.uploads[id]))
	}
	return uploads, nil
}

func (r *memUploadRepo) ToggleLike(_ context.Context, id string, username string) (*domain.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, domain.ErrUploadNotFound
	}
	removed := false
	for i, name := range u.LikedBy {
		if name == username {
			u.LikedBy = append(u.LikedBy[:i], u.LikedBy[i+1:]...)
			u.LikeCount--
			removed = true
			break
		}
	}
	if !removed {
		u.LikedBy = append(u.LikedBy, username)
		u.LikeCount++
	}
	return copyUpload(u), nil
}

func (r *memUploadRepo) IncrementDownloads(_ context.Context, id string) (*domain.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, domain.ErrUploadNotFound
	}
	u.Downloads++
	return copyUpload(u), nil
}

func (r *memUploadRepo) Delete(_ context.Context, id string) (*domain.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, domain.ErrUploadNotFound
	}
	delete(r.uploads, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return u, nil
}

type memBlobStore struct {
	mu  sync.Mutex
	seq int
}

func (s *memBlobStore) Save(_ context.Context, filename string, content io.Reader) (ports.StoredBlob, error) {
	if _, err := io.Copy(io.Discard, content); err != nil {
		return ports.StoredBlob{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	key := fmt.Sprintf("%d-%s", s.seq, filename)
	return ports.StoredBlob{Key: key, Path: "/uploads/" + key}, nil
}

func (s *memBlobStore) Remove(_ context.Context, _ string) error { return nil }

type recorderDispatcher struct {
	mu            sync.Mutex
	notifications []ports.DecisionNotification
}

func (d *recorderDispatcher) Enqueue(n ports.DecisionNotification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = append(d.notifications, n)
}

func (d *recorderDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.notifications)
}

type testEnv struct {
	e          *echo.Echo
	users      *memUserRepo
	uploads    *memUploadRepo
	dispatcher *recorderDispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := newMemUserRepo()
	uploads := newMemUploadRepo()
	blobs := &memBlobStore{}
	dispatcher := &recorderDispatcher{}
	log := zerolog.Nop()

	e := NewRouter(Deps{
		Identity:     service.NewIdentityService(users, blobs, "secret", time.Hour, log),
		Approval:     service.NewApprovalService(users, dispatcher, log),
		Engagement:   service.NewEngagementService(uploads, log),
		Uploads:      service.NewUploadService(uploads, blobs, log),
		JWTSecret:    "secret",
		Log:          log,
		PromRegistry: prometheus.NewRegistry(),
	})
	e.Logger.SetOutput(io.Discard)

	return &testEnv{e: e, users: users, uploads: uploads, dispatcher: dispatcher}
}

func (env *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) doJSON(t *testing.T, method, path, payload string) *httptest.ResponseRecorder {
	t.Helper()
	return env.do(t, method, path, strings.NewReader(payload), echo.MIMEApplicationJSON)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func registerForm(t *testing.T, fields map[string]string, portfolio []string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, name := range portfolio {
		fw, err := w.CreateFormFile("portfolio", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := io.WriteString(fw, "png-bytes"); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func uploadForm(t *testing.T, fields map[string]string, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := io.WriteString(fw, "image-bytes"); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func seedAdmin(t *testing.T, env *testEnv) *domain.User {
	t.Helper()
	admin, err := env.users.Create(context.Background(), &domain.User{
		Username: "root",
		Role:     domain.RoleAdmin,
		Approved: true,
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return admin
}

func TestAPI_ArtistLifecycle(t *testing.T) {
	env := newTestEnv(t)
	admin := seedAdmin(t, env)

	body, contentType := registerForm(t, map[string]string{
		"username": "bob",
		"password": "secret",
		"email":    "bob@example.com",
		"role":     "artist",
	}, []string{"one.png", "two.png"})
	rec := env.do(t, http.MethodPost, "/users", body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	user := resp["user"].(map[string]any)
	if user["approved"] != false {
		t.Fatalf("artist must start unapproved: %+v", user)
	}
	if got := len(user["portfolio"].([]any)); got != 2 {
		t.Fatalf("expected 2 portfolio items, got %d", got)
	}
	bobID := user["id"].(string)

	// Approval by a non-admin is forbidden and must not notify.
	rec = env.doJSON(t, http.MethodPut, "/users/"+bobID+"/approve",
		fmt.Sprintf(`{"approved":true,"adminId":%q}`, bobID))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.dispatcher.count() != 0 {
		t.Fatalf("forbidden decision must not enqueue a notification")
	}

	rec = env.doJSON(t, http.MethodPut, "/users/"+bobID+"/approve",
		fmt.Sprintf(`{"approved":true,"adminId":%q}`, admin.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp = decodeBody(t, rec)
	if resp["message"] != "Artist approved" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
	if resp["user"].(map[string]any)["approved"] != true {
		t.Fatalf("expected approved=true after decision")
	}
	if env.dispatcher.count() != 1 {
		t.Fatalf("expected exactly one notification, got %d", env.dispatcher.count())
	}
}

func TestAPI_RegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)

	for i, want := range []int{http.StatusCreated, http.StatusBadRequest} {
		body, contentType := registerForm(t, map[string]string{
			"username": "alice",
			"password": "secret",
		}, nil)
		rec := env.do(t, http.MethodPost, "/users", body, contentType)
		if rec.Code != want {
			t.Fatalf("attempt %d: expected %d, got %d: %s", i, want, rec.Code, rec.Body.String())
		}
	}
}

func TestAPI_LoginFlow(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := registerForm(t, map[string]string{
		"username": "carol",
		"password": "s3cret",
	}, nil)
	if rec := env.do(t, http.MethodPost, "/users", body, contentType); rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d", rec.Code)
	}

	rec := env.doJSON(t, http.MethodPost, "/users/login", `{"username":"carol","password":"s3cret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatalf("expected token in login response")
	}

	rec = env.doJSON(t, http.MethodPost, "/users/login", `{"username":"carol","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad password, got %d", rec.Code)
	}
	if decodeBody(t, rec)["message"] != "Invalid credentials" {
		t.Fatalf("unexpected error envelope: %s", rec.Body.String())
	}

	// The token authenticates the /users/me lookup.
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	mrec := httptest.NewRecorder()
	env.e.ServeHTTP(mrec, req)
	if mrec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", mrec.Code, mrec.Body.String())
	}
	var me map[string]any
	if err := json.Unmarshal(mrec.Body.Bytes(), &me); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if me["username"] != "carol" {
		t.Fatalf("unexpected me payload: %+v", me)
	}

	if rec := env.do(t, http.MethodGet, "/users/me", nil, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestAPI_ListUsersHidesCredentials(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := registerForm(t, map[string]string{
		"username": "alice",
		"password": "secret",
	}, nil)
	if rec := env.do(t, http.MethodPost, "/users", body, contentType); rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/users", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "$2a$") || strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("credential material leaked: %s", rec.Body.String())
	}
}

func TestAPI_UploadAndEngagement(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := uploadForm(t, map[string]string{
		"name":     "Sunset",
		"category": "Nature",
		"uploader": "bob",
	}, "sunset.png")
	rec := env.do(t, http.MethodPost, "/uploads", body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	upload := decodeBody(t, rec)["upload"].(map[string]any)
	uploadID := upload["id"].(string)
	if src := upload["src"].(string); !strings.HasPrefix(src, "/uploads/") {
		t.Fatalf("src must be under /uploads: %s", src)
	}

	// Like toggling: on, then off.
	rec = env.doJSON(t, http.MethodPut, "/uploads/"+uploadID+"/like", `{"userName":"carol"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("like: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["upload"].(map[string]any)["likeCount"]; got != float64(1) {
		t.Fatalf("expected likeCount 1, got %v", got)
	}

	rec = env.doJSON(t, http.MethodPut, "/uploads/"+uploadID+"/like", `{"userName":"carol"}`)
	if got := decodeBody(t, rec)["upload"].(map[string]any)["likeCount"]; got != float64(0) {
		t.Fatalf("expected likeCount 0 after second toggle, got %v", got)
	}

	rec = env.do(t, http.MethodPut, "/uploads/"+uploadID+"/download", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["upload"].(map[string]any)["downloads"]; got != float64(1) {
		t.Fatalf("expected downloads 1, got %v", got)
	}

	rec = env.do(t, http.MethodDelete, "/uploads/"+uploadID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	rec = env.doJSON(t, http.MethodPut, "/uploads/"+uploadID+"/like", `{"userName":"carol"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
	if decodeBody(t, rec)["message"] != "Upload not found" {
		t.Fatalf("unexpected error envelope: %s", rec.Body.String())
	}
}

func TestAPI_UpdateLikedImages_AbsentFieldPreservesList(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := registerForm(t, map[string]string{
		"username": "carol",
		"password": "secret",
	}, nil)
	rec := env.do(t, http.MethodPost, "/users", body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d", rec.Code)
	}
	carolID := decodeBody(t, rec)["user"].(map[string]any)["id"].(string)

	rec = env.doJSON(t, http.MethodPut, "/users/"+carolID, `{"likedImages":["img-1","img-2"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := len(decodeBody(t, rec)["user"].(map[string]any)["likedImages"].([]any)); got != 2 {
		t.Fatalf("expected 2 liked images, got %d", got)
	}

	// A body without the field must leave the stored list untouched.
	rec = env.doJSON(t, http.MethodPut, "/users/"+carolID, `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty-body update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["user"].(map[string]any)["likedImages"].([]any); len(got) != 2 {
		t.Fatalf("absent field wiped the liked list: %v", got)
	}

	// An explicit empty list still clears it.
	rec = env.doJSON(t, http.MethodPut, "/users/"+carolID, `{"likedImages":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear update: expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["user"].(map[string]any)["likedImages"].([]any); len(got) != 0 {
		t.Fatalf("expected cleared list, got %v", got)
	}
}

func TestAPI_UploadMissingFile(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := uploadForm(t, map[string]string{
		"name":     "Sunset",
		"category": "Nature",
		"uploader": "bob",
	}, "")
	rec := env.do(t, http.MethodPost, "/uploads", body, contentType)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_UnknownUserReturnsNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/users/username/ghost", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if decodeBody(t, rec)["message"] != "User not found" {
		t.Fatalf("unexpected error envelope: %s", rec.Body.String())
	}
}

func TestAPI_Health(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
