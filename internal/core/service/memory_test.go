package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pinsync/pinsync-server/internal/core/domain"
	"github.com/pinsync/pinsync-server/internal/core/ports"
)

// In-memory doubles shared by the service tests. The repositories guard all
// state with a mutex so the concurrency tests exercise the same per-record
// serialization contract the Mongo adapters provide.

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.LikedImages != nil {
		clone.LikedImages = append([]string{}, u.LikedImages...)
	}
	clone.Portfolio = append([]domain.PortfolioItem(nil), u.Portfolio...)
	return &clone
}

func cloneUpload(u *domain.Upload) *domain.Upload {
	if u == nil {
		return nil
	}
	clone := *u
	if u.LikedBy != nil {
		clone.LikedBy = append([]string{}, u.LikedBy...)
	}
	return &clone
}

type memUserRepo struct {
	mu    sync.Mutex
	seq   int
	order []string
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
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
	stored := cloneUser(user)
	stored.ID = fmt.Sprintf("user-%d", r.seq)
	r.users[stored.ID] = stored
	r.order = append(r.order, stored.ID)
	return cloneUser(stored), nil
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]*domain.User, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, cloneUser(r.users[id]))
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
	return cloneUser(u), nil
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
	return cloneUser(u), nil
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
	mu         sync.Mutex
	seq        int
	order      []string
	uploads    map[string]*domain.Upload
	failCreate bool
}

func newMemUploadRepo() *memUploadRepo {
	return &memUploadRepo{uploads: make(map[string]*domain.Upload)}
}

func (r *memUploadRepo) Create(_ context.Context, upload *domain.Upload) (*domain.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return nil, errors.New("insert failed")
	}
	r.seq++
	stored := cloneUpload(upload)
	stored.ID = fmt.Sprintf("upload-%d", r.seq)
	r.uploads[stored.ID] = stored
	r.order = append(r.order, stored.ID)
	return cloneUpload(stored), nil
}

func (r *memUploadRepo) FindByID(_ context.Context, id string) (*domain.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, domain.ErrUploadNotFound
	}
	return cloneUpload(u), nil
}

func (r *memUploadRepo) List(_ context.Context) ([]*domain.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uploads := make([]*domain.Upload, 0, len(r.order))
	for _, id := range r.order {
		uploads = append(uploads, cloneUpload(r.uploads[id]))
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
	liked := false
	for i, name := range u.LikedBy {
		if name == username {
			u.LikedBy = append(u.LikedBy[:i], u.LikedBy[i+1:]...)
			u.LikeCount--
			liked = true
			break
		}
	}
	if !liked {
		u.LikedBy = append(u.LikedBy, username)
		u.LikeCount++
	}
	return cloneUpload(u), nil
}

func (r *memUploadRepo) IncrementDownloads(_ context.Context, id string) (*domain.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, domain.ErrUploadNotFound
	}
	u.Downloads++
	return cloneUpload(u), nil
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
	mu       sync.Mutex
	seq      int
	blobs    map[string][]byte
	failSave bool
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (s *memBlobStore) Save(_ context.Context, filename string, content io.Reader) (ports.StoredBlob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return ports.StoredBlob{}, errors.New("blob store unavailable")
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return ports.StoredBlob{}, err
	}
	s.seq++
	key := fmt.Sprintf("%d-%s", s.seq, filename)
	s.blobs[key] = buf.Bytes()
	return ports.StoredBlob{Key: key, Path: "/uploads/" + key}, nil
}

func (s *memBlobStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *memBlobStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

type recorderDispatcher struct {
	mu            sync.Mutex
	notifications []ports.DecisionNotification
}

func (d *recorderDispatcher) Enqueue(n ports.DecisionNotification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = append(d.notifications, n)
}

func (d *recorderDispatcher) sent() []ports.DecisionNotification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ports.DecisionNotification(nil), d.notifications...)
}
