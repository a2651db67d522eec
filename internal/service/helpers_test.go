package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/agrokasa/advert_market/internal/db"
	"github.com/agrokasa/advert_market/internal/models"
	"github.com/agrokasa/advert_market/internal/repo"
	"github.com/agrokasa/advert_market/internal/tokens"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	gdb, err := db.Open(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb, true))
	t.Cleanup(func() { _ = db.Close(gdb) })

	return &repo.GormRepo{DB: gdb}
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads [][]byte
	err     error
}

func (f *fakeUploader) Upload(ctx context.Context, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, data)
	return "https://cdn.test/adverts/" + uuid.NewString() + ".jpg", nil
}

func (f *fakeUploader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	image   []byte
	text    string
	err     error
	delay   time.Duration
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.image == nil {
		return []byte("\xff\xd8\xff\xe0generated"), nil
	}
	return f.image, nil
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type publishedEvent struct {
	Topic string
	Key   string
	Event any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		switch ev := e.Event.(type) {
		case AdvertEvent:
			out = append(out, ev.Type)
		case UserEvent:
			out = append(out, ev.Type)
		}
	}
	return out
}

type fakeIndex struct {
	indexed []uuid.UUID
	deleted []uuid.UUID
	hits    []uuid.UUID
	err     error
	// hang blocks every call until its context is done
	hang bool
}

func (f *fakeIndex) wait(ctx context.Context) error {
	if f.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeIndex) IndexAdvert(ctx context.Context, a *models.Advert) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.indexed = append(f.indexed, a.ID)
	return nil
}

func (f *fakeIndex) DeleteAdvert(ctx context.Context, id uuid.UUID) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, query string, from, size int) ([]uuid.UUID, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.hits, nil
}

var errGateway = errors.New("gateway unavailable")

func newUser(t *testing.T, r *repo.GormRepo, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Username:     string(role) + "-" + uuid.NewString()[:8],
		Email:        uuid.NewString() + "@agrokasa.test",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return u
}

func newTestIssuer() *tokens.Issuer {
	return tokens.NewIssuer([]byte("test-jwt-secret"), 5*time.Minute)
}
