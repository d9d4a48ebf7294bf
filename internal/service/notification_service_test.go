package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-dev/syllabus-api/internal/models"
	"github.com/campus-dev/syllabus-api/pkg/config"
	appErrors "github.com/campus-dev/syllabus-api/pkg/errors"
)

type notificationStoreStub struct {
	mu    sync.Mutex
	items map[string]*models.Notification
}

func newNotificationStoreStub() *notificationStoreStub {
	return &notificationStoreStub{items: make(map[string]*models.Notification)}
}

func (s *notificationStoreStub) Create(ctx context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *notification
	s.items[notification.ID] = &copy
	return nil
}

func (s *notificationStoreStub) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, item := range s.items {
		if item.RecipientID != filter.RecipientID {
			continue
		}
		if filter.UnreadOnly && item.Read {
			continue
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (s *notificationStoreStub) MarkRead(ctx context.Context, id, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok || item.RecipientID != recipientID {
		return sql.ErrNoRows
	}
	item.Read = true
	return nil
}

func (s *notificationStoreStub) MarkAllRead(ctx context.Context, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.RecipientID == recipientID {
			item.Read = true
		}
	}
	return nil
}

type senderStub struct {
	delivered chan *models.Notification
}

func (s *senderStub) Send(_ context.Context, notification *models.Notification) error {
	s.delivered <- notification
	return nil
}

func TestNotificationServiceDispatchPersistsAndDelivers(t *testing.T) {
	repo := newNotificationStoreStub()
	sender := &senderStub{delivered: make(chan *models.Notification, 4)}
	svc := NewNotificationService(repo, sender, nil, config.NotificationsConfig{WorkerConcurrency: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	svc.Dispatch(ctx, []string{"user-1", "user-2"}, models.NotificationKindApproved,
		"Syllabus approved", "CS101 v1.0 advanced", map[string]string{"syllabus_id": "syl-1"})

	recipients := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case n := <-sender.delivered:
			recipients[n.RecipientID] = true
			assert.Equal(t, models.NotificationKindApproved, n.Kind)
			assert.NotEmpty(t, n.Payload)
		case <-time.After(2 * time.Second):
			t.Fatal("delivery timed out")
		}
	}
	assert.True(t, recipients["user-1"])
	assert.True(t, recipients["user-2"])

	items, total, err := svc.List(ctx, &models.JWTClaims{UserID: "user-1", Role: models.RoleLecturer}, false, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "user-1", items[0].RecipientID)
	assert.False(t, items[0].Read)
}

func TestNotificationServiceMarkRead(t *testing.T) {
	repo := newNotificationStoreStub()
	svc := NewNotificationService(repo, nil, nil, config.NotificationsConfig{})

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Notification{ID: "n-1", RecipientID: "user-1"}))

	actor := &models.JWTClaims{UserID: "user-1", Role: models.RoleLecturer}
	require.NoError(t, svc.MarkRead(ctx, "n-1", actor))
	assert.True(t, repo.items["n-1"].Read)

	// Another user's notification reads as missing, not forbidden.
	err := svc.MarkRead(ctx, "n-1", &models.JWTClaims{UserID: "user-2", Role: models.RoleLecturer})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestNotificationServiceMarkAllRead(t *testing.T) {
	repo := newNotificationStoreStub()
	svc := NewNotificationService(repo, nil, nil, config.NotificationsConfig{})

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Notification{ID: "n-1", RecipientID: "user-1"}))
	require.NoError(t, repo.Create(ctx, &models.Notification{ID: "n-2", RecipientID: "user-1"}))
	require.NoError(t, repo.Create(ctx, &models.Notification{ID: "n-3", RecipientID: "user-2"}))

	require.NoError(t, svc.MarkAllRead(ctx, &models.JWTClaims{UserID: "user-1", Role: models.RoleLecturer}))
	assert.True(t, repo.items["n-1"].Read)
	assert.True(t, repo.items["n-2"].Read)
	assert.False(t, repo.items["n-3"].Read)
}

func TestNotificationServiceListUnreadOnly(t *testing.T) {
	repo := newNotificationStoreStub()
	svc := NewNotificationService(repo, nil, nil, config.NotificationsConfig{})

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Notification{ID: "n-1", RecipientID: "user-1", Read: true}))
	require.NoError(t, repo.Create(ctx, &models.Notification{ID: "n-2", RecipientID: "user-1"}))

	items, total, err := svc.List(ctx, &models.JWTClaims{UserID: "user-1", Role: models.RoleLecturer}, true, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "n-2", items[0].ID)
}
