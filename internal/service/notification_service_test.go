package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nclexkeys/backend/internal/repository"
)

func TestNotifications(t *testing.T) {
	db := setupTestDB(t)
	svc := NewNotificationService(repository.NewPGNotificationRepository(db))
	ctx := context.Background()
	owner, stranger := uuid.New(), uuid.New()

	first, err := svc.Notify(ctx, owner, "Welcome", "Hello")
	require.NoError(t, err)
	_, err = svc.Notify(ctx, owner, "Payment received", "Thanks")
	require.NoError(t, err)

	count, err := svc.UnreadCount(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	assert.ErrorIs(t, svc.MarkRead(ctx, first.ID, stranger), ErrNotificationNotFound)
	require.NoError(t, svc.MarkRead(ctx, first.ID, owner))

	unread, err := svc.List(ctx, owner, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "Payment received", unread[0].Title)

	all, err := svc.List(ctx, owner, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
