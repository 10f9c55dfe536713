package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/formseva/formseva-backend/internal/models"
)

func TestNotificationFlow(t *testing.T) {
	db := setupTestDB(t)
	svc := NewNotificationService(db)
	ctx := context.Background()
	userID := uuid.New()
	otherID := uuid.New()

	svc.Notify(ctx, userID, "Application Submitted", "Your application has been submitted.", models.NotificationSubmitted)
	svc.Notify(ctx, userID, "Payment Successful", "Your payment has been received.", models.NotificationGeneral)
	svc.Notify(ctx, otherID, "Application Verified", "Verified.", models.NotificationVerified)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, n := range list {
		assert.False(t, n.Read)
	}

	// Marking another user's notification fails without touching it.
	err = svc.MarkRead(ctx, otherID, list[0].ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, svc.MarkRead(ctx, userID, list[0].ID))

	list, err = svc.List(ctx, userID)
	require.NoError(t, err)
	read := 0
	for _, n := range list {
		if n.Read {
			read++
		}
	}
	assert.Equal(t, 1, read)

	require.NoError(t, svc.MarkAllRead(ctx, userID))

	list, err = svc.List(ctx, userID)
	require.NoError(t, err)
	for _, n := range list {
		assert.True(t, n.Read)
	}

	// The other user's feed is untouched.
	list, err = svc.List(ctx, otherID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)
}
