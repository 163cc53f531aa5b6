package service

import (
	"context"
	"testing"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, other := env.user(t, "u"), env.user(t, "other")

	repo := env.store.Notifications()
	var notes []*models.Notification
	for _, msg := range []string{"first", "second", "third"} {
		n := &models.Notification{UserID: u.ID, Message: msg, CreatedAt: env.now}
		require.NoError(t, repo.Create(ctx, n))
		notes = append(notes, n)
		env.advance(1)
	}

	list, err := env.svc.Notifications.List(ctx, u)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Message)

	requireKind(t, env.svc.Notifications.MarkRead(ctx, other, notes[0].ID), KindForbidden)
	require.NoError(t, env.svc.Notifications.MarkRead(ctx, u, notes[0].ID))

	n, err := env.svc.Notifications.MarkAllRead(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err = env.svc.Notifications.List(ctx, u)
	require.NoError(t, err)
	for _, note := range list {
		assert.True(t, note.Read)
	}
}

func TestCategoryService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, u := env.admin(t), env.user(t, "u")

	_, err := env.svc.Categories.Create(ctx, u, "Shoes")
	requireKind(t, err, KindForbidden)
	_, err = env.svc.Categories.Create(ctx, admin, " ")
	requireKind(t, err, KindValidation)

	_, err = env.svc.Categories.Create(ctx, admin, "Shoes")
	require.NoError(t, err)
	_, err = env.svc.Categories.Create(ctx, admin, "Bags")
	require.NoError(t, err)
	_, err = env.svc.Categories.Create(ctx, admin, "Bags")
	requireKind(t, err, KindConflict)

	list, err := env.svc.Categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bags", list[0].Name)
}
