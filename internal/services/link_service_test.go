package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/eduguide/backend/internal/apperrors"
	"github.com/eduguide/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkService_Link(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	student := env.register(t, "Ann", "Lee", "a@x.com", "secret1", models.RoleStudent)
	parent := env.register(t, "Pat", "Lee", "p@x.com", "secret1", models.RoleParent)
	stranger := env.register(t, "Sam", "Roe", "s@x.com", "secret1", models.RoleParent)
	svc := NewLinkService(env.deps)

	resp, err := svc.Link(ctx, student, LinkRequest{StudentEmail: "A@x.com", ParentEmail: "p@x.com"})
	require.NoError(t, err)
	assert.Equal(t, student, resp.Student.ID)
	assert.Equal(t, parent, resp.Parent.ID)

	t.Run("symmetric", func(t *testing.T) {
		s, _ := env.repo.FindByID(ctx, student)
		p, _ := env.repo.FindByID(ctx, parent)
		assert.Equal(t, []string{parent}, s.LinkedUsers)
		assert.Equal(t, []string{student}, p.LinkedUsers)
	})

	t.Run("idempotent", func(t *testing.T) {
		_, err := svc.Link(ctx, parent, LinkRequest{StudentEmail: "a@x.com", ParentEmail: "p@x.com"})
		require.NoError(t, err)

		s, _ := env.repo.FindByID(ctx, student)
		p, _ := env.repo.FindByID(ctx, parent)
		assert.Len(t, s.LinkedUsers, 1)
		assert.Len(t, p.LinkedUsers, 1)
	})

	t.Run("requester must be a party", func(t *testing.T) {
		_, err := svc.Link(ctx, stranger, LinkRequest{StudentEmail: "a@x.com", ParentEmail: "p@x.com"})
		appErr := assertKind(t, err, apperrors.KindAuthorization)
		assert.Equal(t, "You can only link your own accounts", appErr.Message)
	})

	t.Run("roles must match", func(t *testing.T) {
		_, err := svc.Link(ctx, parent, LinkRequest{StudentEmail: "p@x.com", ParentEmail: "a@x.com"})
		assertKind(t, err, apperrors.KindNotFound)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Link(ctx, student, LinkRequest{StudentEmail: "a@x.com", ParentEmail: "nobody@x.com"})
		assertKind(t, err, apperrors.KindNotFound)
	})
}

func TestLinkService_ListLinked(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	student := env.register(t, "Ann", "Lee", "a@x.com", "secret1", models.RoleStudent)
	env.register(t, "Pat", "Lee", "p@x.com", "secret1", models.RoleParent)
	env.register(t, "Max", "Lee", "m@x.com", "secret1", models.RoleParent)
	svc := NewLinkService(env.deps)

	empty, err := svc.ListLinked(ctx, student)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)

	for _, parent := range []string{"p@x.com", "m@x.com"} {
		_, err := svc.Link(ctx, student, LinkRequest{StudentEmail: "a@x.com", ParentEmail: parent})
		require.NoError(t, err)
	}

	linked, err := svc.ListLinked(ctx, student)
	require.NoError(t, err)
	require.Len(t, linked, 2)
	assert.Equal(t, "p@x.com", linked[0].Email)
	assert.Equal(t, "m@x.com", linked[1].Email)
	assert.Equal(t, models.RoleParent, linked[0].Role)

	_, err = svc.ListLinked(ctx, "missing")
	assertKind(t, err, apperrors.KindNotFound)
}

func TestLinkService_Search(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	me := env.register(t, "Ann", "Lee", "a@x.com", "secret1", models.RoleStudent)
	env.register(t, "Anna", "Leeson", "b@x.com", "secret1", models.RoleParent)
	env.register(t, "Joanne", "Fleet", "c@x.com", "secret1", models.RoleStudent)
	env.register(t, "Bob", "Lee", "d@x.com", "secret1", models.RoleStudent)
	svc := NewLinkService(env.deps)

	found, err := svc.Search(ctx, me, "ann", "LEE", "")
	require.NoError(t, err)
	emails := make([]string, 0, len(found))
	for _, f := range found {
		emails = append(emails, f.Email)
	}
	assert.ElementsMatch(t, []string{"b@x.com", "c@x.com"}, emails)

	t.Run("role filter", func(t *testing.T) {
		found, err := svc.Search(ctx, me, "ann", "lee", "parent")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "b@x.com", found[0].Email)
	})

	t.Run("name and surname required", func(t *testing.T) {
		_, err := svc.Search(ctx, me, "ann", " ", "")
		appErr := assertKind(t, err, apperrors.KindValidation)
		assert.Equal(t, "Name and surname are required", appErr.Message)
	})

	t.Run("bad role", func(t *testing.T) {
		_, err := svc.Search(ctx, me, "ann", "lee", "admin")
		assertKind(t, err, apperrors.KindValidation)
	})

	t.Run("capped at ten", func(t *testing.T) {
		for i := 0; i < 12; i++ {
			env.register(t, "Zed", "Zulu", fmt.Sprintf("z%d@x.com", i), "secret1", models.RoleStudent)
		}
		found, err := svc.Search(ctx, me, "zed", "zulu", "")
		require.NoError(t, err)
		assert.Len(t, found, 10)
	})
}
