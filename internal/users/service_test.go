package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceCreateAndFindByEmail(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepo())

	created, err := svc.Create(ctx, CreateInput{Email: "Sup@Example.com", FullName: " Sam ", Role: "Supervisor"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "sup@example.com", created.Email)
	assert.Equal(t, "Sam", created.FullName)
	assert.Equal(t, RoleSupervisor, created.Role)
	assert.True(t, created.IsActive)

	found, err := svc.FindByEmail(ctx, "SUP@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestServiceCreateRejectsInvalidInput(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	_, err := svc.Create(context.Background(), CreateInput{Email: "not-an-email", Role: "user"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(context.Background(), CreateInput{Email: "a@example.com", Role: "owner"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestServiceCreateRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepo())

	_, err := svc.Create(ctx, CreateInput{Email: "a@example.com", Role: "user"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Email: "A@example.com", Role: "admin"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestServiceUpdateDeactivates(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepo())

	created, err := svc.Create(ctx, CreateInput{Email: "a@example.com", Role: "user"})
	require.NoError(t, err)

	inactive := false
	role := "supervisor"
	updated, err := svc.Update(ctx, created.ID, UpdateInput{IsActive: &inactive, Role: &role})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, RoleSupervisor, updated.Role)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = svc.Update(ctx, "missing", UpdateInput{IsActive: &inactive})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceFindByEmailBlank(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	_, err := svc.FindByEmail(context.Background(), "   ")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" ADMIN ")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, role)

	_, ok = ParseRole("root")
	assert.False(t, ok)
}
