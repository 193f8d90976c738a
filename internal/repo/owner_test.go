package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/itinerary-sync/backend/internal/domain"
	"github.com/pkordes/itinerary-sync/backend/internal/repo"
)

func TestOwnerRepo_CreateAndGet(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewOwnerRepo(tx)
	ctx := context.Background()

	created, err := r.Create(ctx, domain.Owner{
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: []byte{1, 2, 3},
		PasswordSalt: []byte{4, 5, 6},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := r.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", byID.Name)
	assert.Equal(t, []byte{1, 2, 3}, byID.PasswordHash)

	byEmail, err := r.GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestOwnerRepo_Create_DuplicateEmail(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewOwnerRepo(tx)
	ctx := context.Background()

	owner := domain.Owner{Email: "dup@example.com", PasswordHash: []byte("h"), PasswordSalt: []byte("s")}
	_, err := r.Create(ctx, owner)
	require.NoError(t, err)

	owner.Email = "Dup@Example.com"
	_, err = r.Create(ctx, owner)

	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestOwnerRepo_GetByID_NotFound(t *testing.T) {
	tx := newTestTx(t)

	_, err := repo.NewOwnerRepo(tx).GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
