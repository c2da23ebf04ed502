package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credbridge/internal/credtypes"
	"credbridge/internal/proof/models"
	"credbridge/pkg/platform/sentinel"
)

func newProof(id, sessionID string, created time.Time) *models.ProofRequest {
	return &models.ProofRequest{
		ProofID:             id,
		SessionID:           sessionID,
		ConnectionID:        "conn-1",
		RequestedAttributes: []credtypes.AttributeConstraint{{AttributeName: "surname"}},
		Status:              models.StatusRequested,
		CreatedAt:           created,
		UpdatedAt:           created,
	}
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	t.Run("create find update", func(t *testing.T) {
		s := NewInMemoryStore()
		p := newProof("p1", "s1", base)
		require.NoError(t, s.Create(ctx, p))
		assert.ErrorIs(t, s.Create(ctx, p), sentinel.ErrConflict)

		p.MarkVerified(map[string]any{"surname": "Doe"}, base.Add(time.Minute))
		require.NoError(t, s.Update(ctx, p))

		got, err := s.FindByID(ctx, "p1")
		require.NoError(t, err)
		assert.True(t, got.Verified)
		assert.Equal(t, "Doe", got.PresentedAttributes["surname"])
	})

	t.Run("returned records do not alias storage", func(t *testing.T) {
		s := NewInMemoryStore()
		require.NoError(t, s.Create(ctx, newProof("p1", "s1", base)))
		got, err := s.FindByID(ctx, "p1")
		require.NoError(t, err)
		got.RequestedAttributes[0].AttributeName = "mutated"

		again, err := s.FindByID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "surname", again.RequestedAttributes[0].AttributeName)
	})

	t.Run("latest by session", func(t *testing.T) {
		s := NewInMemoryStore()
		require.NoError(t, s.Create(ctx, newProof("old", "s1", base)))
		require.NoError(t, s.Create(ctx, newProof("new", "s1", base.Add(time.Minute))))
		require.NoError(t, s.Create(ctx, newProof("other", "s2", base.Add(time.Hour))))

		got, err := s.FindLatestBySession(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "new", got.ProofID)

		_, err = s.FindLatestBySession(ctx, "s3")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("update unknown", func(t *testing.T) {
		s := NewInMemoryStore()
		assert.ErrorIs(t, s.Update(ctx, newProof("nope", "s1", base)), sentinel.ErrNotFound)
	})
}
