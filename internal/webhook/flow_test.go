package webhook

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connModels "credbridge/internal/connection/models"
	connService "credbridge/internal/connection/service"
	connStore "credbridge/internal/connection/store"
	"credbridge/internal/notify"
	proofModels "credbridge/internal/proof/models"
	proofService "credbridge/internal/proof/service"
	proofStore "credbridge/internal/proof/store"
	"credbridge/pkg/requestcontext"
	"credbridge/pkg/testutil"
)

type inbox struct {
	id  string
	mu  sync.Mutex
	got []notify.StatusUpdate
}

func (i *inbox) ID() string   { return i.id }
func (i *inbox) Closed() bool { return false }

func (i *inbox) Send(_ context.Context, payload any) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if msg, ok := payload.(notify.StatusUpdate); ok {
		i.got = append(i.got, msg)
	}
	return nil
}

func (i *inbox) messages() []notify.StatusUpdate {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]notify.StatusUpdate(nil), i.got...)
}

func TestWebhookFlow(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	sessions := connService.New(connStore.NewInMemoryStore(), connService.WithLogger(logger))
	proofStorage := proofStore.NewInMemoryStore()
	proofs := proofService.New(proofStorage, nil, proofService.WithLogger(logger))
	registry := notify.NewRegistry(notify.WithLogger(logger))
	h := New(sessions, proofs, registry, testAPIKey, logger)

	testutil.Given(t, "a session waiting on invitation inv-1 with an open browser channel", func(t *testing.T) {
		session, err := sessions.CreateSession(ctx, "inv-1", "https://platform.example/oob", "proof", nil)
		require.NoError(t, err)
		browser := &inbox{id: "tab-1"}
		registry.Subscribe(session.SessionID, browser)

		completed := []byte(`{"type":"Connection","timestamp":"2026-05-04T09:00:05Z","data":{"id":"inv-1","connectionId":"conn-9","state":"completed"}}`)

		testutil.When(t, "the platform reports the connection completed", func(t *testing.T) {
			resp := h.Process(ctx, completed)
			require.True(t, resp.Received)

			testutil.Then(t, "the session is connected under the platform connection id", func(t *testing.T) {
				got, err := sessions.GetSession(ctx, session.SessionID)
				require.NoError(t, err)
				assert.Equal(t, connModels.StatusConnected, got.Status)
				assert.Equal(t, "conn-9", got.ConnectionID)
			})

			testutil.Then(t, "the browser hears about it once", func(t *testing.T) {
				msgs := browser.messages()
				require.Len(t, msgs, 1)
				assert.Equal(t, session.SessionID, msgs[0].SessionID)
				assert.Equal(t, "completed", msgs[0].Status)
			})

			testutil.Then(t, "the channel is reachable by connection id", func(t *testing.T) {
				assert.Equal(t, 2, registry.KeyCount())
			})
		})

		testutil.When(t, "the same event is delivered again", func(t *testing.T) {
			before, err := sessions.GetSession(ctx, session.SessionID)
			require.NoError(t, err)

			h.Process(ctx, completed)

			testutil.Then(t, "the session is unchanged", func(t *testing.T) {
				after, err := sessions.GetSession(ctx, session.SessionID)
				require.NoError(t, err)
				assert.Equal(t, before, after)
			})
		})

		testutil.When(t, "a proof for the connection moves forward", func(t *testing.T) {
			require.NoError(t, proofStorage.Create(ctx, &proofModels.ProofRequest{
				ProofID:      "p-1",
				SessionID:    session.SessionID,
				ConnectionID: "conn-9",
				Status:       proofModels.StatusRequestSent,
				CreatedAt:    now,
				UpdatedAt:    now,
			}))
			h.Process(ctx, []byte(`{"type":"Proof","data":{"id":"p-1","connectionId":"conn-9","state":"presentation-received"}}`))

			testutil.Then(t, "the proof is stored with its new state", func(t *testing.T) {
				got, err := proofs.GetProof(ctx, "p-1")
				require.NoError(t, err)
				assert.Equal(t, proofModels.StatusPresentationReceived, got.Status)
			})

			testutil.Then(t, "the browser gets the proof update", func(t *testing.T) {
				msgs := browser.messages()
				require.NotEmpty(t, msgs)
				last := msgs[len(msgs)-1]
				assert.Equal(t, "p-1", last.ProofID)
				assert.Equal(t, "presentation-received", last.Status)
			})
		})
	})

	testutil.Given(t, "no session knows the invitation", func(t *testing.T) {
		resp := h.Process(ctx, []byte(`{"type":"Connection","data":{"id":"inv-unknown","connectionId":"conn-x","state":"completed"}}`))

		testutil.Then(t, "the delivery is still acknowledged", func(t *testing.T) {
			assert.True(t, resp.Received)
			_, err := sessions.FindByConnectionID(ctx, "conn-x")
			assert.Error(t, err)
		})
	})
}
