package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	connModels "credbridge/internal/connection/models"
	"credbridge/internal/events"
	"credbridge/internal/notify"
	proofModels "credbridge/internal/proof/models"
	"credbridge/internal/webhook/mocks"
	dErrors "credbridge/pkg/domain-errors"
	"credbridge/pkg/requestcontext"
	"credbridge/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/webhook-mocks.go -package=mocks

const testAPIKey = "s3cret"

type capturePublisher struct {
	events []events.PlatformEvent
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, e events.PlatformEvent) error {
	c.events = append(c.events, e)
	return c.err
}

type HandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	connections *mocks.MockConnectionService
	proofs      *mocks.MockProofService
	broadcaster *mocks.MockBroadcaster
	publisher   *capturePublisher
	router      http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.connections = mocks.NewMockConnectionService(s.ctrl)
	s.proofs = mocks.NewMockProofService(s.ctrl)
	s.broadcaster = mocks.NewMockBroadcaster(s.ctrl)
	s.publisher = &capturePublisher{}

	h := New(s.connections, s.proofs, s.broadcaster, testAPIKey,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithPublisher(s.publisher),
	)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) post(body string, apiKey string) (*Response, int) {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/webhooks", body)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rr := testutil.DoRequest(s.router, req)
	if rr.Code != http.StatusOK {
		return nil, rr.Code
	}
	return testutil.UnmarshalResponse[Response](s.T(), rr), rr.Code
}

func connectedSession() *connModels.Session {
	return &connModels.Session{
		SessionID:    "S1",
		InvitationID: "inv-1",
		ConnectionID: "conn-9",
		Status:       connModels.StatusConnected,
	}
}

func (s *HandlerSuite) TestAuthentication() {
	s.Run("missing key is rejected before any processing", func() {
		_, code := s.post(`{"type":"Connection","data":{"id":"inv-1"}}`, "")
		s.Equal(http.StatusUnauthorized, code)
	})

	s.Run("wrong key is rejected", func() {
		_, code := s.post(`{"type":"Connection","data":{"id":"inv-1"}}`, "nope")
		s.Equal(http.StatusUnauthorized, code)
	})
	s.Empty(s.publisher.events)
}

func (s *HandlerSuite) TestConnectionEvent() {
	s.Run("confirmation rekeys and broadcasts under both keys", func() {
		s.connections.EXPECT().
			ApplyConnectionEvent(gomock.Any(), connModels.ConnectionEvent{
				ID: "inv-1", ConnectionID: "conn-9", State: "completed", TheirLabel: "Ada",
			}).
			Return(connectedSession(), true, nil)
		s.broadcaster.EXPECT().Rekey("S1", "conn-9").Return(1)
		s.broadcaster.EXPECT().
			BroadcastKeys(gomock.Any(), gomock.Any(), "conn-9", "S1").
			DoAndReturn(func(_ context.Context, payload any, _ ...string) int {
				msg, ok := payload.(notify.StatusUpdate)
				s.Require().True(ok)
				s.Equal(notify.TypeStatusUpdate, msg.Type)
				s.Equal("S1", msg.SessionID)
				s.Equal("conn-9", msg.ConnectionID)
				s.Equal("completed", msg.Status)
				return 1
			})

		resp, code := s.post(`{"type":"Connection","data":{"id":"inv-1","connectionId":"conn-9","state":"completed","theirLabel":"Ada"}}`, testAPIKey)
		s.Equal(http.StatusOK, code)
		s.Equal(Response{Received: true, Type: "Connection", State: "completed"}, *resp)
		s.Require().Len(s.publisher.events, 1)
		s.Equal(OutcomeApplied, s.publisher.events[0].Outcome)
		s.Equal("S1", s.publisher.events[0].SessionID)
	})

	s.Run("orphan is acknowledged and broadcast by connection key only", func() {
		s.connections.EXPECT().
			ApplyConnectionEvent(gomock.Any(), gomock.Any()).
			Return(nil, false, dErrors.New(dErrors.CodeOrphanEvent, "no session"))
		s.broadcaster.EXPECT().BroadcastKeys(gomock.Any(), gomock.Any(), "conn-x", "").Return(0)

		resp, code := s.post(`{"type":"Connection","data":{"id":"inv-x","connectionId":"conn-x","state":"completed"}}`, testAPIKey)
		s.Equal(http.StatusOK, code)
		s.True(resp.Received)
	})

	s.Run("store failure is still acknowledged", func() {
		s.connections.EXPECT().
			ApplyConnectionEvent(gomock.Any(), gomock.Any()).
			Return(nil, false, dErrors.Wrap(errors.New("redis down"), dErrors.CodeInternal, "failed to update session"))
		s.broadcaster.EXPECT().BroadcastKeys(gomock.Any(), gomock.Any(), "inv-2", "").Return(0)

		resp, code := s.post(`{"type":"Connection","data":{"id":"inv-2","state":"completed"}}`, testAPIKey)
		s.Equal(http.StatusOK, code)
		s.True(resp.Received)
	})
}

func (s *HandlerSuite) TestProofEvent() {
	s.Run("proof state change reaches the session", func() {
		s.proofs.EXPECT().
			ApplyProofEvent(gomock.Any(), proofModels.ProofEvent{ProofID: "p-1", State: "presentation-received"}).
			Return(&proofModels.ProofRequest{ProofID: "p-1", SessionID: "S1", ConnectionID: "conn-9"}, true, nil)
		s.broadcaster.EXPECT().
			BroadcastKeys(gomock.Any(), gomock.Any(), "conn-9", "S1").
			DoAndReturn(func(_ context.Context, payload any, _ ...string) int {
				msg := payload.(notify.StatusUpdate)
				s.Equal("p-1", msg.ProofID)
				s.Equal("presentation-received", msg.Status)
				return 1
			})

		resp, _ := s.post(`{"type":"Proof","data":{"id":"p-1","state":"presentation-received"}}`, testAPIKey)
		s.True(resp.Received)
	})

	s.Run("connection type with proof state routes to proofs", func() {
		s.proofs.EXPECT().
			ApplyProofEvent(gomock.Any(), proofModels.ProofEvent{ProofID: "p-2", ConnectionID: "conn-9", State: "done"}).
			Return(&proofModels.ProofRequest{ProofID: "p-2", SessionID: "S1", ConnectionID: "conn-9"}, false, nil)
		s.broadcaster.EXPECT().BroadcastKeys(gomock.Any(), gomock.Any(), "conn-9", "S1").Return(1)

		resp, _ := s.post(`{"type":"Connection","data":{"id":"p-2","connectionId":"conn-9","state":"done"}}`, testAPIKey)
		s.Equal("done", resp.State)
	})
}

func (s *HandlerSuite) TestCredentialEvent() {
	s.connections.EXPECT().FindByConnectionID(gomock.Any(), "conn-9").Return(connectedSession(), nil)
	s.broadcaster.EXPECT().BroadcastKeys(gomock.Any(), gomock.Any(), "conn-9", "S1").Return(1)

	resp, _ := s.post(`{"type":"Credential","data":{"id":"cred-1","connectionId":"conn-9","state":"offer-sent"}}`, testAPIKey)
	s.True(resp.Received)
	s.Require().Len(s.publisher.events, 1)
	s.Equal(OutcomeBroadcast, s.publisher.events[0].Outcome)
}

func (s *HandlerSuite) TestUnroutedPayloads() {
	s.Run("unknown type is dropped without dispatch", func() {
		resp, code := s.post(`{"type":"BasicMessage","data":{"id":"m-1","state":"received"}}`, testAPIKey)
		s.Equal(http.StatusOK, code)
		s.Equal(Response{Received: true, Type: "BasicMessage", State: "received"}, *resp)
	})

	s.Run("unrecognized shape is acknowledged as not received", func() {
		resp, code := s.post(`[1,2,3]`, testAPIKey)
		s.Equal(http.StatusOK, code)
		s.False(resp.Received)
	})

	s.Run("panics are contained", func() {
		s.connections.EXPECT().
			ApplyConnectionEvent(gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, connModels.ConnectionEvent) (*connModels.Session, bool, error) {
				panic("boom")
			})

		resp, code := s.post(`{"type":"Connection","data":{"id":"inv-1","state":"completed"}}`, testAPIKey)
		s.Equal(http.StatusOK, code)
		s.True(resp.Received)
	})

	s.Run("publish failure does not change the response", func() {
		s.publisher.err = errors.New("kafka down")
		s.connections.EXPECT().FindByConnectionID(gomock.Any(), "conn-9").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "session not found"))
		s.broadcaster.EXPECT().BroadcastKeys(gomock.Any(), gomock.Any(), "conn-9", "").Return(0)

		resp, code := s.post(`{"type":"Credential","data":{"connectionId":"conn-9","state":"done"}}`, testAPIKey)
		s.Equal(http.StatusOK, code)
		s.True(resp.Received)
	})
}

func (s *HandlerSuite) TestEventTimestampUsesRequestTime() {
	now := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	h := New(s.connections, s.proofs, nil, testAPIKey, slog.New(slog.NewTextHandler(io.Discard, nil)), WithPublisher(s.publisher))
	s.connections.EXPECT().FindByConnectionID(gomock.Any(), "conn-9").Return(connectedSession(), nil)

	ctx := requestcontext.WithTime(context.Background(), now)
	resp := h.Process(ctx, []byte(`{"type":"Credential","data":{"connectionId":"conn-9","state":"done"}}`))
	s.True(resp.Received)
	s.Require().Len(s.publisher.events, 1)
	s.Equal(now, s.publisher.events[0].ReceivedAt)
	s.Equal("S1", s.publisher.events[0].SessionID)
}
