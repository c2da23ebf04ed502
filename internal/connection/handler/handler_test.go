package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"credbridge/internal/connection/handler/mocks"
	"credbridge/internal/connection/models"
	dErrors "credbridge/pkg/domain-errors"
	"credbridge/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/connection-mocks.go -package=mocks
type HandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockService, *mocks.MockProofReader) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	proofs := mocks.NewMockProofReader(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(svc, proofs, logger, nil)
	r := chi.NewRouter()
	h.Register(r)
	return r, svc, proofs
}

func sampleSession() *models.Session {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	return &models.Session{
		SessionID:     "3f1b2c4d-0000-4000-8000-000000000001",
		InvitationID:  "inv-1",
		InvitationURL: "https://platform.example/oob?c_i=abc",
		Status:        models.StatusInvitation,
		RequestType:   "proof",
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(30 * time.Minute),
	}
}

func (s *HandlerSuite) TestCreateSession() {
	s.Run("returns 201 with the invitation", func() {
		router, svc, _ := newTestRouter(s.T())
		session := sampleSession()
		svc.EXPECT().StartSession(gomock.Any(), "proof", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, meta map[string]string) (*models.Session, error) {
				s.Equal("kiosk", meta["channel"])
				s.Equal("test-agent", meta["user_agent"])
				return session, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sessions", map[string]any{
			"requestType": "proof",
			"metadata":    map[string]string{"channel": "kiosk"},
		})
		req.Header.Set("User-Agent", "test-agent")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[models.CreateSessionResponse](s.T(), rr)
		s.Equal(session.SessionID, resp.SessionID)
		s.Equal(session.InvitationURL, resp.InvitationURL)
		s.Equal(models.StatusInvitation, resp.Status)
		s.True(session.ExpiresAt.Equal(resp.ExpiresAt))
	})

	s.Run("browser details are derived from the user agent", func() {
		router, svc, _ := newTestRouter(s.T())
		svc.EXPECT().StartSession(gomock.Any(), "proof", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, meta map[string]string) (*models.Session, error) {
				s.Contains(meta["browser"], "Chrome")
				s.Equal("true", meta["mobile"])
				s.NotEmpty(meta["os"])
				return sampleSession(), nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sessions", map[string]any{"requestType": "proof"})
		req.Header.Set("User-Agent", "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	})

	s.Run("missing requestType is a validation error", func() {
		router, _, _ := newTestRouter(s.T())
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sessions", map[string]any{})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("upstream failure maps to 502", func() {
		router, svc, _ := newTestRouter(s.T())
		svc.EXPECT().StartSession(gomock.Any(), "proof", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUpstream, "platform create_invitation failed: status 503"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sessions", map[string]any{"requestType": "proof"})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadGateway, string(dErrors.CodeUpstream))
	})
}

func (s *HandlerSuite) TestGetSession() {
	s.Run("returns the session view", func() {
		router, svc, _ := newTestRouter(s.T())
		session := sampleSession()
		svc.EXPECT().GetSession(gomock.Any(), session.SessionID).Return(session, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/sessions/"+session.SessionID))
		testutil.AssertStatusOK(s.T(), rr)
		got := testutil.UnmarshalResponse[models.Session](s.T(), rr)
		s.Equal("inv-1", got.InvitationID)
		s.Equal(models.StatusInvitation, got.Status)
	})

	s.Run("unknown session is 404", func() {
		router, svc, _ := newTestRouter(s.T())
		svc.EXPECT().GetSession(gomock.Any(), "missing").Return(nil, dErrors.New(dErrors.CodeNotFound, "session not found"))

		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/sessions/missing"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})
}

func (s *HandlerSuite) TestSessionStatus() {
	s.Run("includes latest proof", func() {
		router, svc, proofs := newTestRouter(s.T())
		session := sampleSession()
		session.Status = models.StatusConnected
		session.ConnectionID = "conn-9"
		svc.EXPECT().GetSession(gomock.Any(), session.SessionID).Return(session, nil)
		proofs.EXPECT().LatestProofStatus(gomock.Any(), session.SessionID).
			Return(&models.ProofStatus{ProofID: "proof-1", Status: "presentation-received"}, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/sessions/"+session.SessionID+"/status"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[models.StatusResponse](s.T(), rr)
		s.Equal(models.StatusConnected, resp.Status)
		s.Equal("conn-9", resp.ConnectionID)
		s.Require().NotNil(resp.Proof)
		s.Equal("presentation-received", resp.Proof.Status)
	})

	s.Run("no proof yet omits the proof block", func() {
		router, svc, proofs := newTestRouter(s.T())
		session := sampleSession()
		svc.EXPECT().GetSession(gomock.Any(), session.SessionID).Return(session, nil)
		proofs.EXPECT().LatestProofStatus(gomock.Any(), session.SessionID).Return(nil, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/sessions/"+session.SessionID+"/status"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[models.StatusResponse](s.T(), rr)
		s.Nil(resp.Proof)
	})
}

func (s *HandlerSuite) TestSessionQR() {
	s.Run("renders a png", func() {
		router, svc, _ := newTestRouter(s.T())
		session := sampleSession()
		svc.EXPECT().GetSession(gomock.Any(), session.SessionID).Return(session, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/sessions/"+session.SessionID+"/qr"))
		testutil.AssertStatusOK(s.T(), rr)
		s.Equal("image/png", rr.Header().Get("Content-Type"))
		s.True(bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")))
	})

	s.Run("expired session is a conflict", func() {
		router, svc, _ := newTestRouter(s.T())
		session := sampleSession()
		session.Status = models.StatusAbandoned
		svc.EXPECT().GetSession(gomock.Any(), session.SessionID).Return(session, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/sessions/"+session.SessionID+"/qr"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict))
	})
}
