package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"shebuilds/pkg/domain"
	"shebuilds/pkg/requestcontext"
)

type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(tokenString string) (*Claims, error) {
	args := m.Called(tokenString)
	if c := args.Get(0); c != nil {
		return c.(*Claims), args.Error(1)
	}
	return nil, args.Error(1)
}

type RequireAuthSuite struct {
	suite.Suite
	validator *MockTokenValidator
	handler   http.Handler
	seen      domain.Principal
	called    bool
}

func TestRequireAuthSuite(t *testing.T) {
	suite.Run(t, new(RequireAuthSuite))
}

func (s *RequireAuthSuite) SetupTest() {
	s.validator = new(MockTokenValidator)
	s.called = false
	s.seen = ""
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.handler = RequireAuth(s.validator, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.called = true
		s.seen, _ = requestcontext.Principal(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func (s *RequireAuthSuite) serve(header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/credentials", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *RequireAuthSuite) TestMissingHeader() {
	rec := s.serve("")
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.False(s.called)
	s.Contains(rec.Body.String(), `"error":"unauthorized"`)
}

func (s *RequireAuthSuite) TestInvalidToken() {
	s.validator.On("ValidateToken", "bad").Return(nil, errors.New("invalid token"))

	rec := s.serve("Bearer bad")
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.False(s.called)
	s.validator.AssertExpectations(s.T())
}

func (s *RequireAuthSuite) TestMalformedSubject() {
	s.validator.On("ValidateToken", "tok").Return(&Claims{Subject: "alice"}, nil)

	rec := s.serve("Bearer tok")
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.False(s.called)
}

func (s *RequireAuthSuite) TestValidTokenSetsPrincipal() {
	s.validator.On("ValidateToken", "tok").
		Return(&Claims{Subject: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", JTI: "j1"}, nil)

	rec := s.serve("Bearer tok")
	s.Equal(http.StatusOK, rec.Code)
	s.True(s.called)
	s.Equal(domain.Principal("0x70997970c51812dc3a010c7d01b50e0d17dc79c8"), s.seen)
}
