package handler_test

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Ledger,Query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"shebuilds/internal/ledger/events"
	"shebuilds/internal/ledger/handler"
	"shebuilds/internal/ledger/handler/mocks"
	"shebuilds/internal/ledger/models"
	"shebuilds/internal/ledger/service"
	"shebuilds/pkg/domain"
	dErrors "shebuilds/pkg/domain-errors"
	"shebuilds/pkg/platform/httputil"
	"shebuilds/pkg/requestcontext"
)

var (
	caller    = domain.MustPrincipal("0x00000000000000000000000000000000000000e1")
	recipient = domain.MustPrincipal("0x00000000000000000000000000000000000000f1")
	other     = domain.MustPrincipal("0x00000000000000000000000000000000000000f2")
)

type HandlerSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	ledger *mocks.MockLedger
	query  *mocks.MockQuery
	feed   *events.Recorder
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ledger = mocks.NewMockLedger(s.ctrl)
	s.query = mocks.NewMockQuery(s.ctrl)
	s.feed = events.NewRecorder(16)

	h := handler.New(s.ledger, s.query, s.feed, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	h.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(requestcontext.WithPrincipal(req.Context(), caller)))
			})
		})
		h.RegisterAuthenticated(r)
	})
	s.router = r
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var body httputil.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func (s *HandlerSuite) TestMint() {
	s.Run("created", func() {
		s.ledger.EXPECT().MintCredential(gomock.Any(), caller, models.MintRequest{
			Recipient: recipient, SkillCategory: "React", Proficiency: 5, MetadataURI: "ipfs://react",
		}).Return(models.CredentialID(0), nil)

		rec := s.do(http.MethodPost, "/credentials", map[string]any{
			"recipient":      "0x00000000000000000000000000000000000000F1",
			"skill_category": " React ", "proficiency": 5, "metadata_uri": "ipfs://react",
		})
		s.Equal(http.StatusCreated, rec.Code)
		s.JSONEq(`{"id":0}`, rec.Body.String())
	})

	s.Run("invalid recipient never reaches the ledger", func() {
		rec := s.do(http.MethodPost, "/credentials", map[string]any{
			"recipient": "bob", "skill_category": "Go", "proficiency": 3, "metadata_uri": "ipfs://go",
		})
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("validation_failed", s.errorCode(rec))
	})

	s.Run("ledger errors map to status", func() {
		cases := []struct {
			code   dErrors.Code
			status int
		}{
			{dErrors.CodeNotAuthorized, http.StatusForbidden},
			{dErrors.CodeInvalidProficiency, http.StatusBadRequest},
			{dErrors.CodeInternal, http.StatusInternalServerError},
		}
		for _, tc := range cases {
			s.ledger.EXPECT().MintCredential(gomock.Any(), caller, gomock.Any()).
				Return(models.CredentialID(0), dErrors.New(tc.code, "x"))
			rec := s.do(http.MethodPost, "/credentials", map[string]any{
				"recipient": recipient.String(), "skill_category": "Go", "proficiency": 9, "metadata_uri": "u",
			})
			s.Equal(tc.status, rec.Code, tc.code)
			s.Equal(string(tc.code), s.errorCode(rec))
		}
	})

	s.Run("malformed body", func() {
		req := httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("bad_request", s.errorCode(rec))
	})
}

func (s *HandlerSuite) TestBatchMint() {
	s.Run("passes mismatched arrays through to the ledger", func() {
		s.ledger.EXPECT().BatchMintCredentials(gomock.Any(), caller, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ domain.Principal, req models.BatchMintRequest) ([]models.CredentialID, error) {
				s.False(req.LengthsMatch())
				return nil, dErrors.New(dErrors.CodeArrayLengthMismatch, "mismatch")
			})
		rec := s.do(http.MethodPost, "/credentials/batch", map[string]any{
			"recipients": []string{recipient.String(), other.String()}, "categories": []string{"Go"},
			"proficiencies": []int{1, 2}, "metadata_uris": []string{"a", "b"},
		})
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("array_length_mismatch", s.errorCode(rec))
	})

	s.Run("returns ids in order", func() {
		s.ledger.EXPECT().BatchMintCredentials(gomock.Any(), caller, gomock.Any()).
			Return([]models.CredentialID{4, 5}, nil)
		rec := s.do(http.MethodPost, "/credentials/batch", map[string]any{
			"recipients": []string{recipient.String(), other.String()}, "categories": []string{"Go", "Rust"},
			"proficiencies": []int{1, 2}, "metadata_uris": []string{"a", "b"},
		})
		s.Equal(http.StatusCreated, rec.Code)
		s.JSONEq(`{"ids":[4,5]}`, rec.Body.String())
	})

	s.Run("over the batch limit", func() {
		n := 101
		recipients := make([]string, n)
		cats := make([]string, n)
		profs := make([]int, n)
		uris := make([]string, n)
		for i := range n {
			recipients[i], cats[i], profs[i], uris[i] = recipient.String(), "Go", 1, fmt.Sprintf("u%d", i)
		}
		rec := s.do(http.MethodPost, "/credentials/batch", map[string]any{
			"recipients": recipients, "categories": cats, "proficiencies": profs, "metadata_uris": uris,
		})
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("validation_failed", s.errorCode(rec))
	})
}

func (s *HandlerSuite) TestRevoke() {
	revokedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ledger.EXPECT().RevokeCredential(gomock.Any(), caller, models.CredentialID(3), "Fraud detected").Return(nil)
	s.query.EXPECT().GetCredential(gomock.Any(), models.CredentialID(3)).Return(&models.Credential{
		ID: 3, Owner: recipient, Proficiency: 2, Issuer: caller, Revoked: true,
		RevocationReason: "Fraud detected", RevokedAt: &revokedAt,
	}, nil)

	rec := s.do(http.MethodPost, "/credentials/3/revoke", map[string]string{"reason": "Fraud detected"})
	s.Equal(http.StatusOK, rec.Code)
	var body handler.CredentialResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.True(body.Revoked)
	s.Equal("revoked", body.State)

	s.ledger.EXPECT().RevokeCredential(gomock.Any(), caller, models.CredentialID(3), "again").
		Return(dErrors.New(dErrors.CodeTokenAlreadyRevoked, "already"))
	rec = s.do(http.MethodPost, "/credentials/3/revoke", map[string]string{"reason": "again"})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/credentials/abc/revoke", map[string]string{"reason": "x"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("invalid_input", s.errorCode(rec))
}

func (s *HandlerSuite) TestFreeTextIsStrippedOfControlCharacters() {
	s.ledger.EXPECT().RevokeCredential(gomock.Any(), caller, models.CredentialID(4), "Fraud detected").Return(nil)
	s.query.EXPECT().GetCredential(gomock.Any(), models.CredentialID(4)).Return(&models.Credential{
		ID: 4, Owner: recipient, Proficiency: 2, Issuer: caller, Revoked: true, RevocationReason: "Fraud detected",
	}, nil)
	rec := s.do(http.MethodPost, "/credentials/4/revoke", map[string]string{"reason": "Fraud\x00 detected\n\x1b"})
	s.Equal(http.StatusOK, rec.Code)

	s.ledger.EXPECT().MintCredential(gomock.Any(), caller, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Principal, req models.MintRequest) (models.CredentialID, error) {
			s.Equal("React", req.SkillCategory)
			return 5, nil
		})
	rec = s.do(http.MethodPost, "/credentials", map[string]any{
		"recipient": recipient.String(), "skill_category": "Re\tact\r\n", "proficiency": 3, "metadata_uri": "ipfs://react",
	})
	s.Equal(http.StatusCreated, rec.Code)
}

func (s *HandlerSuite) TestTransferAndBurnAlwaysFail() {
	s.ledger.EXPECT().TransferFrom(gomock.Any(), caller, models.TransferRequest{From: recipient, To: other, TokenID: 1}).
		Return(dErrors.New(dErrors.CodeTokenIsSoulbound, "soulbound"))
	rec := s.do(http.MethodPost, "/credentials/1/transfer", map[string]string{"from": recipient.String(), "to": other.String()})
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("token_is_soulbound", s.errorCode(rec))

	s.ledger.EXPECT().SafeTransferFrom(gomock.Any(), caller, gomock.Any(), []byte("0x")).
		Return(dErrors.New(dErrors.CodeTokenNotFound, "missing"))
	rec = s.do(http.MethodPost, "/credentials/9/transfer", map[string]any{
		"from": recipient.String(), "to": other.String(), "safe": true, "data": "0x",
	})
	s.Equal(http.StatusNotFound, rec.Code)

	s.ledger.EXPECT().Burn(gomock.Any(), caller, models.CredentialID(1)).
		Return(dErrors.New(dErrors.CodeTokenIsSoulbound, "soulbound"))
	rec = s.do(http.MethodPost, "/credentials/1/burn", nil)
	s.Equal(http.StatusForbidden, rec.Code)

	s.ledger.EXPECT().Burn(gomock.Any(), caller, models.CredentialID(2)).Return(nil)
	rec = s.do(http.MethodPost, "/credentials/2/burn", nil)
	s.Equal(http.StatusInternalServerError, rec.Code)
}

func (s *HandlerSuite) TestIssuerAdministration() {
	s.ledger.EXPECT().GrantIssuerRole(gomock.Any(), caller, other).Return(nil)
	rec := s.do(http.MethodPost, "/admin/issuers", map[string]string{"address": other.String()})
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(fmt.Sprintf(`{"address":%q,"role":"ISSUER_ROLE","has_role":true}`, other), rec.Body.String())

	s.ledger.EXPECT().RevokeIssuerRole(gomock.Any(), caller, other).
		Return(dErrors.New(dErrors.CodeNotAuthorized, "admin only"))
	rec = s.do(http.MethodDelete, "/admin/issuers/"+other.String(), nil)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("not_authorized", s.errorCode(rec))
}

func (s *HandlerSuite) TestReads() {
	s.Run("credential", func() {
		s.query.EXPECT().GetCredential(gomock.Any(), models.CredentialID(0)).Return(&models.Credential{
			ID: 0, Owner: recipient, SkillCategory: "React", Proficiency: 5, MetadataURI: "ipfs://react", Issuer: caller,
		}, nil)
		rec := s.do(http.MethodGet, "/credentials/0", nil)
		s.Equal(http.StatusOK, rec.Code)
		var body handler.CredentialResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal("React", body.SkillCategory)
		s.Equal("active", body.State)
	})

	s.Run("missing credential", func() {
		s.query.EXPECT().GetCredential(gomock.Any(), models.CredentialID(7)).
			Return(nil, dErrors.New(dErrors.CodeTokenNotFound, "missing"))
		rec := s.do(http.MethodGet, "/credentials/7", nil)
		s.Equal(http.StatusNotFound, rec.Code)
		s.Equal("token_not_found", s.errorCode(rec))
	})

	s.Run("owner credentials", func() {
		s.query.EXPECT().GetCredentialsByOwner(gomock.Any(), recipient).Return(&service.OwnerCredentials{
			Owner: recipient, IDs: []models.CredentialID{0, 2, 5}, Balance: 3,
		}, nil)
		rec := s.do(http.MethodGet, "/owners/"+recipient.String()+"/credentials", nil)
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(fmt.Sprintf(`{"owner":%q,"ids":[0,2,5],"balance":3}`, recipient), rec.Body.String())
	})

	s.Run("has role", func() {
		s.query.EXPECT().HasRole(gomock.Any(), caller, models.RoleIssuer).Return(true, nil)
		rec := s.do(http.MethodGet, "/roles/issuer/members/"+caller.String(), nil)
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"has_role":true`)

		rec = s.do(http.MethodGet, "/roles/owner/members/"+caller.String(), nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("role members", func() {
		s.query.EXPECT().Members(gomock.Any(), models.RoleAdmin).Return([]domain.Principal{caller}, nil)
		rec := s.do(http.MethodGet, "/roles/admin/members", nil)
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(fmt.Sprintf(`{"role":"ADMIN_ROLE","members":[%q]}`, caller), rec.Body.String())
	})

	s.Run("collection", func() {
		s.query.EXPECT().Collection(gomock.Any()).Return(&models.Collection{
			Name: models.CollectionName, Symbol: models.CollectionSymbol, TotalSupply: 2,
		}, nil)
		rec := s.do(http.MethodGet, "/collection", nil)
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"name":"SheBuilds Skill NFT","symbol":"SBSNFT","total_supply":2}`, rec.Body.String())
	})
}

func (s *HandlerSuite) TestEvents() {
	id := models.CredentialID(0)
	s.feed.Publish(context.Background(), []models.Event{
		{Type: models.EventCredentialIssued, TokenID: &id},
		{Type: models.EventCredentialRevoked, TokenID: &id, Reason: "r"},
	})

	rec := s.do(http.MethodGet, "/events?after=1", nil)
	s.Equal(http.StatusOK, rec.Code)
	var body handler.EventsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Require().Len(body.Events, 1)
	s.Equal(models.EventCredentialRevoked, body.Events[0].Event.Type)
	s.Equal(uint64(2), body.LastSeq)

	rec = s.do(http.MethodGet, "/events?after=-1", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodGet, "/events?limit=0", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}
