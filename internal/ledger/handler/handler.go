package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shebuilds/internal/ledger/events"
	"shebuilds/internal/ledger/models"
	"shebuilds/internal/ledger/service"
	"shebuilds/pkg/domain"
	dErrors "shebuilds/pkg/domain-errors"
	"shebuilds/pkg/platform/httputil"
	"shebuilds/pkg/requestcontext"
)

// Ledger is the mutating surface of the ledger service.
type Ledger interface {
	MintCredential(ctx context.Context, caller domain.Principal, req models.MintRequest) (models.CredentialID, error)
	BatchMintCredentials(ctx context.Context, caller domain.Principal, req models.BatchMintRequest) ([]models.CredentialID, error)
	RevokeCredential(ctx context.Context, caller domain.Principal, id models.CredentialID, reason string) error
	TransferFrom(ctx context.Context, caller domain.Principal, req models.TransferRequest) error
	SafeTransferFrom(ctx context.Context, caller domain.Principal, req models.TransferRequest, data []byte) error
	Burn(ctx context.Context, caller domain.Principal, id models.CredentialID) error
	GrantIssuerRole(ctx context.Context, caller, target domain.Principal) error
	RevokeIssuerRole(ctx context.Context, caller, target domain.Principal) error
}

// Query is the read surface of the ledger service.
type Query interface {
	GetCredential(ctx context.Context, id models.CredentialID) (*models.Credential, error)
	GetCredentialsByOwner(ctx context.Context, owner domain.Principal) (*service.OwnerCredentials, error)
	HasRole(ctx context.Context, p domain.Principal, role models.Role) (bool, error)
	Members(ctx context.Context, role models.Role) ([]domain.Principal, error)
	Collection(ctx context.Context) (*models.Collection, error)
}

// EventFeed serves committed events for polling clients.
type EventFeed interface {
	List(after uint64, limit int) []events.Record
	LastSeq() uint64
}

const (
	defaultEventPage = 100
	maxEventPage     = 500
)

// Handler serves the credential ledger endpoints.
type Handler struct {
	ledger Ledger
	query  Query
	feed   EventFeed
	logger *slog.Logger
}

func New(ledger Ledger, query Query, feed EventFeed, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ledger: ledger, query: query, feed: feed, logger: logger}
}

// RegisterPublic mounts the unauthenticated read routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/collection", h.HandleCollection)
	r.Get("/credentials/{id}", h.HandleGetCredential)
	r.Get("/owners/{address}/credentials", h.HandleOwnerCredentials)
	r.Get("/roles/{role}/members", h.HandleRoleMembers)
	r.Get("/roles/{role}/members/{address}", h.HandleHasRole)
	r.Get("/events", h.HandleEvents)
}

// RegisterAuthenticated mounts the mutating routes. r must already carry
// the bearer auth middleware.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/credentials", h.HandleMint)
	r.Post("/credentials/batch", h.HandleBatchMint)
	r.Post("/credentials/{id}/revoke", h.HandleRevoke)
	r.Post("/credentials/{id}/transfer", h.HandleTransfer)
	r.Post("/credentials/{id}/burn", h.HandleBurn)
	r.Post("/admin/issuers", h.HandleGrantIssuer)
	r.Delete("/admin/issuers/{address}", h.HandleRevokeIssuer)
}

func (h *Handler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	col, err := h.query.Collection(r.Context())
	if err != nil {
		h.fail(w, r, "failed to load collection", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &CollectionResponse{
		Name:        col.Name,
		Symbol:      col.Symbol,
		TotalSupply: col.TotalSupply,
	})
}

func (h *Handler) HandleGetCredential(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.query.GetCredential(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to get credential", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(c))
}

func (h *Handler) HandleOwnerCredentials(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParsePrincipal(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	oc, err := h.query.GetCredentialsByOwner(r.Context(), owner)
	if err != nil {
		h.fail(w, r, "failed to list credentials by owner", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOwnerCredentialsResponse(oc))
}

func (h *Handler) HandleHasRole(w http.ResponseWriter, r *http.Request) {
	role, err := models.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := domain.ParsePrincipal(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ok, err := h.query.HasRole(r.Context(), p, role)
	if err != nil {
		h.fail(w, r, "failed to check role", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &RoleResponse{Address: p.String(), Role: role.String(), HasRole: ok})
}

func (h *Handler) HandleRoleMembers(w http.ResponseWriter, r *http.Request) {
	role, err := models.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	members, err := h.query.Members(r.Context(), role)
	if err != nil {
		h.fail(w, r, "failed to list role members", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRoleMembersResponse(role, members))
}

// HandleEvents serves ?after=<seq>&limit=<n>.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var after uint64
	if v := q.Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "after must be a non-negative integer"))
			return
		}
		after = n
	}
	limit := defaultEventPage
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxEventPage)
	}
	httputil.WriteJSON(w, http.StatusOK, &EventsResponse{
		Events:  h.feed.List(after, limit),
		LastSeq: h.feed.LastSeq(),
	})
}

func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[MintCredentialRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	id, err := h.ledger.MintCredential(ctx, caller, req.toModel())
	if err != nil {
		h.fail(w, r, "failed to mint credential", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &MintCredentialResponse{ID: uint64(id)})
}

func (h *Handler) HandleBatchMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[BatchMintCredentialsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	ids, err := h.ledger.BatchMintCredentials(ctx, caller, req.toModel())
	if err != nil {
		h.fail(w, r, "failed to batch mint credentials", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &BatchMintCredentialsResponse{IDs: toUint64s(ids)})
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := models.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RevokeCredentialRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.ledger.RevokeCredential(ctx, caller, id, req.Reason); err != nil {
		h.fail(w, r, "failed to revoke credential", err)
		return
	}
	c, err := h.query.GetCredential(ctx, id)
	if err != nil {
		h.fail(w, r, "failed to load revoked credential", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(c))
}

// HandleTransfer always fails; the ledger decides between token_not_found
// and token_is_soulbound.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := models.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransferCredentialRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	transfer := models.TransferRequest{
		From:    domain.MustPrincipal(req.From),
		To:      domain.MustPrincipal(req.To),
		TokenID: id,
	}
	if req.Safe {
		err = h.ledger.SafeTransferFrom(ctx, caller, transfer, []byte(req.Data))
	} else {
		err = h.ledger.TransferFrom(ctx, caller, transfer)
	}
	if err == nil {
		err = dErrors.New(dErrors.CodeInternal, "transfer unexpectedly succeeded")
	}
	h.fail(w, r, "transfer rejected", err)
}

func (h *Handler) HandleBurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := models.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	err = h.ledger.Burn(ctx, caller, id)
	if err == nil {
		err = dErrors.New(dErrors.CodeInternal, "burn unexpectedly succeeded")
	}
	h.fail(w, r, "burn rejected", err)
}

func (h *Handler) HandleGrantIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[GrantIssuerRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	target := domain.MustPrincipal(req.Address)
	if err := h.ledger.GrantIssuerRole(ctx, caller, target); err != nil {
		h.fail(w, r, "failed to grant issuer role", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &RoleResponse{Address: target.String(), Role: models.RoleIssuer.String(), HasRole: true})
}

func (h *Handler) HandleRevokeIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	target, err := domain.ParsePrincipal(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.ledger.RevokeIssuerRole(ctx, caller, target); err != nil {
		h.fail(w, r, "failed to revoke issuer role", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &RoleResponse{Address: target.String(), Role: models.RoleIssuer.String(), HasRole: false})
}

// fail logs at a level matching the error class and writes the response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	attrs := []any{"request_id", requestcontext.RequestID(ctx), "error", err}
	if httputil.DomainCodeToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
