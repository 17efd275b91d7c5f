package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	ledgermodels "shebuilds/internal/ledger/models"
	"shebuilds/internal/metadata/models"
	dErrors "shebuilds/pkg/domain-errors"
	"shebuilds/pkg/platform/httputil"
	"shebuilds/pkg/requestcontext"
)

// Resolver loads a credential's metadata document.
type Resolver interface {
	Resolve(ctx context.Context, id ledgermodels.CredentialID) (*models.Resolved, error)
}

type AttributeResponse struct {
	TraitType string          `json:"trait_type"`
	Value     json.RawMessage `json:"value"`
}

type MetadataResponse struct {
	TokenID     string              `json:"token_id"`
	URI         string              `json:"uri"`
	Cached      bool                `json:"cached"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Image       string              `json:"image"`
	Attributes  []AttributeResponse `json:"attributes"`
}

type Handler struct {
	resolver Resolver
	logger   *slog.Logger
}

func New(resolver Resolver, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{resolver: resolver, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/credentials/{id}/metadata", h.HandleGetMetadata)
}

func (h *Handler) HandleGetMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ledgermodels.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.resolver.Resolve(ctx, id)
	if err != nil {
		attrs := []any{"request_id", requestcontext.RequestID(ctx), "token_id", id.String(), "error", err}
		if httputil.DomainCodeToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "failed to resolve metadata", attrs...)
		} else {
			h.logger.WarnContext(ctx, "failed to resolve metadata", attrs...)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toMetadataResponse(id, res))
}

func toMetadataResponse(id ledgermodels.CredentialID, res *models.Resolved) *MetadataResponse {
	attrs := make([]AttributeResponse, 0, len(res.Document.Attributes))
	for _, a := range res.Document.Attributes {
		attrs = append(attrs, AttributeResponse{TraitType: a.TraitType, Value: a.Value})
	}
	return &MetadataResponse{
		TokenID:     id.String(),
		URI:         res.URI,
		Cached:      res.Cached,
		Name:        res.Document.Name,
		Description: res.Document.Description,
		Image:       res.Document.Image,
		Attributes:  attrs,
	}
}
