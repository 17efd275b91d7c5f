package handler

import (
	"strings"
	"time"
	"unicode"

	"shebuilds/internal/ledger/events"
	"shebuilds/internal/ledger/models"
	"shebuilds/internal/ledger/service"
	"shebuilds/pkg/domain"
	limits "shebuilds/pkg/platform/validation"
	"shebuilds/pkg/validation"
)

type MintCredentialRequest struct {
	Recipient     string `json:"recipient" validate:"required,principal"`
	SkillCategory string `json:"skill_category" validate:"required,notblank"`
	MetadataURI   string `json:"metadata_uri" validate:"required,notblank"`

	// Range checked by the ledger so it reports invalid_proficiency.
	Proficiency int `json:"proficiency"`
}

func (r *MintCredentialRequest) Sanitize() {
	r.SkillCategory = stripControl(r.SkillCategory)
}

func (r *MintCredentialRequest) Normalize() {
	r.Recipient = strings.TrimSpace(r.Recipient)
	r.SkillCategory = strings.TrimSpace(r.SkillCategory)
	r.MetadataURI = strings.TrimSpace(r.MetadataURI)
}

func (r *MintCredentialRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	if err := limits.CheckStringLength("skill_category", r.SkillCategory, limits.MaxSkillCategoryLength); err != nil {
		return err
	}
	return limits.CheckStringLength("metadata_uri", r.MetadataURI, limits.MaxMetadataURILength)
}

func (r *MintCredentialRequest) toModel() models.MintRequest {
	return models.MintRequest{
		Recipient:     domain.MustPrincipal(r.Recipient),
		SkillCategory: r.SkillCategory,
		Proficiency:   r.Proficiency,
		MetadataURI:   r.MetadataURI,
	}
}

// BatchMintCredentialsRequest carries parallel arrays. Unequal lengths are
// left for the ledger to reject as array_length_mismatch.
type BatchMintCredentialsRequest struct {
	Recipients    []string `json:"recipients" validate:"dive,principal"`
	Categories    []string `json:"categories" validate:"dive,notblank"`
	Proficiencies []int    `json:"proficiencies"`
	MetadataURIs  []string `json:"metadata_uris" validate:"dive,notblank"`
}

func (r *BatchMintCredentialsRequest) Sanitize() {
	for i := range r.Categories {
		r.Categories[i] = stripControl(r.Categories[i])
	}
}

func (r *BatchMintCredentialsRequest) Normalize() {
	for i := range r.Recipients {
		r.Recipients[i] = strings.TrimSpace(r.Recipients[i])
	}
	for i := range r.Categories {
		r.Categories[i] = strings.TrimSpace(r.Categories[i])
	}
	for i := range r.MetadataURIs {
		r.MetadataURIs[i] = strings.TrimSpace(r.MetadataURIs[i])
	}
}

func (r *BatchMintCredentialsRequest) Validate() error {
	counts := []struct {
		field string
		n     int
	}{
		{"recipients", len(r.Recipients)},
		{"categories", len(r.Categories)},
		{"proficiencies", len(r.Proficiencies)},
		{"metadata_uris", len(r.MetadataURIs)},
	}
	for _, c := range counts {
		if err := limits.CheckSliceCount(c.field, c.n, limits.MaxBatchSize); err != nil {
			return err
		}
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	if err := limits.CheckEachStringLength("categories", r.Categories, limits.MaxSkillCategoryLength); err != nil {
		return err
	}
	return limits.CheckEachStringLength("metadata_uris", r.MetadataURIs, limits.MaxMetadataURILength)
}

func (r *BatchMintCredentialsRequest) toModel() models.BatchMintRequest {
	recipients := make([]domain.Principal, len(r.Recipients))
	for i, s := range r.Recipients {
		recipients[i] = domain.MustPrincipal(s)
	}
	return models.BatchMintRequest{
		Recipients:    recipients,
		Categories:    r.Categories,
		Proficiencies: r.Proficiencies,
		MetadataURIs:  r.MetadataURIs,
	}
}

type RevokeCredentialRequest struct {
	Reason string `json:"reason"`
}

func (r *RevokeCredentialRequest) Sanitize() {
	r.Reason = stripControl(r.Reason)
}

func (r *RevokeCredentialRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *RevokeCredentialRequest) Validate() error {
	return limits.CheckStringLength("reason", r.Reason, limits.MaxReasonLength)
}

type TransferCredentialRequest struct {
	From string `json:"from" validate:"required,principal"`
	To   string `json:"to" validate:"required,principal"`
	// Safe selects safeTransferFrom. The outcome is the same.
	Safe bool   `json:"safe,omitempty"`
	Data string `json:"data,omitempty"`
}

func (r *TransferCredentialRequest) Normalize() {
	r.From = strings.TrimSpace(r.From)
	r.To = strings.TrimSpace(r.To)
}

func (r *TransferCredentialRequest) Validate() error {
	return validation.Validate(r)
}

type GrantIssuerRequest struct {
	Address string `json:"address" validate:"required,principal"`
}

func (r *GrantIssuerRequest) Normalize() {
	r.Address = strings.TrimSpace(r.Address)
}

func (r *GrantIssuerRequest) Validate() error {
	return validation.Validate(r)
}

type CredentialResponse struct {
	ID               uint64     `json:"id"`
	Owner            string     `json:"owner"`
	SkillCategory    string     `json:"skill_category"`
	Proficiency      int        `json:"proficiency"`
	MetadataURI      string     `json:"metadata_uri"`
	Issuer           string     `json:"issuer"`
	IssuedAt         time.Time  `json:"issued_at"`
	Revoked          bool       `json:"revoked"`
	State            string     `json:"state"`
	RevocationReason string     `json:"revocation_reason,omitempty"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
}

func toCredentialResponse(c *models.Credential) *CredentialResponse {
	return &CredentialResponse{
		ID:               uint64(c.ID),
		Owner:            c.Owner.String(),
		SkillCategory:    c.SkillCategory,
		Proficiency:      int(c.Proficiency),
		MetadataURI:      c.MetadataURI,
		Issuer:           c.Issuer.String(),
		IssuedAt:         c.IssuedAt,
		Revoked:          c.Revoked,
		State:            string(c.State()),
		RevocationReason: c.RevocationReason,
		RevokedAt:        c.RevokedAt,
	}
}

type MintCredentialResponse struct {
	ID uint64 `json:"id"`
}

type BatchMintCredentialsResponse struct {
	IDs []uint64 `json:"ids"`
}

type OwnerCredentialsResponse struct {
	Owner   string   `json:"owner"`
	IDs     []uint64 `json:"ids"`
	Balance int      `json:"balance"`
}

func toOwnerCredentialsResponse(oc *service.OwnerCredentials) *OwnerCredentialsResponse {
	return &OwnerCredentialsResponse{Owner: oc.Owner.String(), IDs: toUint64s(oc.IDs), Balance: oc.Balance}
}

type CollectionResponse struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	TotalSupply uint64 `json:"total_supply"`
}

type RoleResponse struct {
	Address string `json:"address"`
	Role    string `json:"role"`
	HasRole bool   `json:"has_role"`
}

type RoleMembersResponse struct {
	Role    string   `json:"role"`
	Members []string `json:"members"`
}

func toRoleMembersResponse(role models.Role, members []domain.Principal) *RoleMembersResponse {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.String()
	}
	return &RoleMembersResponse{Role: role.String(), Members: out}
}

type EventsResponse struct {
	Events  []events.Record `json:"events"`
	LastSeq uint64          `json:"last_seq"`
}

// stripControl drops control characters from free text that ends up in
// events, logs and the UI.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func toUint64s(ids []models.CredentialID) []uint64 {
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out
}
