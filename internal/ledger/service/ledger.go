package service

import (
	"context"
	"fmt"
	"time"

	"shebuilds/internal/ledger/models"
	"shebuilds/internal/ledger/store"
	"shebuilds/internal/platform/tracer"
	"shebuilds/pkg/domain"
	dErrors "shebuilds/pkg/domain-errors"
)

// Bootstrap grants Admin and Issuer to admin. Running it again is a no-op,
// so it is safe on every process start.
func (s *Service) Bootstrap(ctx context.Context, admin domain.Principal) (err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanLedgerBootstrap, tracer.String(tracer.AttrCaller, admin.String()))
	defer func() {
		span.End(err)
		s.observe(ctx, "bootstrap", start, err, "admin", admin)
	}()

	if admin.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "bootstrap admin must be a non-zero principal")
	}

	now := s.timestamp(ctx)
	var pending pendingEvents
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		for _, role := range []models.Role{models.RoleAdmin, models.RoleIssuer} {
			changed, err := st.Roles.Grant(ctx, role, admin, now)
			if err != nil {
				return err
			}
			if changed {
				pending.add(models.RoleGranted(role, admin, admin, now))
			}
		}
		return s.commit(ctx, st, &pending)
	})
	if err != nil {
		return translate(err, "bootstrap")
	}
	s.recordRoleEvents(pending.events)
	return nil
}

// GrantIssuerRole adds target to the Issuer set. Admin only; idempotent.
func (s *Service) GrantIssuerRole(ctx context.Context, caller, target domain.Principal) error {
	return s.changeIssuer(ctx, caller, target, true)
}

// RevokeIssuerRole removes target from the Issuer set. Admin only; idempotent.
func (s *Service) RevokeIssuerRole(ctx context.Context, caller, target domain.Principal) error {
	return s.changeIssuer(ctx, caller, target, false)
}

func (s *Service) changeIssuer(ctx context.Context, caller, target domain.Principal, grant bool) (err error) {
	op, span := "revoke_issuer", tracer.SpanLedgerRevokeRole
	if grant {
		op, span = "grant_issuer", tracer.SpanLedgerGrantRole
	}
	start := time.Now()
	ctx, sp := s.tracer.Start(ctx, span,
		tracer.String(tracer.AttrCaller, caller.String()),
		tracer.String(tracer.AttrRole, models.RoleIssuer.String()),
	)
	defer func() {
		sp.End(err)
		s.observe(ctx, op, start, err, "caller", caller, "target", target)
	}()

	now := s.timestamp(ctx)
	var pending pendingEvents
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		if err := requireRole(ctx, st, models.RoleAdmin, caller); err != nil {
			return err
		}
		if target.IsZero() {
			return dErrors.New(dErrors.CodeInvalidInput, "target must be a non-zero principal")
		}
		if grant {
			changed, err := st.Roles.Grant(ctx, models.RoleIssuer, target, now)
			if err != nil {
				return err
			}
			if changed {
				pending.add(models.RoleGranted(models.RoleIssuer, target, caller, now))
			}
		} else {
			changed, err := st.Roles.Revoke(ctx, models.RoleIssuer, target)
			if err != nil {
				return err
			}
			if changed {
				pending.add(models.RoleRevoked(models.RoleIssuer, target, caller, now))
			}
		}
		return s.commit(ctx, st, &pending)
	})
	if err != nil {
		return translate(err, op)
	}
	s.recordRoleEvents(pending.events)
	return nil
}

// MintCredential issues one credential to req.Recipient with issuer = caller.
func (s *Service) MintCredential(ctx context.Context, caller domain.Principal, req models.MintRequest) (id models.CredentialID, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanLedgerMint, tracer.String(tracer.AttrCaller, caller.String()))
	defer func() {
		span.End(err)
		attrs := []any{"caller", caller, "recipient", req.Recipient}
		if err == nil {
			attrs = append(attrs, "token_id", uint64(id))
		}
		s.observe(ctx, "mint", start, err, attrs...)
	}()

	now := s.timestamp(ctx)
	var pending pendingEvents
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		if err := requireRole(ctx, st, models.RoleIssuer, caller); err != nil {
			return err
		}
		c, err := newCredential(caller, req, now)
		if err != nil {
			return err
		}
		if id, err = st.Credentials.Allocate(ctx, c); err != nil {
			return err
		}
		pending.add(models.CredentialIssued(c))
		return s.commit(ctx, st, &pending)
	})
	if err != nil {
		return 0, translate(err, "mint credential")
	}
	span.SetAttributes(tracer.String(tracer.AttrTokenID, id.String()))
	s.metrics.IncIssued(1)
	return id, nil
}

// BatchMintCredentials mints every item or none. Every item is validated
// before the first allocation; ids and events follow input order.
func (s *Service) BatchMintCredentials(ctx context.Context, caller domain.Principal, req models.BatchMintRequest) (ids []models.CredentialID, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanLedgerBatchMint,
		tracer.String(tracer.AttrCaller, caller.String()),
		tracer.Int(tracer.AttrBatchSize, len(req.Recipients)),
	)
	defer func() {
		span.End(err)
		s.observe(ctx, "batch_mint", start, err, "caller", caller, "batch_size", len(ids))
	}()

	now := s.timestamp(ctx)
	var pending pendingEvents
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		if err := requireRole(ctx, st, models.RoleIssuer, caller); err != nil {
			return err
		}
		if !req.LengthsMatch() {
			return dErrors.New(dErrors.CodeArrayLengthMismatch, fmt.Sprintf(
				"batch arrays differ in length: recipients=%d categories=%d proficiencies=%d uris=%d",
				len(req.Recipients), len(req.Categories), len(req.Proficiencies), len(req.MetadataURIs)))
		}

		items := req.Items()
		creds := make([]*models.Credential, len(items))
		for i, item := range items {
			c, err := newCredential(caller, item, now)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("item %d: %s", i, err.Error()))
			}
			creds[i] = c
		}

		allocated := make([]models.CredentialID, 0, len(creds))
		for _, c := range creds {
			id, err := st.Credentials.Allocate(ctx, c)
			if err != nil {
				return err
			}
			allocated = append(allocated, id)
			pending.add(models.CredentialIssued(c))
		}
		if err := s.commit(ctx, st, &pending); err != nil {
			return err
		}
		ids = allocated
		return nil
	})
	if err != nil {
		ids = nil
		return nil, translate(err, "batch mint")
	}
	s.metrics.IncIssued(len(ids))
	s.metrics.ObserveBatchSize(len(ids))
	return ids, nil
}

// RevokeCredential moves a credential to the revoked state. Any issuer may
// revoke any credential.
func (s *Service) RevokeCredential(ctx context.Context, caller domain.Principal, id models.CredentialID, reason string) (err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanLedgerRevoke,
		tracer.String(tracer.AttrCaller, caller.String()),
		tracer.String(tracer.AttrTokenID, id.String()),
	)
	defer func() {
		span.End(err)
		s.observe(ctx, "revoke", start, err, "caller", caller, "token_id", uint64(id))
	}()

	now := s.timestamp(ctx)
	var pending pendingEvents
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		if err := requireRole(ctx, st, models.RoleIssuer, caller); err != nil {
			return err
		}
		if err := st.Credentials.MarkRevoked(ctx, id, reason, now); err != nil {
			return err
		}
		pending.add(models.CredentialRevoked(id, reason, now))
		return s.commit(ctx, st, &pending)
	})
	if err != nil {
		return translate(err, "revoke credential")
	}
	s.metrics.IncRevoked()
	return nil
}

// TransferFrom never succeeds. For an existing credential it records a
// SoulboundTransferAttempt and fails token_is_soulbound; otherwise it fails
// token_not_found. Ownership is never touched.
func (s *Service) TransferFrom(ctx context.Context, caller domain.Principal, req models.TransferRequest) error {
	return s.attemptTransfer(ctx, "transfer_from", caller, req.TokenID, req.From, req.To)
}

// SafeTransferFrom behaves exactly like TransferFrom; data is ignored.
func (s *Service) SafeTransferFrom(ctx context.Context, caller domain.Principal, req models.TransferRequest, _ []byte) error {
	return s.attemptTransfer(ctx, "safe_transfer_from", caller, req.TokenID, req.From, req.To)
}

// Burn is a transfer from the current owner to the zero principal, so it
// fails like any other transfer.
func (s *Service) Burn(ctx context.Context, caller domain.Principal, id models.CredentialID) error {
	return s.attemptTransfer(ctx, "burn", caller, id, "", domain.ZeroPrincipal)
}

// attemptTransfer stages the attempt event in a committed transaction and
// then reports the failure. An empty from means the current owner.
func (s *Service) attemptTransfer(ctx context.Context, op string, caller domain.Principal, id models.CredentialID, from, to domain.Principal) (err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanLedgerTransfer,
		tracer.String(tracer.AttrOperation, op),
		tracer.String(tracer.AttrCaller, caller.String()),
		tracer.String(tracer.AttrTokenID, id.String()),
	)
	defer func() {
		span.End(err)
		s.observe(ctx, op, start, err, "caller", caller, "token_id", uint64(id), "from", from, "to", to)
	}()

	now := s.timestamp(ctx)
	var pending pendingEvents
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		owner, err := st.Credentials.OwnerOf(ctx, id)
		if err != nil {
			return err
		}
		if from == "" {
			from = owner
		}
		pending.add(models.SoulboundTransferAttempt(id, from, to, now))
		return s.commit(ctx, st, &pending)
	})
	if err != nil {
		return translate(err, op)
	}
	s.metrics.IncTransferAttempt()
	span.AddEvent(tracer.EventOutboxStaged)
	return dErrors.New(dErrors.CodeTokenIsSoulbound, fmt.Sprintf("credential %s is soulbound and cannot be transferred", id))
}

func (s *Service) recordRoleEvents(events []models.Event) {
	for _, e := range events {
		switch e.Type {
		case models.EventRoleGranted:
			s.metrics.IncRoleChange(e.Role.String(), "granted")
		case models.EventRoleRevoked:
			s.metrics.IncRoleChange(e.Role.String(), "revoked")
		}
	}
}

// newCredential validates one mint item. Category and URI are opaque.
func newCredential(issuer domain.Principal, req models.MintRequest, now time.Time) (*models.Credential, error) {
	if req.Recipient.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recipient must be a non-zero principal")
	}
	p, err := models.ParseProficiency(req.Proficiency)
	if err != nil {
		return nil, err
	}
	return &models.Credential{
		Owner:         req.Recipient,
		SkillCategory: req.SkillCategory,
		Proficiency:   p,
		MetadataURI:   req.MetadataURI,
		Issuer:        issuer,
		IssuedAt:      now,
	}, nil
}
