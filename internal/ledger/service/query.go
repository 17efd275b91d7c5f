package service

import (
	"context"

	"shebuilds/internal/ledger/models"
	"shebuilds/internal/ledger/store"
	"shebuilds/pkg/domain"
)

// Query serves read-only views. Every read runs inside View, so it observes
// either the state before a mutation or after it.
type Query struct {
	tx TxRunner
}

func NewQuery(tx TxRunner) *Query {
	return &Query{tx: tx}
}

// OwnerCredentials is an owner's credential ids in mint order.
type OwnerCredentials struct {
	Owner   domain.Principal
	IDs     []models.CredentialID
	Balance int
}

func (q *Query) GetCredential(ctx context.Context, id models.CredentialID) (*models.Credential, error) {
	var c *models.Credential
	err := q.tx.View(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		c, err = st.Credentials.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, translate(err, "get credential")
	}
	return c, nil
}

// GetCredentialsByOwner returns an empty list for owners with nothing minted.
func (q *Query) GetCredentialsByOwner(ctx context.Context, owner domain.Principal) (*OwnerCredentials, error) {
	var ids []models.CredentialID
	err := q.tx.View(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		ids, err = st.Credentials.ListIDsByOwner(ctx, owner)
		return err
	})
	if err != nil {
		return nil, translate(err, "list credentials by owner")
	}
	if ids == nil {
		ids = []models.CredentialID{}
	}
	return &OwnerCredentials{Owner: owner, IDs: ids, Balance: len(ids)}, nil
}

func (q *Query) TotalSupply(ctx context.Context) (uint64, error) {
	var n uint64
	err := q.tx.View(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		n, err = st.Credentials.Count(ctx)
		return err
	})
	if err != nil {
		return 0, translate(err, "total supply")
	}
	return n, nil
}

func (q *Query) OwnerOf(ctx context.Context, id models.CredentialID) (domain.Principal, error) {
	var owner domain.Principal
	err := q.tx.View(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		owner, err = st.Credentials.OwnerOf(ctx, id)
		return err
	})
	if err != nil {
		return "", translate(err, "owner of")
	}
	return owner, nil
}

func (q *Query) BalanceOf(ctx context.Context, owner domain.Principal) (int, error) {
	oc, err := q.GetCredentialsByOwner(ctx, owner)
	if err != nil {
		return 0, err
	}
	return oc.Balance, nil
}

// TokenURI is the credential's metadata URI.
func (q *Query) TokenURI(ctx context.Context, id models.CredentialID) (string, error) {
	c, err := q.GetCredential(ctx, id)
	if err != nil {
		return "", err
	}
	return c.MetadataURI, nil
}

func (q *Query) HasRole(ctx context.Context, p domain.Principal, role models.Role) (bool, error) {
	var ok bool
	err := q.tx.View(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		ok, err = st.Roles.HasRole(ctx, role, p)
		return err
	})
	if err != nil {
		return false, translate(err, "has role")
	}
	return ok, nil
}

func (q *Query) Members(ctx context.Context, role models.Role) ([]domain.Principal, error) {
	var members []domain.Principal
	err := q.tx.View(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		members, err = st.Roles.Members(ctx, role)
		return err
	})
	if err != nil {
		return nil, translate(err, "list role members")
	}
	return members, nil
}

func (q *Query) Collection(ctx context.Context) (*models.Collection, error) {
	n, err := q.TotalSupply(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Collection{
		Name:        models.CollectionName,
		Symbol:      models.CollectionSymbol,
		TotalSupply: n,
	}, nil
}
