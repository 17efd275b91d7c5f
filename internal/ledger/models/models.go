package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"shebuilds/pkg/domain"
	dErrors "shebuilds/pkg/domain-errors"
)

// Collection identity reported by GET /collection.
const (
	CollectionName   = "SheBuilds Skill NFT"
	CollectionSymbol = "SBSNFT"
)

// Proficiency bounds, inclusive.
const (
	MinProficiency = 1
	MaxProficiency = 5
)

// CredentialID is the dense, zero-based token id.
type CredentialID uint64

func ParseCredentialID(s string) (CredentialID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "credential id is required")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "credential id must be a non-negative integer")
	}
	return CredentialID(n), nil
}

func (id CredentialID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Proficiency is a skill level in [1,5].
type Proficiency uint8

// ParseProficiency rejects anything outside [1,5] with invalid_proficiency.
func ParseProficiency(v int) (Proficiency, error) {
	if v < MinProficiency || v > MaxProficiency {
		return 0, dErrors.New(dErrors.CodeInvalidProficiency,
			fmt.Sprintf("proficiency must be between %d and %d, got %d", MinProficiency, MaxProficiency, v))
	}
	return Proficiency(v), nil
}

func (p Proficiency) Valid() bool {
	return p >= MinProficiency && p <= MaxProficiency
}

// Role names match the on-chain role identifiers.
type Role string

const (
	RoleAdmin  Role = "ADMIN_ROLE"
	RoleIssuer Role = "ISSUER_ROLE"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin, "ADMIN":
		return RoleAdmin, nil
	case RoleIssuer, "ISSUER":
		return RoleIssuer, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "role must be ADMIN_ROLE or ISSUER_ROLE")
	}
}

func (r Role) String() string { return string(r) }

// CredentialState is derived from the revoked flag.
type CredentialState string

const (
	StateActive  CredentialState = "active"
	StateRevoked CredentialState = "revoked"
)

// Credential is a soulbound skill credential. Everything except the
// revocation fields is fixed at mint.
type Credential struct {
	ID               CredentialID
	Owner            domain.Principal
	SkillCategory    string
	Proficiency      Proficiency
	MetadataURI      string
	Issuer           domain.Principal
	IssuedAt         time.Time
	Revoked          bool
	RevocationReason string
	RevokedAt        *time.Time
}

func (c *Credential) State() CredentialState {
	if c.Revoked {
		return StateRevoked
	}
	return StateActive
}

// Collection summarizes the ledger.
type Collection struct {
	Name        string
	Symbol      string
	TotalSupply uint64
}
