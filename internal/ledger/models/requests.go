package models

import (
	"shebuilds/pkg/domain"
)

// MintRequest is one credential to mint. Proficiency is validated by the ledger.
type MintRequest struct {
	Recipient     domain.Principal
	SkillCategory string
	Proficiency   int
	MetadataURI   string
}

// BatchMintRequest carries the four parallel input sequences of a batch mint.
// Their lengths must agree.
type BatchMintRequest struct {
	Recipients    []domain.Principal
	Categories    []string
	Proficiencies []int
	MetadataURIs  []string
}

// LengthsMatch reports whether all four sequences have the same length.
func (r BatchMintRequest) LengthsMatch() bool {
	n := len(r.Recipients)
	return len(r.Categories) == n && len(r.Proficiencies) == n && len(r.MetadataURIs) == n
}

// Items zips the sequences. Only valid when LengthsMatch is true.
func (r BatchMintRequest) Items() []MintRequest {
	items := make([]MintRequest, len(r.Recipients))
	for i := range r.Recipients {
		items[i] = MintRequest{
			Recipient:     r.Recipients[i],
			SkillCategory: r.Categories[i],
			Proficiency:   r.Proficiencies[i],
			MetadataURI:   r.MetadataURIs[i],
		}
	}
	return items
}

// TransferRequest describes an ownership transfer attempt. Transfers never succeed.
type TransferRequest struct {
	From    domain.Principal
	To      domain.Principal
	TokenID CredentialID
}
