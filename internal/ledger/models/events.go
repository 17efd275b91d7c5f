package models

import (
	"time"

	"shebuilds/pkg/domain"
)

type EventType string

const (
	EventCredentialIssued         EventType = "CredentialIssued"
	EventCredentialRevoked        EventType = "CredentialRevoked"
	EventSoulboundTransferAttempt EventType = "SoulboundTransferAttempt"
	EventRoleGranted              EventType = "RoleGranted"
	EventRoleRevoked              EventType = "RoleRevoked"
)

// Event is a ledger lifecycle event. Fields irrelevant to Type are zero.
type Event struct {
	Type          EventType        `json:"type"`
	TokenID       *CredentialID    `json:"token_id,omitempty"`
	Recipient     domain.Principal `json:"recipient,omitempty"`
	SkillCategory string           `json:"skill_category,omitempty"`
	Proficiency   Proficiency      `json:"proficiency,omitempty"`
	Issuer        domain.Principal `json:"issuer,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	From          domain.Principal `json:"from,omitempty"`
	To            domain.Principal `json:"to,omitempty"`
	Role          Role             `json:"role,omitempty"`
	Account       domain.Principal `json:"account,omitempty"`
	Sender        domain.Principal `json:"sender,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// AggregateType and AggregateID key the event in the outbox and on Kafka.
func (e Event) AggregateType() string {
	if e.TokenID != nil {
		return "credential"
	}
	return "role"
}

func (e Event) AggregateID() string {
	if e.TokenID != nil {
		return e.TokenID.String()
	}
	return string(e.Role) + ":" + e.Account.String()
}

func CredentialIssued(c *Credential) Event {
	id := c.ID
	return Event{
		Type:          EventCredentialIssued,
		TokenID:       &id,
		Recipient:     c.Owner,
		SkillCategory: c.SkillCategory,
		Proficiency:   c.Proficiency,
		Issuer:        c.Issuer,
		OccurredAt:    c.IssuedAt,
	}
}

func CredentialRevoked(id CredentialID, reason string, at time.Time) Event {
	return Event{Type: EventCredentialRevoked, TokenID: &id, Reason: reason, OccurredAt: at}
}

func SoulboundTransferAttempt(id CredentialID, from, to domain.Principal, at time.Time) Event {
	return Event{Type: EventSoulboundTransferAttempt, TokenID: &id, From: from, To: to, OccurredAt: at}
}

func RoleGranted(role Role, account, sender domain.Principal, at time.Time) Event {
	return Event{Type: EventRoleGranted, Role: role, Account: account, Sender: sender, OccurredAt: at}
}

func RoleRevoked(role Role, account, sender domain.Principal, at time.Time) Event {
	return Event{Type: EventRoleRevoked, Role: role, Account: account, Sender: sender, OccurredAt: at}
}
