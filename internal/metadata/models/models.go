// Package models defines the off-chain metadata document attached to a credential.
package models

import (
	"encoding/json"
	"time"
)

// Attribute is one trait of a metadata document. Value is kept raw because
// issuers publish both strings and numbers.
type Attribute struct {
	TraitType string          `json:"trait_type"`
	Value     json.RawMessage `json:"value"`
}

// Document is the JSON document a credential's metadata URI points to.
// Its shape is not validated beyond decoding.
type Document struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// Resolved is a document together with where it came from.
type Resolved struct {
	URI       string
	FetchURL  string
	Document  Document
	Cached    bool
	FetchedAt time.Time
}
