// Package dto defines the wire types shared by the snapshot store server and
// the terminal client.
package dto

import "encoding/json"

// CollectionEnvelope is the response body of GET /v1/tables/:table. Version
// is a monotonic per-table counter bumped on every accepted write; clients
// echo it back on PUT so concurrent writes are detected instead of silently
// overwritten.
type CollectionEnvelope struct {
	Table   string          `json:"table"`
	Version int64           `json:"version"`
	Items   json.RawMessage `json:"items"`
}

// PutCollectionRequest replaces a whole collection. BaseVersion must equal
// the store's current version for the write to be accepted.
type PutCollectionRequest struct {
	BaseVersion int64           `json:"base_version"`
	Items       json.RawMessage `json:"items" validate:"required"`
}

// PutCollectionResponse acknowledges an accepted write with the new version.
type PutCollectionResponse struct {
	Table   string `json:"table"`
	Version int64  `json:"version"`
}

// SequenceResponse carries the next value of a store-side atomic sequence.
type SequenceResponse struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// MirrorFrame is the payload broadcast over the realtime mirror whenever a
// terminal commits a products/categories change. Receivers treat it as an
// invalidation hint: the embedded snapshot is applied only when its versions
// are at least as new as the local ones, otherwise a fresh GET is issued.
type MirrorFrame struct {
	Products          json.RawMessage `json:"products"`
	Categories        json.RawMessage `json:"categories"`
	ProductsVersion   int64           `json:"products_version"`
	CategoriesVersion int64           `json:"categories_version"`
}
