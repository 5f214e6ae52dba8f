package repository

import (
	"context"
	"errors"
)

var (
	ErrInvalidID = errors.New("invalid document id")
)

// Document is one stored document: its backend identifier and raw fields.
type Document struct {
	ID     string
	Fields map[string]any
}

// Collection is a flat, schema-flexible document collection.
type Collection interface {
	// All returns every document in backend order.
	All(ctx context.Context) ([]Document, error)
	// Add stores a new document and returns the identifier the backend assigned.
	Add(ctx context.Context, fields map[string]any) (string, error)
	// Set fully replaces the document with the given identifier, creating it
	// when it does not exist.
	Set(ctx context.Context, id string, fields map[string]any) error
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
