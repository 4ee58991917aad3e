package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID returns a fresh entity identifier. Identifiers are ObjectID hex
// strings so they can be generated before the document is stored.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidID reports whether id has the shape NewID produces.
func IsValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}
