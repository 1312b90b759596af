package util

import gonanoid "github.com/matoous/go-nanoid/v2"

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewObjectID returns a random lower-case id for object storage keys.
func NewObjectID() (string, error) {
	return gonanoid.Generate(idAlphabet, 21)
}
