package use_cases

import "github.com/google/uuid"

type IDGenerator interface {
	NewID(prefix string) string
}

type uuidGenerator struct{}

func NewUUIDGenerator() IDGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) NewID(prefix string) string {
	return prefix + uuid.NewString()
}
