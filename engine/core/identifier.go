package core

import "github.com/google/uuid"

// Identifier tags identity-bearing renderer objects (pipelines, layouts,
// targets, blocks) so log lines and debug scopes can tell instances apart.
type Identifier struct {
	id uuid.UUID
}

func NewIdentifier() Identifier {
	return Identifier{id: uuid.New()}
}

func (i Identifier) String() string {
	return i.id.String()
}

func (i Identifier) IsZero() bool {
	return i.id == uuid.Nil
}
