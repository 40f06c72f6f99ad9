// Package tilbakekreving implements the event-sourced debt recovery behandling.
//
// State is never stored. It is the fold of the behandling's events, see Fold.
// Deciders validate a command against the folded state and return the events to append.
package tilbakekreving

import (
	"fmt"

	"github.com/google/uuid"
)

const TypeName = "Tilbakekrevingsbehandling"

// BehandlingId identifies one tilbakekrevingsbehandling.
type BehandlingId struct {
	Value uuid.UUID `json:"value"`
}

func NewBehandlingId() BehandlingId {
	return BehandlingId{Value: uuid.New()}
}

// ParseBehandlingId parses the value part of an aggregate id.
func ParseBehandlingId(value string) (BehandlingId, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return BehandlingId{}, fmt.Errorf("invalid behandling id %q: %w", value, err)
	}
	return BehandlingId{Value: id}, nil
}

func (id BehandlingId) GetTypeName() string { return TypeName }

func (id BehandlingId) GetValue() string { return id.Value.String() }

func (id BehandlingId) AsString() string {
	return fmt.Sprintf("%s-%s", id.GetTypeName(), id.GetValue())
}

func (id BehandlingId) String() string { return id.AsString() }
