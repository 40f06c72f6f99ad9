package hendelse

import (
	"fmt"
	"slices"
	"time"
)

// AggregateId is the interface that represents the aggregate id of DDD.
type AggregateId interface {
	fmt.Stringer

	// GetTypeName returns the type name of the aggregate id.
	GetTypeName() string

	// GetValue returns the value of the aggregate id.
	GetValue() string

	// AsString returns the string representation of the aggregate id.
	//
	// The string representation is {TypeName}-{Value}.
	AsString() string
}

// Event is the interface that represents a hendelse: one immutable recorded fact about an aggregate.
type Event interface {
	fmt.Stringer

	// GetId returns the id of the event.
	GetId() string

	// GetTypeName returns the type name of the event.
	GetTypeName() string

	// GetAggregateId returns the aggregate id of the event.
	GetAggregateId() AggregateId

	// GetSeqNr returns the version of the aggregate after this event was applied.
	GetSeqNr() uint64

	// GetPreviousId returns the id of the causal predecessor event.
	GetPreviousId() string

	// IsCreated returns true if the event is the genesis event of its aggregate.
	IsCreated() bool

	// GetOccurredAt returns the time the event occurred.
	GetOccurredAt() time.Time

	// GetActor returns the identity that caused the event.
	GetActor() Actor

	// GetMetadata returns the free-form metadata of the event.
	GetMetadata() Metadata
}

// EventConverter turns a stored payload back into an Event.
type EventConverter func(typeName string, payload []byte) (Event, error)

// Actor is the acting identity of an event.
type Actor struct {
	Ident string   `json:"ident"`
	Roles []string `json:"roles,omitempty"`
}

func (a Actor) String() string {
	return a.Ident
}

// HasRole reports whether the actor carries role.
func (a Actor) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// Metadata travels with every event.
type Metadata struct {
	CorrelationId string            `json:"correlationId,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

type aggregateId struct {
	typeName string
	value    string
}

// NewAggregateId returns an AggregateId for an arbitrary type name and value.
func NewAggregateId(typeName, value string) AggregateId {
	return &aggregateId{typeName: typeName, value: value}
}

func (id *aggregateId) GetTypeName() string { return id.typeName }

func (id *aggregateId) GetValue() string { return id.value }

func (id *aggregateId) AsString() string {
	return fmt.Sprintf("%s-%s", id.typeName, id.value)
}

func (id *aggregateId) String() string { return id.AsString() }

// Header carries the fields every event shares. Domain events embed it.
type Header struct {
	Id                string    `json:"id"`
	TypeName          string    `json:"typeName"`
	AggregateTypeName string    `json:"aggregateTypeName"`
	AggregateValue    string    `json:"aggregateValue"`
	SeqNr             uint64    `json:"seqNr"`
	PreviousId        string    `json:"previousId,omitempty"`
	OccurredAt        time.Time `json:"occurredAt"`
	Actor             Actor     `json:"actor"`
	Metadata          Metadata  `json:"metadata"`
}

func (h *Header) GetId() string { return h.Id }

func (h *Header) GetTypeName() string { return h.TypeName }

func (h *Header) GetAggregateId() AggregateId {
	return NewAggregateId(h.AggregateTypeName, h.AggregateValue)
}

func (h *Header) GetSeqNr() uint64 { return h.SeqNr }

func (h *Header) GetPreviousId() string { return h.PreviousId }

func (h *Header) IsCreated() bool { return h.SeqNr == 1 }

func (h *Header) GetOccurredAt() time.Time { return h.OccurredAt }

func (h *Header) GetActor() Actor { return h.Actor }

func (h *Header) GetMetadata() Metadata { return h.Metadata }

func (h *Header) String() string {
	return fmt.Sprintf("%s{Id: %s, AggregateId: %s-%s, SeqNr: %d, PreviousId: %s}",
		h.TypeName, h.Id, h.AggregateTypeName, h.AggregateValue, h.SeqNr, h.PreviousId)
}

// AuditRecord is written in the same atomic unit as the event it describes.
type AuditRecord struct {
	EventId       string            `json:"eventId"`
	AggregateId   string            `json:"aggregateId"`
	Action        string            `json:"action"`
	Actor         string            `json:"actor"`
	Roles         []string          `json:"roles,omitempty"`
	CorrelationId string            `json:"correlationId,omitempty"`
	OccurredAt    time.Time         `json:"occurredAt"`
	Details       map[string]string `json:"details,omitempty"`
}
