package domain

// Entity is anything with a stable identity. Two entities are the same
// when their ids match, regardless of field values.
type Entity interface {
	EntityID() string
}

// Aggregate is an Entity that forms a consistency boundary: it carries an
// optimistic concurrency version and records domain events raised by its
// own state transitions.
type Aggregate interface {
	Entity
	Version() int
	PersistedVersion() int
	MarkPersisted()
	HasPendingEvents() bool
	DrainEvents() []DomainEvent
}

// AggregateRoot is the embeddable base for aggregates. The version only
// moves on transitions the model marks as significant (via bumpVersion),
// never on plain reads or no-op calls.
type AggregateRoot struct {
	version          int
	persistedVersion int
	pending          []DomainEvent
}

// Version returns the current in-memory version, including unpersisted bumps.
func (a *AggregateRoot) Version() int {
	return a.version
}

// PersistedVersion returns the version as last seen in storage. Zero means
// the aggregate has never been persisted.
func (a *AggregateRoot) PersistedVersion() int {
	return a.persistedVersion
}

// MarkPersisted records that the current version has been committed.
func (a *AggregateRoot) MarkPersisted() {
	a.persistedVersion = a.version
}

// HasPendingEvents reports whether any raised events are still undrained.
func (a *AggregateRoot) HasPendingEvents() bool {
	return len(a.pending) > 0
}

// DrainEvents returns the pending events in FIFO order and clears the list.
// The list is cleared before handlers run, so an event can never be seen
// twice even when a handler mutates this aggregate again.
func (a *AggregateRoot) DrainEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}

func (a *AggregateRoot) raise(event DomainEvent) {
	a.pending = append(a.pending, event)
}

func (a *AggregateRoot) bumpVersion() {
	a.version++
}

func (a *AggregateRoot) restoreVersion(version int) {
	a.version = version
	a.persistedVersion = version
}
