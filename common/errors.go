package common

import "fmt"

// ErrInvalidActorID is returned when an actor identifier is malformed.
type ErrInvalidActorID struct {
	Reason string
}

func (e ErrInvalidActorID) Error() string {
	return fmt.Sprintf("invalid actor id: %s", e.Reason)
}

// ErrInvalidOpID is returned when an operation identifier is malformed.
type ErrInvalidOpID struct {
	Reason string
}

func (e ErrInvalidOpID) Error() string {
	return fmt.Sprintf("invalid op id: %s", e.Reason)
}

// ErrInvalidObjectID is returned when an object identifier does not name a
// live object.
type ErrInvalidObjectID struct {
	Reason string
}

func (e ErrInvalidObjectID) Error() string {
	return fmt.Sprintf("invalid object id: %s", e.Reason)
}

// ErrMissingObjectID is returned when an operation targets an object that
// has not been created in the OpSet.
type ErrMissingObjectID struct {
	Obj ObjID
}

func (e ErrMissingObjectID) Error() string {
	return fmt.Sprintf("missing object: %s", e.Obj)
}

// ErrMissingDep is returned when a change is applied before one of its
// dependencies has been incorporated.
type ErrMissingDep struct {
	Hash ChangeHash
}

func (e ErrMissingDep) Error() string {
	return fmt.Sprintf("missing dependency: %s", e.Hash)
}

// ErrInvalidNodeType is returned when an operation targets an object of the
// wrong kind, e.g. a map op aimed at a list.
type ErrInvalidNodeType struct {
	Expected, Actual NodeType
}

func (e ErrInvalidNodeType) Error() string {
	return fmt.Sprintf("invalid object type: expected %s, got %s", e.Expected, e.Actual)
}

// ErrInvalidOperation is returned for a structurally invalid operation.
type ErrInvalidOperation struct {
	Message string
}

func (e ErrInvalidOperation) Error() string {
	return fmt.Sprintf("invalid operation: %s", e.Message)
}

// ErrIndexOutOfBounds is returned by sequence queries given an index past
// the visible length of the sequence.
type ErrIndexOutOfBounds struct {
	Index, Length int
}

func (e ErrIndexOutOfBounds) Error() string {
	return fmt.Sprintf("index %d out of bounds (length %d)", e.Index, e.Length)
}

// ErrNotACounter is returned when increment targets a non-counter put.
type ErrNotACounter struct{}

func (e ErrNotACounter) Error() string { return "increment target is not a counter" }

// ErrUnknownProperty is returned when a map lookup misses and the caller
// required the key to exist.
type ErrUnknownProperty struct {
	Key string
}

func (e ErrUnknownProperty) Error() string {
	return fmt.Sprintf("unknown property: %s", e.Key)
}

// ErrUnknownMark is returned when unmark references a mark name never begun
// over the referenced range.
type ErrUnknownMark struct {
	Name string
}

func (e ErrUnknownMark) Error() string {
	return fmt.Sprintf("unknown mark: %s", e.Name)
}

// ErrDecoding wraps any malformed-input failure from the columnar codec:
// bad LEB128, checksum/hash mismatch, unknown chunk type, truncated
// column, mis-ordered column metadata.
type ErrDecoding struct {
	Reason string
}

func (e ErrDecoding) Error() string {
	return fmt.Sprintf("decoding error: %s", e.Reason)
}

// ErrChangeGraph is returned for structural violations of the change DAG
// (duplicate sequence numbers, non-contiguous sequences, unsorted deps).
type ErrChangeGraph struct {
	Reason string
}

func (e ErrChangeGraph) Error() string {
	return fmt.Sprintf("invalid change: %s", e.Reason)
}
