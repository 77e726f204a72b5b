package graph

import "errors"

var (
	// ErrMissingRequiredProperty is returned when a vertex or edge is
	// constructed without its identity keys ("ident", and for edges also
	// "start_ident" and "end_ident"). Fatal to that construction.
	ErrMissingRequiredProperty = errors.New("missing required property")

	// ErrDuplicateIdent is returned when adding an entity whose ident is
	// already present in the target collection.
	ErrDuplicateIdent = errors.New("duplicate ident")
)
