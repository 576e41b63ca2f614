package core

import "errors"

// Errors shared across the integration core. Handlers and chat tools map these
// to user-facing outcomes; everything else is wrapped and propagated.
var (
	// ErrNotConnected is returned when a team has no QuickBooks connection.
	// The caller should prompt the user to connect.
	ErrNotConnected = errors.New("team is not connected to QuickBooks")

	// ErrAuthExpired is returned when the stored refresh token is no longer
	// accepted by the provider. The caller should prompt the user to reconnect;
	// the refresh is not retried automatically.
	ErrAuthExpired = errors.New("QuickBooks authorization expired")

	// ErrInvoiceNotFound is returned when a doc number does not resolve to any
	// invoice. This is a normal, reported outcome — no remote mutation is
	// issued once resolution fails.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrForbidden is returned by the permission gate before any remote call
	// is dispatched.
	ErrForbidden = errors.New("operation not permitted for role")

	// ErrRealmAlreadyLinked is returned when an OAuth callback tries to link a
	// QuickBooks company that is already connected to a different team.
	ErrRealmAlreadyLinked = errors.New("QuickBooks company is already linked to another team")
)
