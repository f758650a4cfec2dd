package schema

import (
	"errors"
	"fmt"
)

// ErrUnknownMarket is returned when a caller applies a frame to a market
// the reconciler has never been told about. This is a programming-contract
// violation, not a data fault.
var ErrUnknownMarket = errors.New("unknown market")

// MalformedPayloadError reports that an adapter could not map a required
// field of a vendor payload. It is local to one record and never aborts
// a batch.
type MalformedPayloadError struct {
	Provider Provider
	Field    string // path of the offending field, e.g. "markets[2].ticker"
	Reason   string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("%s: malformed payload at %s: %s", e.Provider, e.Field, e.Reason)
}

// ResolutionUnavailableError reports that a coarse identifier could not
// be expanded for a vendor, either because no credentials are configured
// or because the external lookup failed. It degrades that vendor's
// coverage and is non-fatal.
type ResolutionUnavailableError struct {
	Provider   Provider
	Identifier string
	Reason     string
}

func (e *ResolutionUnavailableError) Error() string {
	return fmt.Sprintf("%s: cannot resolve %q: %s", e.Provider, e.Identifier, e.Reason)
}

// ReconciliationGapError reports a delta that could not be logically
// applied to a book. It is surfaced so the consumer can request a fresh
// snapshot; it is never silently dropped.
type ReconciliationGapError struct {
	MarketID string
	Reason   string
}

func (e *ReconciliationGapError) Error() string {
	return fmt.Sprintf("reconciliation gap for %s: %s", e.MarketID, e.Reason)
}
