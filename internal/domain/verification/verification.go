package verification

import (
	"context"
	"errors"
)

// ErrUnavailable means the external authority could not be consulted at all
// (transport failure, non-success status, unparseable response). It must
// never be collapsed into NotConfirmed: "we couldn't check" is not "unpaid".
var ErrUnavailable = errors.New("verification: authority unavailable")

type Outcome string

const (
	OutcomeConfirmed    Outcome = "confirmed"
	OutcomeNotConfirmed Outcome = "not_confirmed"
	OutcomeUnavailable  Outcome = "unavailable"
)

// Client asks an external authority whether a settled transaction matches
// the given correlation token. Matching is by token alone; amount equality
// is not enforced.
//
// A single best-effort lookup per call; retries belong to the caller.
// OutcomeUnavailable is returned together with a non-nil error wrapping
// ErrUnavailable.
type Client interface {
	CheckStatus(ctx context.Context, orderID string) (Outcome, error)
}
