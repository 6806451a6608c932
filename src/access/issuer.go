package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"vip-gate/src/ledger"
)

// ErrNotAuthorized is returned by Claim when the user has no claimable
// authorization, including when a prior one was already consumed.
var ErrNotAuthorized = errors.New("user is not authorized")

// Inviter creates a single-use invite link into the VIP group.
type Inviter interface {
	CreateInviteLink(ctx context.Context, userID string) (string, error)
}

// Issuer exchanges a user's authorization for a single-use invite link.
type Issuer struct {
	Ledger  *ledger.Ledger
	Inviter Inviter
	Logger  zerolog.Logger
}

// Claim consumes the user's authorization and returns a fresh single-use
// invite link. The authorization survives an invite-creation failure so the
// user can retry the claim.
func (i *Issuer) Claim(ctx context.Context, userID string) (string, error) {
	if i.Ledger.GetStatus(userID) != ledger.StatusAuthorized {
		return "", ErrNotAuthorized
	}

	link, err := i.Inviter.CreateInviteLink(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("creating invite link: %w", err)
	}

	i.Ledger.Consume(userID)
	if err := i.Ledger.Persist(); err != nil {
		i.Logger.Error().Err(err).Str("user_id", userID).Msg("persisting ledger after consume")
	}

	i.Logger.Info().Str("user_id", userID).Msg("single-use invite issued")
	return link, nil
}
