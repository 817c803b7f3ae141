package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wattlehq/accountd/internal/accounts/domain"
	"github.com/wattlehq/accountd/internal/accounts/store"
)

// Action is an account-scoped operation a user may attempt.
type Action int

const (
	ActionView Action = iota
	ActionManageMembers
	ActionRename
	ActionConvert
	ActionDestroy
)

func (a Action) String() string {
	switch a {
	case ActionView:
		return "view"
	case ActionManageMembers:
		return "manage_members"
	case ActionRename:
		return "rename"
	case ActionConvert:
		return "convert"
	case ActionDestroy:
		return "destroy"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Verdict is the outcome class of an authorization decision.
type Verdict int

const (
	// Allow grants the action.
	Allow Verdict = iota

	// SoftDeny refuses the action but confirms the account exists: the user
	// is a member and legitimately knows about it, they just lack the
	// specific right. Callers surface the reason.
	SoftDeny

	// HardDeny means the user holds no membership at all. Callers MUST
	// surface this as "not found", never "forbidden", so non-members cannot
	// probe for account existence.
	HardDeny
)

// Decision is the result of Decide. Reason is set only for SoftDeny.
type Decision struct {
	Verdict Verdict
	Reason  string
}

func allow() Decision            { return Decision{Verdict: Allow} }
func softDeny(r string) Decision { return Decision{Verdict: SoftDeny, Reason: r} }
func hardDeny() Decision         { return Decision{Verdict: HardDeny} }

// Decide is the pure authorization rule: given the acting user, the target
// account, that user's membership on it (nil when none exists) and the
// action, it returns a verdict. It never touches storage and is safe to call
// repeatedly within a request.
//
// Ownership is account.OwnerID == userID and nothing else; the admin role
// flag never satisfies an owner-only action.
func Decide(userID string, account domain.Account, membership *domain.Membership, action Action) Decision {
	if membership == nil || !membership.Member {
		return hardDeny()
	}

	switch action {
	case ActionRename, ActionConvert, ActionDestroy:
		if !account.OwnedBy(userID) {
			return softDeny("only the account owner may " + action.String() + " this account")
		}
		return allow()
	case ActionManageMembers:
		if account.OwnedBy(userID) || membership.Admin {
			return allow()
		}
		return softDeny("managing members requires the admin role")
	default:
		return allow()
	}
}

// GuardService resolves the inputs for Decide from storage. Check is the
// single entry point every account-scoped operation goes through.
type GuardService struct {
	Store store.Store
}

// Check loads the account and the user's membership on it, then applies
// Decide. A missing membership (or a missing account, indistinguishable on
// purpose) yields HardDeny with a zero account.
func (s *GuardService) Check(ctx context.Context, userID, accountID string, action Action) (domain.Account, Decision, error) {
	account, err := s.Store.Accounts().GetAccountForMember(ctx, userID, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, hardDeny(), nil
	}
	if err != nil {
		return domain.Account{}, Decision{}, fmt.Errorf("failed to resolve account: %w", err)
	}

	membership, err := s.Store.Memberships().GetMembership(ctx, userID, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, hardDeny(), nil
	}
	if err != nil {
		return domain.Account{}, Decision{}, fmt.Errorf("failed to resolve membership: %w", err)
	}

	return account, Decide(userID, account, &membership, action), nil
}
