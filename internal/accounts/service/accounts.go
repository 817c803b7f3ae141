package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wattlehq/accountd/internal/accounts/domain"
	"github.com/wattlehq/accountd/internal/accounts/store"
	"github.com/wattlehq/accountd/pkg/idx"
)

var (
	ErrNotOwner        = errors.New("only the account owner may do this")
	ErrAlreadyTeam     = errors.New("account is already a team account")
	ErrAlreadyPersonal = errors.New("account is already a personal account")
	ErrHasOtherMembers = errors.New("account has more than one member")
	ErrOwnerMembership = errors.New("the owner's membership cannot be removed")
)

type AccountService struct {
	Store store.Store
	Guard *GuardService
}

// CreateAccount provisions an account with its owner membership in one
// transaction. The owner is always a member; personal accounts start with
// that single membership.
func (s *AccountService) CreateAccount(ctx context.Context, ownerID, name string, personal bool) (domain.Account, error) {
	account := domain.Account{
		ID:       idx.New().String(),
		Name:     name,
		OwnerID:  ownerID,
		Personal: personal,
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		membership := domain.Membership{
			ID:        idx.New().String(),
			UserID:    ownerID,
			AccountID: account.ID,
			Admin:     true,
			Member:    true,
		}
		if err := tx.Memberships().CreateMembership(ctx, membership); err != nil {
			return fmt.Errorf("failed to create owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}

	return account, nil
}

// Switch repoints the session's acting account. The target is resolved
// within the session user's membership set, so an account the user does not
// belong to is indistinguishable from one that does not exist
// (store.ErrNotFound either way). Switching to the current account is a
// no-op success. For impersonated sessions the membership set is the
// impersonated user's, never the impersonator's.
func (s *AccountService) Switch(ctx context.Context, session domain.Session, accountID string) (domain.Account, error) {
	account, err := s.Store.Accounts().GetAccountForMember(ctx, session.UserID, accountID)
	if err != nil {
		return domain.Account{}, err
	}

	if session.AccountID != nil && *session.AccountID == account.ID {
		return account, nil
	}

	if err := s.Store.Sessions().SetSessionAccount(ctx, session.ID, account.ID); err != nil {
		return domain.Account{}, fmt.Errorf("failed to switch account: %w", err)
	}
	return account, nil
}

// ListAccounts returns the accounts the session's user belongs to.
func (s *AccountService) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	return s.Store.Accounts().ListAccountsForUser(ctx, userID)
}

// ConvertToTeam flips a personal account to team shape. Owner only; a
// non-owner member gets ErrNotOwner, a non-member gets store.ErrNotFound.
// The flag flip is conditional on the current shape so a concurrent
// conversion cannot double-apply.
func (s *AccountService) ConvertToTeam(ctx context.Context, actorID, accountID string) error {
	if err := s.requireOwner(ctx, actorID, accountID); err != nil {
		return err
	}

	err := s.Store.Accounts().SetShape(ctx, accountID, true, false)
	if errors.Is(err, store.ErrConflict) {
		return ErrAlreadyTeam
	}
	return err
}

// ConvertToPersonal flips a team account back to personal shape. Owner
// only, and refused while anyone besides the owner holds a membership. The
// membership count check and the flag flip share a transaction so a
// concurrent member add cannot slip between them.
func (s *AccountService) ConvertToPersonal(ctx context.Context, actorID, accountID string) error {
	if err := s.requireOwner(ctx, actorID, accountID); err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		count, err := tx.Memberships().CountAccountMemberships(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to count memberships: %w", err)
		}
		if count != 1 {
			return ErrHasOtherMembers
		}

		err = tx.Accounts().SetShape(ctx, accountID, false, true)
		if errors.Is(err, store.ErrConflict) {
			return ErrAlreadyPersonal
		}
		return err
	})
}

// RemoveMember drops a user's membership from an account. Requires the
// manage-members right; the owner's own membership is never removable.
func (s *AccountService) RemoveMember(ctx context.Context, actorID, accountID, userID string) error {
	account, decision, err := s.Guard.Check(ctx, actorID, accountID, ActionManageMembers)
	if err != nil {
		return err
	}
	switch decision.Verdict {
	case HardDeny:
		return store.ErrNotFound
	case SoftDeny:
		return fmt.Errorf("%w: %s", ErrNotOwner, decision.Reason)
	}

	if account.OwnedBy(userID) {
		return ErrOwnerMembership
	}

	membership, err := s.Store.Memberships().GetMembership(ctx, userID, accountID)
	if err != nil {
		return err
	}
	return s.Store.Memberships().DeleteMembership(ctx, membership.ID)
}

// Destroy deletes the account and, by schema cascade, its memberships.
// Owner only.
func (s *AccountService) Destroy(ctx context.Context, actorID, accountID string) error {
	account, decision, err := s.Guard.Check(ctx, actorID, accountID, ActionDestroy)
	if err != nil {
		return err
	}
	switch decision.Verdict {
	case HardDeny:
		return store.ErrNotFound
	case SoftDeny:
		return ErrNotOwner
	}
	return s.Store.Accounts().DeleteAccount(ctx, account.ID)
}

func (s *AccountService) requireOwner(ctx context.Context, actorID, accountID string) error {
	_, decision, err := s.Guard.Check(ctx, actorID, accountID, ActionConvert)
	if err != nil {
		return err
	}
	switch decision.Verdict {
	case HardDeny:
		return store.ErrNotFound
	case SoftDeny:
		return ErrNotOwner
	}
	return nil
}
