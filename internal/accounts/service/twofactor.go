package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/wattlehq/accountd/internal/accounts/domain"
	"github.com/wattlehq/accountd/internal/accounts/store"
	"github.com/wattlehq/accountd/pkg/cryptox"
	"github.com/wattlehq/accountd/pkg/idx"
)

const (
	recoveryCodeCount  = 10 // codes issued per batch
	recoveryCodeLength = 10 // characters per code

	totpPeriod = 30
	totpSkew   = 1 // accept the adjacent time step either side

	maxChallengeAttempts = 5
)

var (
	ErrAlreadyEnabled      = errors.New("two-factor already enabled")
	ErrNotEnrolled         = errors.New("two-factor enrollment not started")
	ErrSetupExpired        = errors.New("two-factor setup expired, start again")
	ErrInvalidCode         = errors.New("invalid code, try again")
	ErrTooManyAttempts     = errors.New("too many failed attempts")
	ErrChallengeExpired    = errors.New("challenge expired, sign in again")
	ErrImpersonatedSession = errors.New("not available while impersonating")
)

type TwoFactorService struct {
	Store    store.Store
	Sessions *SessionService
	Issuer   string // issuer label shown in authenticator apps
	SetupTTL time.Duration
}

// BeginSetup starts enrollment: it generates a fresh TOTP secret, stores it
// as pending and returns the provisioning details. The secret does not count
// until ConfirmSetup proves the user can produce a matching code. Calling
// BeginSetup again replaces any previous pending secret.
func (s *TwoFactorService) BeginSetup(ctx context.Context, userID string) (domain.TwoFactorSetup, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.TwoFactorSetup{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user.TOTPConfirmedAt != nil {
		return domain.TwoFactorSetup{}, ErrAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Username,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.TwoFactorSetup{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	if err := s.Store.Users().SetPendingTOTPSecret(ctx, userID, key.Secret(), time.Now()); err != nil {
		return domain.TwoFactorSetup{}, fmt.Errorf("failed to store pending secret: %w", err)
	}

	return domain.TwoFactorSetup{
		Secret:  key.Secret(),
		URL:     key.URL(),
		Issuer:  s.Issuer,
		Account: user.Username,
	}, nil
}

// ConfirmSetup finishes enrollment. A code matching the pending secret
// (current step, one step of skew either side) confirms the secret, flips
// the two-factor-required flag and issues a fresh batch of recovery codes,
// discarding any prior batch. The plaintext codes are returned exactly once.
//
// A wrong code changes nothing: the secret stays pending and the flag stays
// off.
func (s *TwoFactorService) ConfirmSetup(ctx context.Context, userID, code string) ([]string, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	now := time.Now()
	if user.TOTPConfirmedAt != nil {
		return nil, ErrAlreadyEnabled
	}
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		return nil, ErrNotEnrolled
	}
	if user.TwoFactorState(now, s.SetupTTL) != domain.TwoFactorPendingSetup {
		return nil, ErrSetupExpired
	}

	ok, err := verifyTOTPAt(code, *user.TOTPSecret, now)
	if err != nil {
		return nil, fmt.Errorf("failed to validate code: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCode
	}

	codes, hashed, err := mintRecoveryCodes(userID)
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().ConfirmTOTPSecret(ctx, userID, now); err != nil {
			return fmt.Errorf("failed to confirm secret: %w", err)
		}
		return replaceRecoveryCodes(ctx, tx, userID, hashed)
	})
	if err != nil {
		return nil, err
	}

	return codes, nil
}

// Disable turns two-factor off entirely: secret, confirmation, required
// flag and all recovery codes are removed together. Refused on impersonated
// sessions: a staff member acting as a user must not be able to weaken
// their credentials.
func (s *TwoFactorService) Disable(ctx context.Context, session domain.Session) error {
	if session.Impersonated() {
		return ErrImpersonatedSession
	}

	userID := session.UserID
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().DisableTwoFactor(ctx, userID); err != nil {
			return fmt.Errorf("failed to disable two-factor: %w", err)
		}
		if err := tx.RecoveryCodes().DeleteAllRecoveryCodes(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete recovery codes: %w", err)
		}
		return nil
	})
}

// VerifyTOTP resolves a sign-in challenge with an authenticator code. On
// success the challenge is consumed and a full session issued.
func (s *TwoFactorService) VerifyTOTP(ctx context.Context, challengeToken, code string) (IssuedSession, error) {
	challenge, user, err := s.resolveChallenge(ctx, challengeToken)
	if err != nil {
		return IssuedSession{}, err
	}

	if user.TOTPSecret == nil || user.TOTPConfirmedAt == nil {
		// Challenge for a user who is no longer enrolled; treat like any
		// other failed input.
		return IssuedSession{}, s.failChallenge(ctx, challenge)
	}

	ok, err := verifyTOTPAt(code, *user.TOTPSecret, time.Now())
	if err != nil {
		return IssuedSession{}, fmt.Errorf("failed to validate code: %w", err)
	}
	if !ok {
		return IssuedSession{}, s.failChallenge(ctx, challenge)
	}

	return s.satisfyChallenge(ctx, challenge)
}

// VerifyRecoveryCode resolves a sign-in challenge with a single-use backup
// code. The code is consumed atomically: once marked used it can never
// authenticate again, even under concurrent submissions. Failed inputs do
// not consume anything and return the same error as a wrong TOTP code.
func (s *TwoFactorService) VerifyRecoveryCode(ctx context.Context, challengeToken, code string) (IssuedSession, error) {
	challenge, _, err := s.resolveChallenge(ctx, challengeToken)
	if err != nil {
		return IssuedSession{}, err
	}

	hash := cryptox.FingerprintToken(cryptox.NormalizeRecoveryCode(code))
	consumed, err := s.Store.RecoveryCodes().ConsumeRecoveryCode(ctx, challenge.UserID, hash, time.Now())
	if err != nil {
		return IssuedSession{}, fmt.Errorf("failed to consume recovery code: %w", err)
	}
	if !consumed {
		return IssuedSession{}, s.failChallenge(ctx, challenge)
	}

	return s.satisfyChallenge(ctx, challenge)
}

// RegenerateRecoveryCodes discards every existing code, used or not, and
// issues a fresh batch of ten. Refused on impersonated sessions: a staff
// member acting as a user must not be able to mint credentials for them.
func (s *TwoFactorService) RegenerateRecoveryCodes(ctx context.Context, session domain.Session) ([]string, error) {
	if session.Impersonated() {
		return nil, ErrImpersonatedSession
	}

	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.TOTPConfirmedAt == nil {
		return nil, ErrNotEnrolled
	}

	codes, hashed, err := mintRecoveryCodes(user.ID)
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return replaceRecoveryCodes(ctx, tx, user.ID, hashed)
	})
	if err != nil {
		return nil, err
	}

	return codes, nil
}

func (s *TwoFactorService) resolveChallenge(ctx context.Context, token string) (domain.Challenge, domain.User, error) {
	challenge, err := s.Store.Challenges().GetChallengeByTokenHash(ctx, cryptox.FingerprintToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Challenge{}, domain.User{}, ErrChallengeExpired
	}
	if err != nil {
		return domain.Challenge{}, domain.User{}, fmt.Errorf("failed to load challenge: %w", err)
	}

	if challenge.Expired(time.Now()) {
		if err := s.Store.Challenges().DeleteChallenge(ctx, challenge.ID); err != nil {
			return domain.Challenge{}, domain.User{}, fmt.Errorf("failed to delete expired challenge: %w", err)
		}
		return domain.Challenge{}, domain.User{}, ErrChallengeExpired
	}

	user, err := s.Store.Users().GetUserByID(ctx, challenge.UserID)
	if err != nil {
		return domain.Challenge{}, domain.User{}, fmt.Errorf("failed to load user: %w", err)
	}

	return challenge, user, nil
}

// failChallenge records a failed attempt. The returned error is always
// ErrInvalidCode until the attempt cap, then ErrTooManyAttempts with the
// challenge destroyed. Wrong TOTP and wrong recovery codes are deliberately
// indistinguishable to the caller.
func (s *TwoFactorService) failChallenge(ctx context.Context, challenge domain.Challenge) error {
	updated, err := s.Store.Challenges().IncrementChallengeAttempts(ctx, challenge.ID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrChallengeExpired
	}
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	if updated.Attempts >= maxChallengeAttempts {
		if err := s.Store.Challenges().DeleteChallenge(ctx, challenge.ID); err != nil {
			return fmt.Errorf("failed to delete exhausted challenge: %w", err)
		}
		return ErrTooManyAttempts
	}

	return ErrInvalidCode
}

func (s *TwoFactorService) satisfyChallenge(ctx context.Context, challenge domain.Challenge) (IssuedSession, error) {
	var issued IssuedSession
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Challenges().DeleteChallenge(ctx, challenge.ID); err != nil {
			return fmt.Errorf("failed to consume challenge: %w", err)
		}
		var err error
		issued, err = s.Sessions.Issue(ctx, tx, challenge.UserID)
		return err
	})
	if err != nil {
		return IssuedSession{}, err
	}
	return issued, nil
}

// verifyTOTPAt checks a six-digit code against the secret with one period
// of skew either side, so a code cut at T is good at T and T±30s but not
// T±90s.
func verifyTOTPAt(code, secret string, at time.Time) (bool, error) {
	return totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}

// mintRecoveryCodes produces a batch of plaintext codes and their storage
// rows. Only the fingerprints go to disk.
func mintRecoveryCodes(userID string) ([]string, []domain.RecoveryCode, error) {
	codes := make([]string, recoveryCodeCount)
	rows := make([]domain.RecoveryCode, recoveryCodeCount)
	for i := range codes {
		code, err := cryptox.GenerateRecoveryCode(recoveryCodeLength)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate recovery code: %w", err)
		}
		codes[i] = code
		rows[i] = domain.RecoveryCode{
			ID:       idx.New().String(),
			UserID:   userID,
			CodeHash: cryptox.FingerprintToken(cryptox.NormalizeRecoveryCode(code)),
		}
	}
	return codes, rows, nil
}

func replaceRecoveryCodes(ctx context.Context, tx store.Tx, userID string, rows []domain.RecoveryCode) error {
	if err := tx.RecoveryCodes().DeleteAllRecoveryCodes(ctx, userID); err != nil {
		return fmt.Errorf("failed to discard old recovery codes: %w", err)
	}
	for _, row := range rows {
		if err := tx.RecoveryCodes().CreateRecoveryCode(ctx, row); err != nil {
			return fmt.Errorf("failed to store recovery code: %w", err)
		}
	}
	return nil
}
