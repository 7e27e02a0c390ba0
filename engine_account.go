package userguard

import (
	"context"
	"errors"
	"fmt"

	"github.com/identware/userguard/internal/audit"
	"github.com/identware/userguard/session"
	"github.com/identware/userguard/validate"
)

// RegisterInput is the caller-facing registration payload.
type RegisterInput struct {
	Identity   string
	Name       string
	Email      string
	Mobile     string
	Credential string
}

// Register validates the payload, hashes the credential, and creates the
// account in Pending status awaiting verification.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (Account, error) {
	if e == nil {
		return Account{}, ErrEngineNotReady
	}
	errs := e.chains.Run(ctx, validate.PurposeRegister, validate.Input{
		Identity: in.Identity,
		Name:     in.Name,
		Email:    in.Email,
		Mobile:   in.Mobile,
		Password: in.Credential,
	})
	if errs != nil {
		e.metrics.Inc(MetricValidationRejected)
		return Account{}, errs
	}

	hash, err := e.hasher.Hash(in.Credential)
	if err != nil {
		return Account{}, fmt.Errorf("hash credential: %w", err)
	}

	account, err := e.accounts.CreateAccount(ctx, CreateAccountInput{
		Identity:       in.Identity,
		Name:           in.Name,
		Email:          in.Email,
		Mobile:         in.Mobile,
		CredentialHash: hash,
		Status:         AccountPending,
	})
	if err != nil {
		if errors.Is(err, ErrIdentityExists) {
			return Account{}, ErrIdentityExists
		}
		return Account{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	e.metrics.Inc(MetricAccountCreated)
	e.emitAudit(ctx, audit.TypeAccountCreated, account.ID, true, nil, nil)
	e.log.Info().Int64("user_id", account.ID).Msg("account created")
	return account, nil
}

// ViewAccount returns the stored account record.
func (e *Engine) ViewAccount(ctx context.Context, userID int64) (Account, error) {
	if e == nil {
		return Account{}, ErrEngineNotReady
	}
	account, err := e.accounts.AccountByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrAccountUnknown) {
			return Account{}, ErrAccountUnknown
		}
		return Account{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return account, nil
}

// ProfileInput carries the self-service editable fields.
type ProfileInput struct {
	Identity string
	Name     string
	Mobile   string
	Avatar   *string
}

// UpdateProfile validates and persists profile changes, then refreshes the
// session bundle snapshot so subsequent requests observe the new values
// immediately.
func (e *Engine) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (Account, error) {
	if e == nil {
		return Account{}, ErrEngineNotReady
	}
	errs := e.chains.Run(ctx, validate.PurposeEditProfile, validate.Input{
		Identity: in.Identity,
		Name:     in.Name,
		Mobile:   in.Mobile,
		UserID:   userID,
	})
	if errs != nil {
		e.metrics.Inc(MetricValidationRejected)
		return Account{}, errs
	}

	update := UpdateAccountInput{Name: &in.Name, Avatar: in.Avatar}
	if in.Mobile != "" {
		update.Mobile = &in.Mobile
	}
	account, err := e.accounts.UpdateAccount(ctx, userID, update)
	if err != nil {
		if errors.Is(err, ErrAccountUnknown) {
			return Account{}, ErrAccountUnknown
		}
		return Account{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if err := e.refreshSnapshot(ctx, account); err != nil {
		e.log.Warn().Err(err).Int64("user_id", userID).Msg("bundle snapshot not refreshed")
	}
	return account, nil
}

// UpdateCredential verifies the current credential before storing a new
// hash, then drops every session so stolen tokens die with the old
// credential.
func (e *Engine) UpdateCredential(ctx context.Context, userID int64, current, next string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	errs := e.chains.Run(ctx, validate.PurposePasswordUpdate, validate.Input{Password: next, UserID: userID})
	if errs != nil {
		e.metrics.Inc(MetricValidationRejected)
		return errs
	}

	hash, err := e.accounts.CredentialHash(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrAccountUnknown) {
			return ErrAccountUnknown
		}
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	ok, err := e.hasher.Verify(current, hash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	nextHash, err := e.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash credential: %w", err)
	}
	if err := e.accounts.UpdateCredential(ctx, userID, nextHash); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if err := e.DropUserCache(ctx, userID); err != nil {
		e.log.Warn().Err(err).Int64("user_id", userID).Msg("sessions not dropped after credential change")
	}
	e.emitAudit(ctx, audit.TypeCredentialChanged, userID, true, nil, nil)
	e.log.Info().Int64("user_id", userID).Msg("credential updated")
	return nil
}

// refreshSnapshot rewrites the bundle's account snapshot in place. A
// missing bundle is not an error: the user simply has no live session,
// and no bundle is created for them here.
func (e *Engine) refreshSnapshot(ctx context.Context, account Account) error {
	if _, err := e.sessions.Load(ctx, account.ID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		return err
	}
	_, err := e.sessions.Mutate(ctx, account.ID, func(b *session.Bundle) {
		b.Account = snapshotFromAccount(account)
	})
	return err
}
