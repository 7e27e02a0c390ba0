package userguard

import (
	"context"
	"errors"
	"fmt"

	"github.com/identware/userguard/internal/audit"
	"github.com/identware/userguard/session"
	"github.com/identware/userguard/token"
	"github.com/identware/userguard/validate"
)

// Login authenticates identity/credential and on success rebuilds the
// user's session bundle and issues a fresh access/refresh pair.
//
// Failed attempts are counted per account and per caller IP (taken from
// the context, see [WithClientIP]); reaching the configured threshold
// opens a lock window enforced by TTL. Attempts made while a lock window
// is open do not extend it.
func (e *Engine) Login(ctx context.Context, identity, credential string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)

	if errs := e.chains.Run(ctx, validate.PurposeLogin, validate.Input{Identity: identity, Password: credential}); errs != nil {
		e.metrics.Inc(MetricValidationRejected)
		return nil, errs
	}

	if err := e.checkLocks(ctx, 0, ip); err != nil {
		return nil, err
	}

	account, err := e.accounts.AccountByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrAccountUnknown) {
			e.noteFailure(ctx, 0, ip)
			e.metrics.Inc(MetricLoginFailure)
			e.emitAudit(ctx, audit.TypeLoginFailed, 0, false, ErrAccountUnknown, map[string]string{"identity": identity})
			return nil, ErrAccountUnknown
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if account.Status != AccountActive {
		e.metrics.Inc(MetricLoginFailure)
		return nil, ErrAccountInactive
	}
	if err := e.checkLocks(ctx, account.ID, ""); err != nil {
		return nil, err
	}

	hash, err := e.accounts.CredentialHash(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	ok, err := e.hasher.Verify(credential, hash)
	if err != nil {
		e.log.Error().Err(err).Int64("user_id", account.ID).Msg("credential hash unreadable")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		e.noteFailure(ctx, account.ID, ip)
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, audit.TypeLoginFailed, account.ID, false, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if err := e.clearFailures(ctx, account.ID, ip); err != nil {
		e.log.Warn().Err(err).Int64("user_id", account.ID).Msg("attempt counters not reset")
	}

	result, err := e.issueSession(ctx, account)
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, audit.TypeLogin, account.ID, true, nil, nil)
	e.log.Info().Int64("user_id", account.ID).Str("ip", ip).Msg("login")
	return result, nil
}

// Refresh rotates a refresh token: the presented token and its session
// entry are revoked and a new access/refresh pair is issued. The bundle's
// account snapshot and roles are re-read from the providers.
func (e *Engine) Refresh(ctx context.Context, rawRefresh string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	authn, err := e.Authenticate(ctx, rawRefresh, TokenRefresh)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, err
	}

	account, err := e.accounts.AccountByID(ctx, authn.Account.ID)
	if err != nil {
		if errors.Is(err, ErrAccountUnknown) {
			e.metrics.Inc(MetricRefreshFailure)
			return nil, ErrAccountUnknown
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if account.Status != AccountActive {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, ErrAccountInactive
	}

	if err := e.revokeToken(ctx, account.ID, TokenRefresh, authn.TokenID); err != nil {
		return nil, err
	}

	result, err := e.issueSession(ctx, account)
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(MetricRefreshSuccess)
	return result, nil
}

// Logout ends the session behind the presented access token: every token
// the bundle indexes is revoked and the bundle itself is deleted, so the
// paired refresh token cannot resurrect the session.
func (e *Engine) Logout(ctx context.Context, rawAccess string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	authn, err := e.Authenticate(ctx, rawAccess, TokenAccess)
	if err != nil {
		return err
	}
	if err := e.DropUserCache(ctx, authn.Account.ID); err != nil {
		return err
	}
	e.metrics.Inc(MetricLogout)
	e.emitAudit(ctx, audit.TypeLogout, authn.Account.ID, true, nil, nil)
	e.log.Info().Int64("user_id", authn.Account.ID).Msg("logout")
	return nil
}

// DropUserCache deletes the user's session bundle and every token mirror
// it indexes, ending all sessions immediately.
func (e *Engine) DropUserCache(ctx context.Context, userID int64) error {
	if e == nil {
		return ErrEngineNotReady
	}
	bundle, err := e.sessions.Load(ctx, userID)
	switch {
	case err == nil:
		for _, id := range bundle.AccessTokens {
			if err := e.codec.Revoke(ctx, id); err != nil {
				return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
			}
		}
		for _, id := range bundle.RefreshTokens {
			if err := e.codec.Revoke(ctx, id); err != nil {
				return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
			}
		}
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrCorrupt):
		// Nothing indexed; still drop the bundle key below.
	default:
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	if err := e.sessions.Delete(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	e.metrics.Inc(MetricTokenRevoked)
	e.emitAudit(ctx, audit.TypeTokenRevoked, userID, true, nil, map[string]string{"scope": "all"})
	return nil
}

// issueSession rebuilds the bundle from the providers and issues a token
// pair bound to it.
func (e *Engine) issueSession(ctx context.Context, account Account) (*LoginResult, error) {
	section := sectionFromContext(ctx)
	claimed, err := e.roles.AccountRoles(ctx, account.ID, section)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	roles, err := e.registry.Filter(ctx, claimed, section)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	access, accessClaims, err := e.codec.Generate(ctx, account.ID, token.KindAccess, roles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	refresh, refreshClaims, err := e.codec.Generate(ctx, account.ID, token.KindRefresh, roles)
	if err != nil {
		// Do not leave a dangling usable access token.
		_ = e.codec.Revoke(ctx, accessClaims.ID)
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	_, err = e.sessions.Mutate(ctx, account.ID, func(b *session.Bundle) {
		b.Account = snapshotFromAccount(account)
		b.Roles = roles
		b.AttachToken(token.KindAccess, accessClaims.ID)
		b.AttachToken(token.KindRefresh, refreshClaims.ID)
	})
	if err != nil {
		_ = e.codec.Revoke(ctx, accessClaims.ID)
		_ = e.codec.Revoke(ctx, refreshClaims.ID)
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	e.metrics.Inc(MetricTokenIssued)
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Account:      account,
		Roles:        roles,
	}, nil
}

// revokeToken removes one token from both validity legs: the cache mirror
// and the session bundle index.
func (e *Engine) revokeToken(ctx context.Context, userID int64, kind TokenKind, id string) error {
	if err := e.codec.Revoke(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	_, err := e.sessions.Mutate(ctx, userID, func(b *session.Bundle) {
		b.DetachToken(kind, id)
	})
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	e.metrics.Inc(MetricTokenRevoked)
	return nil
}

func (e *Engine) checkLocks(ctx context.Context, userID int64, ip string) error {
	if userID > 0 {
		locked, err := e.locks.IsAccountLocked(ctx, userID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
		if locked {
			e.metrics.Inc(MetricLoginLocked)
			return ErrAccountLocked
		}
	}
	if ip != "" {
		locked, err := e.locks.IsIPLocked(ctx, ip)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
		if locked {
			e.metrics.Inc(MetricLoginLocked)
			return ErrAccountLocked
		}
	}
	return nil
}

// noteFailure records a failed attempt on both counters. Limiter errors
// are logged, not surfaced: a cache hiccup must not mask the credential
// failure the caller is about to receive.
func (e *Engine) noteFailure(ctx context.Context, userID int64, ip string) {
	if userID > 0 {
		res, err := e.attempts.IncrementAccount(ctx, userID)
		if err != nil {
			e.log.Warn().Err(err).Int64("user_id", userID).Msg("account attempt counter failed")
		} else if !res.CanTry || res.Remaining == 0 {
			e.metrics.Inc(MetricAccountLocked)
			e.emitAudit(ctx, audit.TypeAccountLocked, userID, false, nil, nil)
			e.log.Warn().Int64("user_id", userID).Msg("account locked")
		}
	}
	if ip != "" {
		res, err := e.attempts.IncrementIP(ctx, ip)
		if err != nil {
			e.log.Warn().Err(err).Str("ip", ip).Msg("ip attempt counter failed")
		} else if !res.CanTry || res.Remaining == 0 {
			e.log.Warn().Str("ip", ip).Msg("ip locked")
		}
	}
}

func (e *Engine) clearFailures(ctx context.Context, userID int64, ip string) error {
	if err := e.attempts.ResetAccount(ctx, userID); err != nil {
		return err
	}
	if ip != "" {
		return e.attempts.ResetIP(ctx, ip)
	}
	return nil
}

// UnlockAccount clears an account's lock window and attempt counter ahead
// of TTL expiry. Operator surface; the lock itself only ends by TTL or
// through this call.
func (e *Engine) UnlockAccount(ctx context.Context, userID int64) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.locks.UnlockAccount(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	e.metrics.Inc(MetricAccountUnlocked)
	e.emitAudit(ctx, audit.TypeAccountUnlocked, userID, true, nil, nil)
	return nil
}

// UnlockIP clears an IP lock window and its attempt counter.
func (e *Engine) UnlockIP(ctx context.Context, ip string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.locks.UnlockIP(ctx, ip); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
