package userguard

import (
	"context"
	"errors"
	"fmt"

	"github.com/identware/userguard/internal"
	"github.com/identware/userguard/internal/audit"
	"github.com/identware/userguard/session"
	"github.com/identware/userguard/validate"
)

// RequestOTP issues a one-time code for the given purpose and stores it in
// the user's session bundle. The code is returned to the caller for
// delivery; the engine does not send email or SMS itself.
//
// A still-pending code blocks re-issue with [ErrOTPPending] unless the
// configuration permits it.
func (e *Engine) RequestOTP(ctx context.Context, userID int64, purpose OTPPurpose, target string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	switch purpose {
	case OTPEmail:
		if errs := e.chains.Run(ctx, validate.PurposeEmailRequest, validate.Input{Email: target, UserID: userID}); errs != nil {
			e.metrics.Inc(MetricValidationRejected)
			return "", errs
		}
	case OTPMobile:
		if errs := e.chains.Run(ctx, validate.PurposeMobileRequest, validate.Input{Mobile: target, UserID: userID}); errs != nil {
			e.metrics.Inc(MetricValidationRejected)
			return "", errs
		}
	}

	if !e.config.OTP.ReissuePending {
		bundle, err := e.sessions.Load(ctx, userID)
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			return "", fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
		if bundle != nil {
			if _, pending := bundle.PendingOTP(string(purpose), e.now()); pending {
				return "", ErrOTPPending
			}
		}
	}

	code, err := internal.NewOTP(e.config.OTP.Digits)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	expire := e.now().Add(e.config.OTP.TTL)
	_, err = e.sessions.Mutate(ctx, userID, func(b *session.Bundle) {
		b.SetOTP(code, string(purpose), target, expire)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	e.metrics.Inc(MetricOTPIssued)
	e.emitAudit(ctx, audit.TypeOTPIssued, userID, true, nil, map[string]string{"purpose": string(purpose)})
	e.log.Info().Int64("user_id", userID).Str("purpose", string(purpose)).Msg("otp issued")
	return code, nil
}

// VerifyOTP checks a submitted code against the pending one. On success
// the code is consumed and, for email/mobile purposes, the verified target
// is persisted to the account; a Pending account becomes Active.
func (e *Engine) VerifyOTP(ctx context.Context, userID int64, purpose OTPPurpose, target, code string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	bundle, err := e.sessions.Load(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.metrics.Inc(MetricOTPRejected)
			return ErrOTPInvalid
		}
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	pending, ok := bundle.PendingOTP(string(purpose), e.now())
	if !ok || pending.Target != target || pending.Code != code {
		e.metrics.Inc(MetricOTPRejected)
		return ErrOTPInvalid
	}

	// Single use: the code is gone before any side effect runs.
	if _, err := e.sessions.Mutate(ctx, userID, func(b *session.Bundle) {
		b.ClearOTP()
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	switch purpose {
	case OTPEmail, OTPMobile:
		if err := e.confirmTarget(ctx, userID, purpose, target); err != nil {
			return err
		}
	}

	e.metrics.Inc(MetricOTPVerified)
	e.emitAudit(ctx, audit.TypeOTPVerified, userID, true, nil, map[string]string{"purpose": string(purpose)})
	e.log.Info().Int64("user_id", userID).Str("purpose", string(purpose)).Msg("otp verified")
	return nil
}

// confirmTarget stores the verified email or mobile and activates pending
// accounts.
func (e *Engine) confirmTarget(ctx context.Context, userID int64, purpose OTPPurpose, target string) error {
	update := UpdateAccountInput{}
	if purpose == OTPEmail {
		update.Email = &target
	} else {
		update.Mobile = &target
	}
	account, err := e.accounts.UpdateAccount(ctx, userID, update)
	if err != nil {
		if errors.Is(err, ErrAccountUnknown) {
			return ErrAccountUnknown
		}
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if account.Status == AccountPending {
		if err := e.accounts.UpdateStatus(ctx, userID, AccountActive); err != nil {
			return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		account.Status = AccountActive
	}
	if err := e.refreshSnapshot(ctx, account); err != nil {
		e.log.Warn().Err(err).Int64("user_id", userID).Msg("bundle snapshot not refreshed")
	}
	return nil
}
