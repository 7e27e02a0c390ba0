package userguard

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/identware/userguard/internal/audit"
	"github.com/identware/userguard/session"
)

// AssignRole grants a role to an account, invalidates the role cache, and
// updates the user's session bundle so live sessions pick up the grant on
// their next request.
func (e *Engine) AssignRole(ctx context.Context, userID int64, role string, section Section) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.requireRole(ctx, role, section); err != nil {
		return err
	}
	if err := e.roles.AssignRole(ctx, userID, role, section); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	e.emitAudit(ctx, audit.TypeRoleAssigned, userID, true, nil, map[string]string{"role": role, "section": string(section)})
	return e.syncRoles(ctx, userID, section)
}

// RevokeRole removes a role from an account with the same cache and bundle
// propagation as AssignRole.
func (e *Engine) RevokeRole(ctx context.Context, userID int64, role string, section Section) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.requireRole(ctx, role, section); err != nil {
		return err
	}
	if err := e.roles.RevokeRole(ctx, userID, role, section); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	e.emitAudit(ctx, audit.TypeRoleRevoked, userID, true, nil, map[string]string{"role": role, "section": string(section)})
	return e.syncRoles(ctx, userID, section)
}

// RefreshRoles drops the cached role tables so the next check re-reads the
// provider. Role and permission edits made outside the engine need this to
// take effect before the cache TTL runs out.
func (e *Engine) RefreshRoles(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.registry.Invalidate(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	e.metrics.Inc(MetricRoleCacheInvalidated)
	return nil
}

// AccountRoles returns the account's stored role names for a section,
// filtered against the live role list.
func (e *Engine) AccountRoles(ctx context.Context, userID int64, section Section) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	claimed, err := e.roles.AccountRoles(ctx, userID, section)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	roles, err := e.registry.Filter(ctx, claimed, section)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return roles, nil
}

// SetAccountStatus is the operator path for activating, deactivating, or
// soft-deleting an account. Any transition away from Active also drops the
// user's sessions.
func (e *Engine) SetAccountStatus(ctx context.Context, userID int64, status AccountStatus) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.accounts.UpdateStatus(ctx, userID, status); err != nil {
		if errors.Is(err, ErrAccountUnknown) {
			return ErrAccountUnknown
		}
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if status != AccountActive {
		if err := e.DropUserCache(ctx, userID); err != nil {
			return err
		}
	}
	e.log.Info().Int64("user_id", userID).Uint8("status", uint8(status)).Msg("account status changed")
	return nil
}

// requireRole rejects role names absent from the live list of the section.
func (e *Engine) requireRole(ctx context.Context, role string, section Section) error {
	live, err := e.registry.SectionRoles(ctx, section)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if !slices.Contains(live, role) {
		return ErrRoleUnknown
	}
	return nil
}

// syncRoles invalidates the role cache and rewrites the bundle's role list
// from the provider after a role mutation.
func (e *Engine) syncRoles(ctx context.Context, userID int64, section Section) error {
	if err := e.registry.Invalidate(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	e.metrics.Inc(MetricRoleCacheInvalidated)

	claimed, err := e.roles.AccountRoles(ctx, userID, section)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if _, err := e.sessions.Load(ctx, userID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if _, err := e.sessions.Mutate(ctx, userID, func(b *session.Bundle) {
		b.Roles = claimed
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
