package userguard

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method is called before Build.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrTokenMissing is returned when a protected request carries no token header.
	ErrTokenMissing = errors.New("token required for authentication")
	// ErrTokenInvalid covers every token parse failure: bad signature, malformed
	// payload, expiry, or a deleted cache mirror. The causes are deliberately
	// indistinguishable to callers.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenKind is returned when a refresh token is presented where an access
	// token is required, or vice versa.
	ErrTokenKind = errors.New("token not allowed for authentication")
	// ErrTokenRevoked is returned when the token id is absent from the owning
	// user's session bundle.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrAccountUnknown is returned when a well-formed token resolves to no account.
	ErrAccountUnknown = errors.New("account not found")
	// ErrAccountInactive is returned when the resolved account is not active.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountLocked is returned while a lock window is open for the account or
	// the caller's IP.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidCredentials is returned on a failed password check.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIdentityExists is returned when registration hits a duplicate identity,
	// email, or mobile.
	ErrIdentityExists = errors.New("identity already registered")
	// ErrPermissionDenied is returned when no surviving role grants the
	// permission key of the matched route.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrRoleUnknown is returned when a role operation names a role absent from
	// the live role list.
	ErrRoleUnknown = errors.New("unknown role")
	// ErrOTPInvalid is returned when the supplied one-time code does not match
	// the pending code or the pending code has expired.
	ErrOTPInvalid = errors.New("invalid or expired verification code")
	// ErrOTPPending is returned when a new code is requested before the previous
	// one expired and re-issue is disabled.
	ErrOTPPending = errors.New("verification code already issued")
	// ErrCacheUnavailable wraps Redis transport failures.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrProviderUnavailable wraps account/role provider failures.
	ErrProviderUnavailable = errors.New("account backend unavailable")
)
