package userguard

import (
	"context"
	"time"

	"github.com/identware/userguard/internal/limiters"
	"github.com/identware/userguard/permission"
	"github.com/identware/userguard/token"
	"github.com/identware/userguard/validate"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	// AccountInactive marks a registered account that may not authenticate.
	AccountInactive AccountStatus = 0
	// AccountActive marks a fully usable account.
	AccountActive AccountStatus = 1
	// AccountPending marks an account awaiting email or mobile verification.
	AccountPending AccountStatus = 2
	// AccountDeleted marks a soft-deleted account.
	AccountDeleted AccountStatus = 3
)

// Account is the identity record resolved for every authenticated request.
// It is immutable once attached to a request scope; persistence belongs to
// the [AccountProvider].
type Account struct {
	ID          int64
	Identity    string
	Name        string
	Email       string
	Mobile      string
	Avatar      string
	Status      AccountStatus
	TimeCreated time.Time
}

// CreateAccountInput is the input for [AccountProvider.CreateAccount].
// CredentialHash must already be hashed; the engine never hands plaintext
// credentials to a provider.
type CreateAccountInput struct {
	Identity       string
	Name           string
	Email          string
	Mobile         string
	CredentialHash string
	Status         AccountStatus
}

// UpdateAccountInput carries the mutable profile fields. Nil pointers leave
// the stored value untouched.
type UpdateAccountInput struct {
	Name   *string
	Email  *string
	Mobile *string
	Avatar *string
}

// AccountProvider is the interface callers implement to connect userguard to
// their account database. Lookups return [ErrAccountUnknown] for missing
// rows; any other error is treated as backend unavailability.
type AccountProvider interface {
	AccountByID(ctx context.Context, id int64) (Account, error)
	AccountByIdentity(ctx context.Context, identity string) (Account, error)
	AccountByEmail(ctx context.Context, email string) (Account, error)
	AccountByMobile(ctx context.Context, mobile string) (Account, error)
	CredentialHash(ctx context.Context, id int64) (string, error)
	CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error)
	UpdateAccount(ctx context.Context, id int64, in UpdateAccountInput) (Account, error)
	UpdateStatus(ctx context.Context, id int64, status AccountStatus) error
	UpdateCredential(ctx context.Context, id int64, hash string) error
	IdentityTaken(ctx context.Context, identity string, excludeID int64) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	MobileTaken(ctx context.Context, mobile string, excludeID int64) (bool, error)
}

// RoleProvider supplies the live role and permission tables. The read half is
// [permission.Source]; the association ops mutate the account↔role mapping.
type RoleProvider interface {
	permission.Source
	AccountRoles(ctx context.Context, userID int64, section permission.Section) ([]string, error)
	AssignRole(ctx context.Context, userID int64, role string, section permission.Section) error
	RevokeRole(ctx context.Context, userID int64, role string, section permission.Section) error
}

// Section partitions the API surface into end-user ("api") and back-office
// ("admin") halves.
type Section = permission.Section

const (
	// SectionAPI is the end-user surface.
	SectionAPI = permission.SectionAPI
	// SectionAdmin is the back-office surface.
	SectionAdmin = permission.SectionAdmin
)

// Role is a named grant scoped to a [Section].
type Role = permission.Role

// Permission maps a route key to the role names that grant it.
type Permission = permission.Permission

// Claims is the decoded payload of a parsed bearer token.
type Claims = token.Claims

// TokenKind distinguishes access from refresh tokens.
type TokenKind = token.Kind

const (
	// TokenAccess is the short-lived request token.
	TokenAccess = token.KindAccess
	// TokenRefresh is the long-lived renewal token.
	TokenRefresh = token.KindRefresh
)

// AttemptResult reports the outcome of recording a failed login attempt.
type AttemptResult = limiters.AttemptResult

// FieldErrors is a field→message map produced by the validation chains.
type FieldErrors = validate.FieldErrors

// LoginResult is returned by [Engine.Login] on success.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Account      Account
	Roles        []string
}

// AuthnResult is the per-request outcome of [Engine.Authenticate]: the
// resolved account, its cached roles, and the id of the presented token.
type AuthnResult struct {
	Account Account
	Roles   []string
	TokenID string
}

// OTPPurpose names the flows that consume a one-time code.
type OTPPurpose string

const (
	// OTPEmail verifies a new or changed email address.
	OTPEmail OTPPurpose = "email"
	// OTPMobile verifies a new or changed mobile number.
	OTPMobile OTPPurpose = "mobile"
	// OTPMFA is the second login factor.
	OTPMFA OTPPurpose = "mfa"
)
