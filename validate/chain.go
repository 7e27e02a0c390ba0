package validate

import (
	"context"
	"sort"
	"strings"
)

// Purpose selects which filter set a chain run applies.
type Purpose string

const (
	PurposeLogin          Purpose = "login"
	PurposeRegister       Purpose = "register"
	PurposeEditProfile    Purpose = "edit-profile"
	PurposePasswordAdd    Purpose = "password-add"
	PurposePasswordUpdate Purpose = "password-update"
	PurposeEmailRequest   Purpose = "email-request"
	PurposeEmailVerify    Purpose = "email-verify"
	PurposeMobileRequest  Purpose = "mobile-request"
	PurposeMobileVerify   Purpose = "mobile-verify"
)

// FieldErrors maps field names to human-readable rejection messages. A nil
// map means the input passed.
type FieldErrors map[string]string

// Error joins the messages in field order.
func (f FieldErrors) Error() string {
	if len(f) == 0 {
		return "input validation failed"
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return strings.Join(parts, "; ")
}

// Accounts answers the uniqueness lookups register and profile edits need.
// excludeID lets a user keep their own identity/email/mobile on edit.
type Accounts interface {
	IdentityTaken(ctx context.Context, identity string, excludeID int64) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	MobileTaken(ctx context.Context, mobile string, excludeID int64) (bool, error)
}

// OTPSource reports the pending one-time code for a purpose/target pair, or
// "" when none is outstanding.
type OTPSource interface {
	PendingCode(ctx context.Context, userID int64, purpose, target string) (string, error)
}

// Input carries every field a chain run might inspect; unused fields are
// ignored by purposes that do not declare them.
type Input struct {
	Identity string
	Name     string
	Email    string
	Mobile   string
	Password string
	OTP      string
	UserID   int64
}

// Chain runs per-purpose filter sets. Chains only consult the lookups their
// purpose declares, so a login run never touches Accounts or OTPSource.
type Chain struct {
	opts     Options
	accounts Accounts
	otp      OTPSource
}

// NewChain builds a chain; accounts and otp may be nil when no purpose
// needing them will be run.
func NewChain(opts Options, accounts Accounts, otp OTPSource) *Chain {
	return &Chain{opts: opts.Clone(), accounts: accounts, otp: otp}
}

// Run applies the purpose's filters to in and returns the field-scoped
// failures, nil when the input is clean. Running the same input twice
// yields the same result; filters never mutate in. Lookup errors surface
// as the lookup's field failing with a generic message.
func (c *Chain) Run(ctx context.Context, purpose Purpose, in Input) FieldErrors {
	errs := FieldErrors{}
	switch purpose {
	case PurposeLogin:
		c.field(errs, "identity", checkIdentity(in.Identity, c.opts))
		c.field(errs, "credential", checkPassword(in.Password, c.opts))
	case PurposeRegister:
		c.field(errs, "identity", checkIdentity(in.Identity, c.opts))
		c.field(errs, "name", checkName(in.Name, c.opts))
		c.field(errs, "email", checkEmail(in.Email))
		c.field(errs, "credential", checkPassword(in.Password, c.opts))
		if in.Mobile != "" {
			c.field(errs, "mobile", checkMobile(in.Mobile))
		}
		c.unique(ctx, errs, in, 0)
	case PurposeEditProfile:
		c.field(errs, "identity", checkIdentity(in.Identity, c.opts))
		c.field(errs, "name", checkName(in.Name, c.opts))
		if in.Mobile != "" {
			c.field(errs, "mobile", checkMobile(in.Mobile))
		}
		c.uniqueIdentity(ctx, errs, in.Identity, in.UserID)
	case PurposePasswordAdd, PurposePasswordUpdate:
		c.field(errs, "credential", checkPassword(in.Password, c.opts))
	case PurposeEmailRequest:
		c.field(errs, "email", checkEmail(in.Email))
		if errs["email"] == "" {
			c.uniqueEmail(ctx, errs, in.Email, in.UserID)
		}
	case PurposeEmailVerify:
		c.field(errs, "email", checkEmail(in.Email))
		c.field(errs, "otp", checkOTPFormat(in.OTP, c.opts))
		c.pendingOTP(ctx, errs, in.UserID, "email", in.Email, in.OTP)
	case PurposeMobileRequest:
		c.field(errs, "mobile", checkMobile(in.Mobile))
		if errs["mobile"] == "" {
			c.uniqueMobile(ctx, errs, in.Mobile, in.UserID)
		}
	case PurposeMobileVerify:
		c.field(errs, "mobile", checkMobile(in.Mobile))
		c.field(errs, "otp", checkOTPFormat(in.OTP, c.opts))
		c.pendingOTP(ctx, errs, in.UserID, "mobile", in.Mobile, in.OTP)
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (c *Chain) field(errs FieldErrors, name, msg string) {
	if msg != "" && errs[name] == "" {
		errs[name] = msg
	}
}

func (c *Chain) unique(ctx context.Context, errs FieldErrors, in Input, excludeID int64) {
	if errs["identity"] == "" {
		c.uniqueIdentity(ctx, errs, in.Identity, excludeID)
	}
	if errs["email"] == "" {
		c.uniqueEmail(ctx, errs, in.Email, excludeID)
	}
	if in.Mobile != "" && errs["mobile"] == "" {
		c.uniqueMobile(ctx, errs, in.Mobile, excludeID)
	}
}

func (c *Chain) uniqueIdentity(ctx context.Context, errs FieldErrors, identity string, excludeID int64) {
	if c.accounts == nil || errs["identity"] != "" {
		return
	}
	taken, err := c.accounts.IdentityTaken(ctx, identity, excludeID)
	if err != nil {
		errs["identity"] = "identity could not be verified"
		return
	}
	if taken {
		errs["identity"] = "identity is already taken"
	}
}

func (c *Chain) uniqueEmail(ctx context.Context, errs FieldErrors, email string, excludeID int64) {
	if c.accounts == nil {
		return
	}
	taken, err := c.accounts.EmailTaken(ctx, email, excludeID)
	if err != nil {
		errs["email"] = "email could not be verified"
		return
	}
	if taken {
		errs["email"] = "email is already taken"
	}
}

func (c *Chain) uniqueMobile(ctx context.Context, errs FieldErrors, mobile string, excludeID int64) {
	if c.accounts == nil {
		return
	}
	taken, err := c.accounts.MobileTaken(ctx, mobile, excludeID)
	if err != nil {
		errs["mobile"] = "mobile could not be verified"
		return
	}
	if taken {
		errs["mobile"] = "mobile is already taken"
	}
}

func (c *Chain) pendingOTP(ctx context.Context, errs FieldErrors, userID int64, purpose, target, code string) {
	if c.otp == nil || errs["otp"] != "" {
		return
	}
	pending, err := c.otp.PendingCode(ctx, userID, purpose, target)
	if err != nil {
		errs["otp"] = "otp could not be verified"
		return
	}
	if pending == "" || pending != code {
		errs["otp"] = "otp is not valid"
	}
}
