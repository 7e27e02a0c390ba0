package session

import (
	"time"

	"github.com/identware/userguard/token"
)

// AccountSnapshot is the bundle-local copy of the account row, refreshed on
// login and on profile updates. It avoids a provider round-trip on every
// authenticated request.
type AccountSnapshot struct {
	ID          int64  `json:"id"`
	Identity    string `json:"identity"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Mobile      string `json:"mobile"`
	Avatar      string `json:"avatar,omitempty"`
	Status      uint8  `json:"status"`
	TimeCreated int64  `json:"time_created"`
}

// OTP is a pending one-time code. A bundle holds at most one.
type OTP struct {
	Code       string `json:"code"`
	Purpose    string `json:"purpose"`
	Target     string `json:"target,omitempty"`
	TimeExpire int64  `json:"time_expire"`
}

// Expired reports whether the code is past its expiry at the given instant.
func (o *OTP) Expired(now time.Time) bool {
	return o == nil || o.TimeExpire <= now.Unix()
}

// Bundle is the cached session state for one user.
type Bundle struct {
	Account       AccountSnapshot `json:"account"`
	Roles         []string        `json:"roles"`
	AccessTokens  []string        `json:"access_tokens,omitempty"`
	RefreshTokens []string        `json:"refresh_tokens,omitempty"`
	OTP           *OTP            `json:"otp,omitempty"`
	// DeviceTokens is written by sibling deployments; carried so Mutate
	// round-trips do not drop it.
	DeviceTokens []string `json:"device_tokens,omitempty"`
	TimeUpdated  int64    `json:"time_updated"`
}

func (b *Bundle) tokens(kind token.Kind) *[]string {
	if kind == token.KindRefresh {
		return &b.RefreshTokens
	}
	return &b.AccessTokens
}

// HasToken reports whether the token id is live for the given kind.
func (b *Bundle) HasToken(kind token.Kind, id string) bool {
	for _, t := range *b.tokens(kind) {
		if t == id {
			return true
		}
	}
	return false
}

// AttachToken records a newly issued token id. Duplicate ids are ignored.
func (b *Bundle) AttachToken(kind token.Kind, id string) {
	if id == "" || b.HasToken(kind, id) {
		return
	}
	list := b.tokens(kind)
	*list = append(*list, id)
}

// DetachToken removes a token id, reporting whether it was present.
func (b *Bundle) DetachToken(kind token.Kind, id string) bool {
	list := b.tokens(kind)
	for i, t := range *list {
		if t == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

// SetOTP replaces the pending code.
func (b *Bundle) SetOTP(code, purpose, target string, expire time.Time) {
	b.OTP = &OTP{
		Code:       code,
		Purpose:    purpose,
		Target:     target,
		TimeExpire: expire.Unix(),
	}
}

// ClearOTP drops the pending code, reporting whether one was present.
func (b *Bundle) ClearOTP() bool {
	had := b.OTP != nil
	b.OTP = nil
	return had
}

// PendingOTP returns the live code for a purpose, or false when none is
// pending or the pending code has expired.
func (b *Bundle) PendingOTP(purpose string, now time.Time) (*OTP, bool) {
	if b.OTP == nil || b.OTP.Purpose != purpose || b.OTP.Expired(now) {
		return nil, false
	}
	return b.OTP, true
}
