package middleware

import (
	"encoding/json"
	"net/http"

	userguard "github.com/identware/userguard"
	"github.com/identware/userguard/validate"
)

// payloadFields are the request-body keys the validation layer recognizes.
type payloadFields struct {
	Identity   string `json:"identity"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Mobile     string `json:"mobile"`
	Credential string `json:"credential"`
	OTP        string `json:"otp"`
}

// Validate runs the route's validation chain against the JSON payload
// before the handler sees it. Routes without a declared purpose pass
// through. The handler re-decodes the body itself; the security layer
// already restored it after capture.
func Validate(engine *userguard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := ScopeFromContext(r.Context())
			if scope == nil {
				WriteError(w, userguard.ErrEngineNotReady)
				return
			}
			purpose := scope.Meta.Purpose
			if purpose == "" {
				next.ServeHTTP(w, r)
				return
			}

			var fields payloadFields
			if scope.Stream != nil && len(scope.Stream.Body) > 0 {
				if err := json.Unmarshal(scope.Stream.Body, &fields); err != nil {
					WriteError(w, ErrMalformedBody)
					return
				}
			}

			in := validate.Input{
				Identity: fields.Identity,
				Name:     fields.Name,
				Email:    fields.Email,
				Mobile:   fields.Mobile,
				Password: fields.Credential,
				OTP:      fields.OTP,
				UserID:   scope.Account.ID,
			}
			if errs := engine.ValidateInput(r.Context(), purpose, in); errs != nil {
				WriteError(w, errs)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
