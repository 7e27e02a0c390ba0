package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	userguard "github.com/identware/userguard"
	"github.com/identware/userguard/middleware"
)

// accountPayload is the wire shape of an account.
type accountPayload struct {
	ID          int64  `json:"id"`
	Identity    string `json:"identity"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Mobile      string `json:"mobile,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	Status      uint8  `json:"status"`
	TimeCreated string `json:"time_created"`
}

func accountToPayload(a userguard.Account) accountPayload {
	return accountPayload{
		ID:          a.ID,
		Identity:    a.Identity,
		Name:        a.Name,
		Email:       a.Email,
		Mobile:      a.Mobile,
		Avatar:      a.Avatar,
		Status:      uint8(a.Status),
		TimeCreated: a.TimeCreated.UTC().Format(time.RFC3339),
	}
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return middleware.ErrMalformedBody
	}
	return nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Identity   string `json:"identity"`
		Credential string `json:"credential"`
	}
	if err := decode(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}

	res, err := s.engine.Login(r.Context(), in.Identity, in.Credential)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
		"account":       accountToPayload(res.Account),
		"roles":         res.Roles,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := r.Header.Get(middleware.TokenHeader)
	res, err := s.engine.Refresh(r.Context(), raw)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Logout(r.Context(), r.Header.Get(middleware.TokenHeader)); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Identity   string `json:"identity"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		Mobile     string `json:"mobile"`
		Credential string `json:"credential"`
	}
	if err := decode(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}

	account, err := s.engine.Register(r.Context(), userguard.RegisterInput{
		Identity:   in.Identity,
		Name:       in.Name,
		Email:      in.Email,
		Mobile:     in.Mobile,
		Credential: in.Credential,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, accountToPayload(account))
}

func (s *Server) handleProfileView(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromContext(r.Context())
	account, err := s.engine.ViewAccount(r.Context(), scope.Account.ID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, accountToPayload(account))
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromContext(r.Context())
	var in struct {
		Identity string  `json:"identity"`
		Name     string  `json:"name"`
		Mobile   string  `json:"mobile"`
		Avatar   *string `json:"avatar"`
	}
	if err := decode(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}

	account, err := s.engine.UpdateProfile(r.Context(), scope.Account.ID, userguard.ProfileInput{
		Identity: in.Identity,
		Name:     in.Name,
		Mobile:   in.Mobile,
		Avatar:   in.Avatar,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, accountToPayload(account))
}

func (s *Server) handleCredentialUpdate(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromContext(r.Context())
	var in struct {
		Current    string `json:"current"`
		Credential string `json:"credential"`
	}
	if err := decode(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}

	if err := s.engine.UpdateCredential(r.Context(), scope.Account.ID, in.Current, in.Credential); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (s *Server) handleOTPRequest(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromContext(r.Context())
	var in struct {
		Purpose string `json:"purpose"`
		Target  string `json:"target"`
	}
	if err := decode(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}

	// The code is handed to the delivery layer, never echoed to the caller.
	_, err := s.engine.RequestOTP(r.Context(), scope.Account.ID, userguard.OTPPurpose(in.Purpose), in.Target)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"sent": true})
}

func (s *Server) handleOTPVerify(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromContext(r.Context())
	var in struct {
		Purpose string `json:"purpose"`
		Target  string `json:"target"`
		OTP     string `json:"otp"`
	}
	if err := decode(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}

	if err := s.engine.VerifyOTP(r.Context(), scope.Account.ID, userguard.OTPPurpose(in.Purpose), in.Target, in.OTP); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"verified": true})
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := s.engine.UnlockAccount(r.Context(), userID); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"unlocked": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var in struct {
		Status uint8 `json:"status"`
	}
	if err := decode(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := s.engine.SetAccountStatus(r.Context(), userID, userguard.AccountStatus(in.Status)); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"status": in.Status})
}

func (s *Server) handleRoleAssign(w http.ResponseWriter, r *http.Request) {
	s.handleRoleChange(w, r, s.engine.AssignRole)
}

func (s *Server) handleRoleRevoke(w http.ResponseWriter, r *http.Request) {
	s.handleRoleChange(w, r, s.engine.RevokeRole)
}

func (s *Server) handleRoleChange(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID int64, role string, section userguard.Section) error) {
	userID, err := pathID(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var in struct {
		Role    string `json:"role"`
		Section string `json:"section"`
	}
	if err := decode(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}
	section := userguard.Section(in.Section)
	if section == "" {
		section = userguard.SectionAPI
	}
	if err := op(r.Context(), userID, in.Role, section); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"role": in.Role})
}

func (s *Server) handleRolesRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RefreshRoles(r.Context()); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"refreshed": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"healthy": true})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, middleware.ErrMalformedBody
	}
	return id, nil
}
