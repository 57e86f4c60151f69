package controllers

import (
	"log/slog"
	"net/http"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
)

// SignUpRequest is the request body for POST /auth/signup
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"max=120"`
	Role     string `json:"role" validate:"omitempty,oneof=participant organization"` // defaults to "participant"
}

// VerifyRequest is the request body for POST /auth/verify
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// LoginRequest is the request body for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest is the request body for PATCH /auth/user. Omitted fields
// are unchanged; an empty string clears a field.
type UpdateUserRequest struct {
	domain.AccountMetadata
}

// Validate implements Validator.
func (u UpdateUserRequest) Validate() []string {
	var errs []string
	if u.Role != nil && !u.Role.Valid() {
		errs = append(errs, `role must be "participant" or "organization"`)
	}
	if u.Email != nil {
		errs = append(errs, "email cannot be changed here")
	}
	return errs
}

// SessionResponse is the data of GET /auth/session.
type SessionResponse struct {
	Account   *domain.Account `json:"user"`
	SessionID string          `json:"session_id"`
}

// SignUpSuccessResponse is the success response envelope for POST /auth/signup (201).
type SignUpSuccessResponse struct {
	Data  *domain.Account `json:"data"`
	Error *h.APIError     `json:"error"`
}

// SessionSuccessResponse is the success response envelope for sign-in endpoints.
type SessionSuccessResponse struct {
	Data  *domain.Session `json:"data"`
	Error *h.APIError     `json:"error"`
}

type AuthController struct {
	Logger  *slog.Logger
	Service domain.AuthService
}

func NewAuthController(logger *slog.Logger, svc domain.AuthService) *AuthController {
	return &AuthController{
		Logger:  logger,
		Service: svc,
	}
}

// SignUp godoc
// @Summary Sign up a new account
// @Description Create an account with email and password. A six digit code is emailed and must be verified before login. Optional role: "participant" (default) or "organization".
// @Tags auth
// @Accept json
// @Produce json
// @Param body body SignUpRequest true "Sign-up data"
// @Success 201 {object} controllers.SignUpSuccessResponse "data contains the unconfirmed account"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/signup [post]
func (c *AuthController) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	acct, err := c.Service.SignUp(r.Context(), domain.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, acct)
}

// Verify godoc
// @Summary Verify the sign-up code
// @Description Confirms the account, syncs its profile and returns a session.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body VerifyRequest true "Email and code"
// @Success 200 {object} controllers.SessionSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/verify [post]
func (c *AuthController) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	sess, err := c.Service.VerifyOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, sess)
}

// Login godoc
// @Summary Log in
// @Description Authenticate with email and password. Returns a bearer token bound to a server-side session.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} controllers.SessionSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (account not confirmed)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/login [post]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	sess, err := c.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, sess)
}

// Session godoc
// @Summary Current session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains user and session_id"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /auth/session [get]
func (c *AuthController) Session(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	acct, err := c.Service.CurrentAccount(r.Context(), p.UserID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, SessionResponse{Account: acct, SessionID: p.SessionID})
}

// UpdateUser godoc
// @Summary Update account metadata
// @Description Merges the given metadata and syncs the public profile. Usernames are sanitized and must be unique.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateUserRequest true "Metadata patch"
// @Success 200 {object} controllers.SignUpSuccessResponse "data contains the updated account"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (username taken)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/user [patch]
func (c *AuthController) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	acct, err := c.Service.UpdateMetadata(r.Context(), p.UserID, req.AccountMetadata)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, acct)
}

// SignOut godoc
// @Summary Sign out
// @Description Revokes the session behind the bearer token.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /auth/signout [post]
func (c *AuthController) SignOut(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := c.Service.SignOut(r.Context(), p.SessionID); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, map[string]bool{"signed_out": true})
}

func requirePrincipal(w http.ResponseWriter, r *http.Request) (*domain.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
	}
	return p, ok
}
