package controllers

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// MaxUploadBytes bounds multipart image uploads.
const MaxUploadBytes = 10 << 20

// UsernameAvailability is the data of GET /profiles/username-available.
type UsernameAvailability struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

type ProfileController struct {
	Logger   *slog.Logger
	Profiles domain.ProfileService
	Media    domain.MediaService
}

func NewProfileController(logger *slog.Logger, profiles domain.ProfileService, media domain.MediaService) *ProfileController {
	return &ProfileController{Logger: logger, Profiles: profiles, Media: media}
}

// UsernameAvailable godoc
// @Summary Check username availability
// @Description Sanitizes the username and reports whether another profile already uses it. The caller's own profile is excluded.
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param username query string true "Desired username"
// @Success 200 {object} helpers.APIResponse "data contains username and available"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /profiles/username-available [get]
func (c *ProfileController) UsernameAvailable(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("username"))
	if raw == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "username is required")
		return
	}
	available, err := c.Profiles.IsUsernameAvailable(r.Context(), raw, p.UserID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, UsernameAvailability{Username: domain.SanitizeUsername(raw), Available: available})
}

// GetProfile godoc
// @Summary Get a public profile
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the profile"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /profiles/{userID} [get]
func (c *ProfileController) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathUUID(r, "userID")
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	profile, err := c.Profiles.GetProfile(r.Context(), id)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, profile)
}

// UploadAvatar godoc
// @Summary Upload avatar
// @Description Multipart upload in field "file". The image is resized to at most 512x512, stored as JPEG, and its versioned URL saved as avatar_url.
// @Tags profiles
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image"
// @Success 200 {object} controllers.SignUpSuccessResponse "data contains the updated account"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /me/avatar [post]
func (c *ProfileController) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	file, ok := formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()
	acct, err := c.Media.UploadAvatar(r.Context(), p.UserID, file)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, acct)
}

// DeleteAvatar godoc
// @Summary Remove avatar
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.SignUpSuccessResponse "data contains the updated account"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /me/avatar [delete]
func (c *ProfileController) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	acct, err := c.Media.DeleteAvatar(r.Context(), p.UserID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, acct)
}

// formFile reads the "file" part of a bounded multipart body.
func formFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "invalid multipart body: "+err.Error())
		return nil, false
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "file is required")
		return nil, false
	}
	return file, true
}
