package profiles

import (
	"errors"
	"net/http"

	"eventtrail/internal/domain"
	"eventtrail/internal/infrastructure/json"
	"eventtrail/internal/infrastructure/logging"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	profileRepository domain.ProfileRepository
	logger            logging.Logger
}

func NewHandler(profileRepository domain.ProfileRepository, logger logging.Logger) *Handler {
	return &Handler{
		profileRepository: profileRepository,
		logger:            logger,
	}
}

// ListProfilesHandler godoc
// @Summary      List profiles
// @Description  Lists all profiles sorted by creation time descending
// @Tags         profiles
// @Produce      json
// @Success      200 {array} domain.Profile "Profiles"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Router       /profiles [get]
func (h *Handler) ListProfilesHandler(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profileRepository.List(r.Context())
	if err != nil {
		h.logger.Error(logging.Mongo, logging.Persistence, "failed to list profiles", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, profiles)
}

// GetProfileHandler godoc
// @Summary      Get a profile
// @Tags         profiles
// @Produce      json
// @Param        profileId path string true "Profile ID"
// @Success      200 {object} domain.Profile "Profile details"
// @Failure      404 {object} map[string]interface{} "Profile not found"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Router       /profiles/{profileId} [get]
func (h *Handler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileId")
	if profileID == "" {
		json.WriteValidationError(w, errors.New("profile ID is missing"))
		return
	}

	profile, err := h.profileRepository.GetByID(r.Context(), profileID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProfileNotFound):
			json.WriteNotFoundError(w, err, "Profile not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	json.Write(w, http.StatusOK, profile)
}

// CreateProfileHandler godoc
// @Summary      Create a profile
// @Description  Creates a named profile. Timezone defaults to America/New_York when omitted.
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        request body createProfileRequest true "Profile creation parameters"
// @Success      201 {object} domain.Profile "Profile created"
// @Failure      400 {object} map[string]interface{} "Validation error"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Router       /profiles [post]
func (h *Handler) CreateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	profile, err := domain.NewProfile(req.Name, req.Timezone)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := h.profileRepository.Create(r.Context(), profile); err != nil {
		h.logger.Error(logging.Mongo, logging.Persistence, "failed to create profile", map[logging.ExtraKey]any{
			logging.ProfileID:    profile.ID,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusCreated, profile)
}

// UpdateProfileHandler godoc
// @Summary      Update a profile
// @Description  Applies a partial update; only supplied fields change
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        profileId path string true "Profile ID"
// @Param        request body updateProfileRequest true "Fields to update"
// @Success      200 {object} domain.Profile "Updated profile"
// @Failure      400 {object} map[string]interface{} "Validation error"
// @Failure      404 {object} map[string]interface{} "Profile not found"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Router       /profiles/{profileId} [put]
func (h *Handler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileId")
	if profileID == "" {
		json.WriteValidationError(w, errors.New("profile ID is missing"))
		return
	}

	var req updateProfileRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	profile, err := h.profileRepository.GetByID(r.Context(), profileID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProfileNotFound):
			json.WriteNotFoundError(w, err, "Profile not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	if err := profile.ApplyUpdate(domain.ProfilePatch{Name: req.Name, Timezone: req.Timezone}); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := h.profileRepository.Update(r.Context(), profile); err != nil {
		switch {
		case errors.Is(err, domain.ErrProfileNotFound):
			json.WriteNotFoundError(w, err, "Profile not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	json.Write(w, http.StatusOK, profile)
}
