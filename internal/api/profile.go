package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/middleware"
	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *zap.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// publicProfile is what one user sees of another. The block list and email
// stay with the owner.
type publicProfile struct {
	ID                   string          `json:"id"`
	DisplayName          string          `json:"display_name,omitempty"`
	PhotoURL             string          `json:"photo_url,omitempty"`
	NativeLanguage       models.Language `json:"native_language,omitempty"`
	TargetLanguage       models.Language `json:"target_language,omitempty"`
	ProfileSetupComplete bool            `json:"profile_setup_complete"`
	CreatedAt            time.Time       `json:"created_at"`
}

func toPublicProfile(p *models.Profile) publicProfile {
	return publicProfile{
		ID:                   p.ID,
		DisplayName:          p.DisplayName,
		PhotoURL:             p.PhotoURL,
		NativeLanguage:       p.NativeLanguage,
		TargetLanguage:       p.TargetLanguage,
		ProfileSetupComplete: p.ProfileSetupComplete,
		CreatedAt:            p.CreatedAt,
	}
}

func toPublicProfiles(profiles []models.Profile) []publicProfile {
	out := make([]publicProfile, len(profiles))
	for i := range profiles {
		out[i] = toPublicProfile(&profiles[i])
	}
	return out
}

type languagesRequest struct {
	NativeLanguage models.Language `json:"native_language" binding:"required,language"`
	TargetLanguage models.Language `json:"target_language" binding:"required,language"`
}

// Ensure handles POST /v1/profile
//
// The profile is built from the token's identity, so there is no body.
// 201 when this call created it, 200 when it already existed.
func (h *ProfileHandler) Ensure(c *gin.Context) {
	p, created, err := h.profiles.EnsureProfile(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, p)
}

// GetMe handles GET /v1/profile/me
func (h *ProfileHandler) GetMe(c *gin.Context) {
	p, err := h.profiles.GetProfile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetByID handles GET /v1/profiles/:id
//
// Only the owner gets the full record back.
func (h *ProfileHandler) GetByID(c *gin.Context) {
	p, err := h.profiles.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if p.ID == middleware.GetUserID(c) {
		c.JSON(http.StatusOK, p)
		return
	}
	c.JSON(http.StatusOK, toPublicProfile(p))
}

// UpdateLanguages handles PUT /v1/profile/languages
func (h *ProfileHandler) UpdateLanguages(c *gin.Context) {
	var req languagesRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.profiles.CompleteSetup(c.Request.Context(), middleware.GetUserID(c), req.NativeLanguage, req.TargetLanguage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// List handles GET /v1/profiles
func (h *ProfileHandler) List(c *gin.Context) {
	profiles, err := h.profiles.ListComplete(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPublicProfiles(profiles))
}

// Partners handles GET /v1/partners
func (h *ProfileHandler) Partners(c *gin.Context) {
	partners, err := h.profiles.ListPartners(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPublicProfiles(partners))
}
