package handler

import (
	"net/http"

	"account-service/internal/middleware"
	"account-service/internal/usecase/account"
	"account-service/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProfileHandler struct {
	service *account.Service
}

func NewProfileHandler(service *account.Service) *ProfileHandler {
	return &ProfileHandler{service: service}
}

func (h *ProfileHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/account")
	{
		group.GET("/profile", h.GetProfile)
		group.PUT("/profile", h.UpdateProfile)
		group.POST("/change/password", h.ChangePassword)
		group.POST("/change/email", h.RequestEmailChange)
		group.GET("/settings", h.GetSettings)
		group.DELETE("/delete", h.DeleteAccount)
	}
}

// RegisterSessionRoutes holds the routes every signed-in identity may
// use, the guest account included.
func (h *ProfileHandler) RegisterSessionRoutes(router *gin.RouterGroup) {
	router.POST("/account/logout", h.Logout)
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Profile retrieved", profile)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req account.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.FirstName != nil {
		sanitized := utils.SanitizeString(*req.FirstName)
		req.FirstName = &sanitized
	}
	if req.LastName != nil {
		sanitized := utils.SanitizeString(*req.LastName)
		req.LastName = &sanitized
	}
	if req.Bio != nil {
		sanitized := utils.SanitizeText(*req.Bio)
		req.Bio = &sanitized
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Profile updated", profile)
}

func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req account.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Password changed successfully", nil)
}

func (h *ProfileHandler) RequestEmailChange(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req account.ChangeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.NewEmail = utils.SanitizeEmail(req.NewEmail)

	if err := h.service.RequestEmailChange(c.Request.Context(), userID, &req); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Confirmation link sent to the new address", nil)
}

func (h *ProfileHandler) GetSettings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	settings, err := h.service.GetSettings(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Settings retrieved", settings)
}

// Logout acknowledges the sign-out. Sessions are bearer tokens; the
// client discards them and the short access-token lifetime bounds any
// residual validity.
func (h *ProfileHandler) Logout(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Logged out", nil)
}

func (h *ProfileHandler) DeleteAccount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req account.DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.DeleteAccount(c.Request.Context(), userID, &req); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Account deleted", nil)
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}

	userID, ok := value.(uuid.UUID)
	if !ok {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Invalid user identifier")
		return uuid.Nil, false
	}

	return userID, true
}
