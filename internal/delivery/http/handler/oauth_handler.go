package handler

import (
	"net/http"

	"account-service/internal/usecase/account"
	"account-service/internal/usecase/oauth"
	"account-service/pkg/utils"

	"github.com/gin-gonic/gin"
)

const oauthStateCookie = "oauth_state"

type OAuthHandler struct {
	oauthService   *oauth.Service
	accountService *account.Service
}

func NewOAuthHandler(oauthService *oauth.Service, accountService *account.Service) *OAuthHandler {
	return &OAuthHandler{
		oauthService:   oauthService,
		accountService: accountService,
	}
}

func (h *OAuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/account")
	{
		group.GET("/google/login", h.GoogleLogin)
		group.GET("/google/callback", h.GoogleCallback)
	}
}

func (h *OAuthHandler) RegisterProtectedRoutes(router *gin.RouterGroup) {
	group := router.Group("/account")
	{
		group.DELETE("/oauth/remove", h.RemoveProvider)
	}
}

// GoogleLogin redirects the browser to the Google consent page, binding
// the round trip with a short-lived state cookie.
func (h *OAuthHandler) GoogleLogin(c *gin.Context) {
	state, err := oauth.GenerateState()
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to start login")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, h.oauthService.GoogleAuthURL(state))
}

func (h *OAuthHandler) GoogleCallback(c *gin.Context) {
	state := c.Query("state")
	cookieState, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != cookieState {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Missing authorization code")
		return
	}

	user, err := h.oauthService.GoogleCallback(c.Request.Context(), code)
	if err != nil {
		respondWithError(c, err)
		return
	}

	authResponse, err := h.accountService.IssueSession(user)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Login successful", authResponse)
}

func (h *OAuthHandler) RemoveProvider(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Provider string `json:"provider"`
	}
	// Body is optional; Google is the only provider today.
	_ = c.ShouldBindJSON(&req)
	if req.Provider == "" {
		req.Provider = oauth.ProviderGoogle
	}

	if err := h.oauthService.Unlink(c.Request.Context(), userID, req.Provider); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Provider unlinked", nil)
}
