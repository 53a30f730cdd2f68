package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"civictrack-be/middlewares"
	"civictrack-be/services"
)

const refreshTokenCookie = "refreshToken"

type AuthController struct {
	auth       *services.AuthService
	production bool
	log        logrus.FieldLogger
}

func NewAuthController(auth *services.AuthService, production bool, log logrus.FieldLogger) *AuthController {
	return &AuthController{auth: auth, production: production, log: log}
}

// setRefreshCookie stores the refresh token in an HttpOnly cookie. maxAge < 0
// deletes it.
func (ac *AuthController) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	// Cross-site cookies need SameSite=None, which browsers only accept over HTTPS.
	if ac.production {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(refreshTokenCookie, value, maxAge, "/", "", ac.production, true)
}

// RegisterUser creates a citizen account and logs it in.
func (ac *AuthController) RegisterUser(c *gin.Context) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middlewares.RespondError(c, ac.log, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	session, err := ac.auth.Register(ctx, input)
	if err != nil {
		middlewares.RespondError(c, ac.log, err)
		return
	}

	ac.setRefreshCookie(c, session.RefreshToken, int(ac.auth.RefreshTTL().Seconds()))
	c.JSON(http.StatusCreated, session.Response)
}

func (ac *AuthController) LoginUser(c *gin.Context) {
	var input services.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middlewares.RespondError(c, ac.log, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	session, err := ac.auth.Login(ctx, input)
	if err != nil {
		middlewares.RespondError(c, ac.log, err)
		return
	}

	ac.setRefreshCookie(c, session.RefreshToken, int(ac.auth.RefreshTTL().Seconds()))
	c.JSON(http.StatusOK, session.Response)
}

// RefreshToken issues a new access token from the refresh token cookie.
func (ac *AuthController) RefreshToken(c *gin.Context) {
	token, err := c.Cookie(refreshTokenCookie)
	if err != nil || token == "" {
		middlewares.AbortWithStatus(c, http.StatusUnauthorized, "Refresh token not found. Please login again.")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := ac.auth.Refresh(ctx, token)
	if err != nil {
		middlewares.RespondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetMe returns the authenticated user.
func (ac *AuthController) GetMe(c *gin.Context) {
	actor, err := currentUser(c)
	if err != nil {
		middlewares.RespondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, ac.auth.Me(actor))
}

// LogoutUser clears the refresh token cookie.
func (ac *AuthController) LogoutUser(c *gin.Context) {
	ac.setRefreshCookie(c, "", -1)
	messageResponse(c, "Logged out successfully")
}
