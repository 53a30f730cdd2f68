package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"civictrack-be/models"
)

const actorKey = "actor"

// Authenticator resolves an access token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// AuthMiddleware requires a valid "Authorization: Bearer <token>" header and
// stores the resolved user on the context.
func AuthMiddleware(auth Authenticator, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			AbortWithStatus(c, http.StatusUnauthorized, "No authorization token provided")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		user, err := auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			log.WithError(err).Debug("token validation failed")
			RespondError(c, log, err)
			return
		}

		c.Set(actorKey, user)
		c.Next()
	}
}

// Actor returns the authenticated user, or nil outside AuthMiddleware.
func Actor(c *gin.Context) *models.User {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
