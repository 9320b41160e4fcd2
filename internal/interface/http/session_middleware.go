package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/stylecast/internal/domain/session"
	apperrors "github.com/yanqian/stylecast/pkg/errors"
)

// Authenticator resolves a bearer token to the session it names.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

var _ Authenticator = (session.Service)(nil)

func sessionMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, apperrors.CodeInvalidToken, "missing authorization header", nil))
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, apperrors.CodeInvalidToken, "invalid authorization header", nil))
			return
		}
		id, err := auth.Authenticate(strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, fromDomainError(err))
			return
		}
		setSessionID(c, id)
		c.Next()
	}
}
