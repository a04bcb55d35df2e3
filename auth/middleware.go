package auth

import (
	"chat-relay/errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BearerAuth rejects the websocket upgrade before it happens when the
// credential is missing or invalid. The token is read from the Authorization
// header, or from the "token" query parameter since browsers cannot set
// headers on a websocket handshake.
func BearerAuth(tokens *TokenManager, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			abort(c, errors.ErrMissingToken)
			return
		}

		claims, err := tokens.ValidateToken(tokenStr)
		if err != nil {
			log.Debug("Websocket handshake refused", "err", err, "remote", c.ClientIP())
			abort(c, err)
			return
		}
		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	code, message := errors.ToCode(err)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": code, "message": message})
}
