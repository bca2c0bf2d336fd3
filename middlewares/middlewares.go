package middlewares

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// Auth resolves the session from the Authorization header (or the token
// cookie set by browser clients) and forwards the stored payload to the
// handler through the "payload" header.
func Auth(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			token, _ = c.Cookie("token")
		}

		payload, err := ValidateToken(c, token, rdb)
		if err != nil {
			log.Println(err)
			c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			c.Abort()
			return
		}
		c.Request.Header.Set("payload", payload)
		c.Next()
	}
}

func ValidateToken(c *gin.Context, authorizationHeader string, rdb *redis.Client) (string, error) {
	if !strings.Contains(authorizationHeader, "Bearer") {
		return "", errors.New("invalid-token")
	}
	tokenString := strings.Replace(authorizationHeader, "Bearer ", "", -1)

	payload, err := rdb.Get(c.Request.Context(), tokenString).Result()
	if err != nil {
		return "", err
	}

	if payload == "" {
		return "", errors.New("empty-payload")
	}

	return payload, nil
}
