package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AdminToken guards indexing routes with a bearer token checked against a
// bcrypt hash. An empty hash leaves the routes open.
func AdminToken(tokenHash string) gin.HandlerFunc {
	if tokenHash == "" {
		log.Println("Warning: ADMIN_TOKEN_HASH not set, indexing endpoints are unauthenticated")
		return func(c *gin.Context) { c.Next() }
	}
	hash := []byte(tokenHash)

	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
			return
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "Invalid admin token")
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
