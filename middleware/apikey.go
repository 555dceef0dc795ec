package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Hopium-Future/hackathon-be/config"
	"github.com/Hopium-Future/hackathon-be/utils"
)

// APIKeyRequired guards operational endpoints with the admin API key.
func APIKeyRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		expected := config.Get().AdminAPIKey
		provided := ctx.GetHeader("X-API-KEY")
		if expected == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "invalid api key")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
