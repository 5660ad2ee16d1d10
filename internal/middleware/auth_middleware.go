package middleware

import (
	"net/http"
	"strings"

	"github.com/annel0/terrain-editor/internal/auth"
	"github.com/gin-gonic/gin"
)

// EditorKey ключ контекста gin с именем редактора из токена
const EditorKey = "editor"

// RequireWriter пропускает только запросы с действительным Bearer токеном,
// разрешающим запись.
func RequireWriter(signer *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Требуется токен"})
			return
		}

		claims, err := signer.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Недействительный токен"})
			return
		}
		if !claims.CanWrite {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Нет прав на изменение"})
			return
		}

		c.Set(EditorKey, claims.Editor)
		c.Next()
	}
}
