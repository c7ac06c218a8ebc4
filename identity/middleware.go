package identity

import "github.com/gin-gonic/gin"

// Attach returns middleware that resolves the caller from the header and
// prefix and stores it on the request context for every later handler.
func Attach(header, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := FromRequest(c.Request, header, prefix)
		c.Request = c.Request.WithContext(NewContext(c.Request.Context(), user))
		c.Next()
	}
}
