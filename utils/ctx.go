package utils

import "github.com/gin-gonic/gin"

// CurrentUserID returns the account id the auth middlewares placed on the
// context, or zero when the request carries no verified token. The claims
// store it as uint, so no numeric coercion is needed.
func CurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get("userId"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// CurrentRole returns the role claim (customer, vendor or admin), or ""
// for unauthenticated requests.
func CurrentRole(c *gin.Context) string {
	if v, ok := c.Get("role"); ok {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}
