package middlewares

import (
	"net/http"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserMiddleware resolves the session user and stamps the business scope
// into the request context. Routes behind it can rely on BusinessId/UserId.
func UserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		username, ok := utils.GetUsernameFromContext(ctx)
		if !ok || username == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
			c.Abort()
			return
		}

		user, err := models.GetUserByUsername(ctx, username)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				// destroy current session if user has been deleted
				models.Logout(ctx)
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		if !*user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user is disabled"})
			c.Abort()
			return
		}

		ctx = utils.SetBusinessIdInContext(ctx, user.BusinessId)
		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetUserNameInContext(ctx, user.Name)
		if user.DeviceId != nil {
			ctx = utils.SetDeviceIdInContext(ctx, *user.DeviceId)
		}
		ctx = utils.SetIsAdminInContext(ctx, user.Role == models.RoleAdmin)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole restricts a route group to the given roles.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		username, ok := utils.GetUsernameFromContext(ctx)
		if !ok || username == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
			c.Abort()
			return
		}
		user, err := models.GetUserByUsername(ctx, username)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
		c.Abort()
	}
}
