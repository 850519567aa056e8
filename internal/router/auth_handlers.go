package router

import (
	"errors"
	"net/http"

	"errand_market/internal/directory"
	"errand_market/internal/middleware"

	"github.com/gin-gonic/gin"
)

// checkUser 查询当前身份是否已注册档案（前端据此决定跳注册页还是主页）。
func checkUser(dir *directory.Directory, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.IdentityFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "No token"})
			return
		}

		user, err := dir.Get(c.Request.Context(), id.Email)
		if err != nil {
			internalError(c, dev, err)
			return
		}
		if user == nil {
			c.JSON(http.StatusOK, gin.H{"exists": false, "profileComplete": false})
			return
		}

		complete := user.RoomNumber != "" && user.PhoneNumber != "" && user.DefaultMessID != 0
		c.JSON(http.StatusOK, gin.H{
			"exists":          true,
			"user":            user,
			"profileComplete": complete,
		})
	}
}

// registerUser 一次性注册档案。
func registerUser(dir *directory.Directory, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.IdentityFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "No token"})
			return
		}

		var req struct {
			RoomNumber    string `json:"room_number"`
			PhoneNumber   string `json:"phone_number"`
			DefaultMessID int64  `json:"default_mess_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
			return
		}

		user, err := dir.Register(c.Request.Context(), id.Email, req.RoomNumber, req.PhoneNumber, req.DefaultMessID)
		if err != nil {
			switch {
			case errors.Is(err, directory.ErrValidation):
				c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			case errors.Is(err, directory.ErrInvalidMess):
				c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid mess_id. Please select a valid mess block."})
			case errors.Is(err, directory.ErrUserExists):
				c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
			default:
				internalError(c, dev, err)
			}
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "User registered successfully",
			"user":    user,
		})
	}
}

// listMesses 返回地点参照表（公开）。
func listMesses(dir *directory.Directory, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		messes, err := dir.ListMesses(c.Request.Context())
		if err != nil {
			internalError(c, dev, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": messes})
	}
}
