package router

import (
	"errors"
	"net/http"
	"strconv"

	"errand_market/internal/auth"
	"errand_market/internal/config"
	"errand_market/internal/directory"
	"errand_market/internal/lifecycle"
	"errand_market/internal/middleware"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
)

// Setup 注册全部 HTTP 路由。
// 路由层只做翻译：凭证 → 身份 → user_id → 生命周期调用 → 状态码。
func Setup(r *gin.Engine, store *lifecycle.Store, dir *directory.Directory, verifier auth.Verifier, rdb *rd.Client, cfg config.AppConfig) {
	requireAuth := middleware.RequireAuth(verifier)
	optionalAuth := middleware.OptionalAuth(verifier)

	// rdb 为空时（测试/精简部署）跳过限流。
	limit := func(c *gin.Context) { c.Next() }
	if rdb != nil {
		limit = middleware.RedisRateLimit(rdb, cfg.MutateRateLimit, cfg.MutateRateWindow)
	}

	dev := cfg.DevMode

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	r.GET("/messes", listMesses(dir, dev))

	a := r.Group("/auth")
	a.GET("/check", requireAuth, checkUser(dir, dev))
	a.POST("/register", requireAuth, registerUser(dir, dev))

	req := r.Group("/requests")
	req.POST("", requireAuth, limit, createRequest(store, dir, dev))
	req.GET("/open", optionalAuth, listOpen(store, dir, dev))
	req.PATCH("/:id/accept", requireAuth, limit, acceptRequest(store, dir, dev))
	req.GET("/active", requireAuth, listActive(store, dir, dev))
	req.PATCH("/:id/complete", requireAuth, completeRequest(store, dir, dev))
	req.PATCH("/:id/acknowledge", requireAuth, acknowledgeRequest(store, dir, dev))
	req.DELETE("/:id", requireAuth, cancelRequest(store, dir, dev))
	req.GET("/my-orders", requireAuth, listMyOrders(store, dir, dev))
	req.GET("/my-deliveries", requireAuth, listMyDeliveries(store, dir, dev))
}

// resolveActor 把已验证身份解析成内部 user_id。
// 未注册 → 404（提示需要先注册），不是笼统的服务器错误。
func resolveActor(c *gin.Context, dir *directory.Directory, dev bool) (int64, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "No token"})
		return 0, false
	}
	actorID, err := dir.Resolve(c.Request.Context(), id.Email)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		} else {
			internalError(c, dev, err)
		}
		return 0, false
	}
	return actorID, true
}

// requestIDParam 解析路径里的 :id。
func requestIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request id"})
		return 0, false
	}
	return id, true
}

// internalError 统一 500 出口：线上只给简短信息，DevMode 才带底层错误。
func internalError(c *gin.Context, dev bool, err error) {
	if dev {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error: " + err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
}
