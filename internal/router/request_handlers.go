package router

import (
	"errors"
	"net/http"

	"errand_market/internal/directory"
	"errand_market/internal/lifecycle"
	"errand_market/internal/middleware"
	"errand_market/internal/model"

	"github.com/gin-gonic/gin"
)

// createRequest 发布跑腿请求。delivery_mess_id 省略时用档案默认地点。
func createRequest(store *lifecycle.Store, dir *directory.Directory, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := resolveActor(c, dir, dev)
		if !ok {
			return
		}

		var req struct {
			ItemName       string `json:"item_name"`
			PriceOffered   string `json:"price_offered"`
			DeliveryMessID int64  `json:"delivery_mess_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
			return
		}

		created, err := store.Create(c.Request.Context(), actorID, req.ItemName, req.PriceOffered, req.DeliveryMessID)
		if err != nil {
			switch {
			case errors.Is(err, lifecycle.ErrValidation):
				c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			case errors.Is(err, lifecycle.ErrInvalidMess):
				c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid mess_id. Please select a valid mess block."})
			case errors.Is(err, lifecycle.ErrUserNotFound):
				c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			default:
				internalError(c, dev, err)
			}
			return
		}

		c.JSON(http.StatusCreated, created.View())
	}
}

// listOpen 公开的待接单列表。带了有效凭证且已注册时，排除自己发布的。
func listOpen(store *lifecycle.Store, dir *directory.Directory, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var exclude int64
		if id, ok := middleware.IdentityFrom(c); ok {
			if actorID, err := dir.Resolve(c.Request.Context(), id.Email); err == nil {
				exclude = actorID
			}
		}

		rows, err := store.ListOpen(c.Request.Context(), exclude)
		if err != nil {
			internalError(c, dev, err)
			return
		}

		views := make([]lifecycle.OpenRequestView, 0, len(rows))
		for _, row := range rows {
			views = append(views, row.View())
		}
		c.JSON(http.StatusOK, gin.H{"data": views})
	}
}

// acceptRequest 抢单。并发竞争同一行时恰好一个 200，其余 400。
func acceptRequest(store *lifecycle.Store, dir *directory.Directory, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := resolveActor(c, dir, dev)
		if !ok {
			return
		}
		requestID, ok := requestIDParam(c)
		if !ok {
			return
		}

		updated, err := store.Accept(c.Request.Context(), actorID, requestID)
		if err != nil {
			switch {
			case errors.Is(err, lifecycle.ErrForbidden):
				c.JSON(http.StatusForbidden, gin.H{"message": "You cannot accept your own request"})
			case errors.Is(err, lifecycle.ErrConflict):
				c.JSON(http.StatusBadRequest, gin.H{"message": "Request not found or already claimed"})
			default:
				internalError(c, dev, err)
			}
			return
		}

		c.JSON(http.StatusOK, updated.View())
	}
}

// listActive 当前用户正在配送中的请求。
func listActive(store *lifecycle.Store, dir *directory.Directory, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := resolveActor(c, dir, dev)
		if !ok {
			return
		}

		rows, err := store.ListActive(c.Request.Context(), actorID)
		if err != nil {
			internalError(c, dev, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": requestViews(rows)})
	}
}

// completeRequest 接单人标记送达。
func completeRequest(store *lifecycle.Store, dir *directory.Directory, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := resolveActor(c, dir, dev)
		if !ok {
			return
		}
		requestID, ok := requestIDParam(c)
		if !ok {
			return
		}

		updated, err := store.Complete(c.Request.Context(), actorID, requestID)
		if err != nil {
			if errors.Is(err, lifecycle.ErrForbidden) {
				c.JSON(http.StatusForbidden, gin.H{"message": "Not authorized or already completed"})
			} else {
				internalError(c, dev, err)
			}
			return
		}

		c.JSON(http.StatusOK, updated.View())
	}
}

// acknowledgeRequest 发布者确认收货。重复确认返回当前行（无副作用）。
func acknowledgeRequest(store *lifecycle.Store, dir *directory.Directory, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := resolveActor(c, dir, dev)
		if !ok {
			return
		}
		requestID, ok := requestIDParam(c)
		if !ok {
			return
		}

		updated, err := store.Acknowledge(c.Request.Context(), actorID, requestID)
		if err != nil {
			switch {
			case errors.Is(err, lifecycle.ErrRequestNotFound):
				c.JSON(http.StatusNotFound, gin.H{"message": "Request not found"})
			case errors.Is(err, lifecycle.ErrForbidden):
				c.JSON(http.StatusForbidden, gin.H{"message": "Only the requester can acknowledge"})
			case errors.Is(err, lifecycle.ErrInvalidState):
				c.JSON(http.StatusBadRequest, gin.H{"message": "Request is not completed yet"})
			default:
				internalError(c, dev, err)
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Request acknowledged",
			"data":    updated.View(),
		})
	}
}

// cancelRequest 撤单（物理删除）。非本人与不存在统一 404。
func cancelRequest(store *lifecycle.Store, dir *directory.Directory, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := resolveActor(c, dir, dev)
		if !ok {
			return
		}
		requestID, ok := requestIDParam(c)
		if !ok {
			return
		}

		deleted, err := store.Cancel(c.Request.Context(), actorID, requestID)
		if err != nil {
			switch {
			case errors.Is(err, lifecycle.ErrRequestNotFound):
				c.JSON(http.StatusNotFound, gin.H{"message": "Request not found"})
			case errors.Is(err, lifecycle.ErrInvalidState):
				c.JSON(http.StatusBadRequest, gin.H{"message": "Only open requests can be cancelled"})
			default:
				internalError(c, dev, err)
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Request cancelled",
			"data":    deleted.View(),
		})
	}
}

// listMyOrders 我发布过的全部请求（不限状态）。
func listMyOrders(store *lifecycle.Store, dir *directory.Directory, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := resolveActor(c, dir, dev)
		if !ok {
			return
		}

		mine, err := store.ListMine(c.Request.Context(), actorID)
		if err != nil {
			internalError(c, dev, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": requestViews(mine.AsRequester)})
	}
}

// listMyDeliveries 我接过的全部请求（不限状态）。
func listMyDeliveries(store *lifecycle.Store, dir *directory.Directory, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := resolveActor(c, dir, dev)
		if !ok {
			return
		}

		mine, err := store.ListMine(c.Request.Context(), actorID)
		if err != nil {
			internalError(c, dev, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": requestViews(mine.AsFulfiller)})
	}
}

func requestViews(rows []model.Request) []model.RequestView {
	views := make([]model.RequestView, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.View())
	}
	return views
}
