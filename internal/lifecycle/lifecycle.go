package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"errand_market/internal/model"
	"errand_market/internal/queue"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxPriceOffered 是产品层的出价上限（单位：卢比），不是存储约束。
const maxPriceOffered = 100000

// EventSink 接收已落库的状态迁移事件。发布失败不影响操作结果。
type EventSink interface {
	Emit(ctx context.Context, ev queue.LifecycleEvent) error
}

// Store 集中实现 Request 状态机的全部迁移与读取。
// 关键约定：所有写操作都用「守卫在谓词里」的条件 UPDATE/DELETE，
// 并发竞争同一行时由存储层保证至多一个赢家，绝不走读-改-写。
type Store struct {
	db     *gorm.DB
	events EventSink
}

// NewStore 构造生命周期存储。events 可为 nil（测试/无事件管道部署）。
func NewStore(db *gorm.DB, events EventSink) *Store {
	return &Store{db: db, events: events}
}

// Create 发布新请求：status=open、fulfiller 为空。
// messID 传 0 表示使用发布者档案里的默认配送地点。
func (s *Store) Create(ctx context.Context, actorID int64, itemName, price string, messID int64) (model.Request, error) {
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return model.Request{}, fmt.Errorf("%w: item_name is required", ErrValidation)
	}
	price = strings.TrimSpace(price)
	if err := validatePrice(price); err != nil {
		return model.Request{}, err
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "user_id = ?", actorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Request{}, ErrUserNotFound
		}
		return model.Request{}, fmt.Errorf("load user: %w", err)
	}

	if messID == 0 {
		messID = user.DefaultMessID
	} else {
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.Mess{}).Where("mess_id = ?", messID).Count(&count).Error; err != nil {
			return model.Request{}, fmt.Errorf("check mess: %w", err)
		}
		if count == 0 {
			return model.Request{}, ErrInvalidMess
		}
	}

	req := model.Request{
		ItemName:       itemName,
		PriceOffered:   price,
		Status:         model.StatusOpen,
		RequesterID:    actorID,
		DeliveryMessID: messID,
	}
	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return model.Request{}, fmt.Errorf("create request: %w", err)
	}

	s.emit(ctx, queue.EventCreated, req.RequestID, actorID)
	return req, nil
}

// validatePrice 校验出价：能解析、非负、不超过产品上限。
// 校验刻意宽松（见产品政策），存储时保留客户端原始字符串。
func validatePrice(price string) error {
	if price == "" {
		return fmt.Errorf("%w: price_offered is required", ErrValidation)
	}
	f, err := strconv.ParseFloat(price, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: price_offered must be a number", ErrValidation)
	}
	if f < 0 {
		return fmt.Errorf("%w: price_offered must not be negative", ErrValidation)
	}
	if f > maxPriceOffered {
		return fmt.Errorf("%w: price_offered exceeds the maximum of %d", ErrValidation, maxPriceOffered)
	}
	return nil
}

// OpenRequest 是开放列表的展示行：请求字段加上发布者联系方式与地点标签。
type OpenRequest struct {
	RequestID      int64               `json:"request_id"`
	CreatedAt      time.Time           `json:"created_at"`
	ItemName       string              `json:"item_name"`
	PriceOffered   string              `json:"price_offered"`
	Status         model.RequestStatus `json:"-"`
	RequesterID    int64               `json:"requester_id"`
	DeliveryMessID int64               `json:"delivery_mess_id"`
	RoomNumber     string              `json:"room_number"`
	PhoneNumber    string              `json:"phone_number"`
	MessBlock      string              `json:"mess_block"`
}

// OpenRequestView 对外形态：status 已做标签映射（open→pending）。
type OpenRequestView struct {
	OpenRequest
	StatusLabel string `json:"status"`
}

func (r OpenRequest) View() OpenRequestView {
	return OpenRequestView{OpenRequest: r, StatusLabel: r.Status.Label()}
}

// ListOpen 返回全部 open 请求（新→旧），联表带出发布者房间/电话与地点。
// excludeRequesterID 传 0 表示不过滤；宿舍级规模，不分页。
func (s *Store) ListOpen(ctx context.Context, excludeRequesterID int64) ([]OpenRequest, error) {
	q := s.db.WithContext(ctx).Table("requests").
		Select("requests.request_id, requests.created_at, requests.item_name, requests.price_offered, requests.status, requests.requester_id, requests.delivery_mess_id, users.room_number, users.phone_number, messes.mess_block").
		Joins("JOIN users ON users.user_id = requests.requester_id").
		Joins("JOIN messes ON messes.mess_id = requests.delivery_mess_id").
		Where("requests.status = ?", model.StatusOpen)
	if excludeRequesterID != 0 {
		q = q.Where("requests.requester_id <> ?", excludeRequesterID)
	}

	var rows []OpenRequest
	if err := q.Order("requests.created_at DESC, requests.request_id DESC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list open requests: %w", err)
	}
	return rows, nil
}

// Accept 抢单：open → in_progress，写入 fulfiller 与接单时间。
// 条件 UPDATE 保证两个并发 Accept 恰好一个成功；输家拿到 ErrConflict。
// “行不存在”与“已被抢走”统一返回 ErrConflict，不泄露时序。
func (s *Store) Accept(ctx context.Context, actorID, requestID int64) (model.Request, error) {
	var req model.Request
	if err := s.db.WithContext(ctx).First(&req, "request_id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Request{}, ErrConflict
		}
		return model.Request{}, fmt.Errorf("load request: %w", err)
	}
	// 自接自单无论行处于什么状态都拒绝。
	if req.RequesterID == actorID {
		return model.Request{}, ErrForbidden
	}

	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&model.Request{}).
		Where("request_id = ? AND status = ?", requestID, model.StatusOpen).
		Updates(map[string]interface{}{
			"fulfiller_id": actorID,
			"status":       model.StatusInProgress,
			"accepted_at":  now,
		})
	if res.Error != nil {
		return model.Request{}, fmt.Errorf("accept request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Request{}, ErrConflict
	}

	if err := s.db.WithContext(ctx).First(&req, "request_id = ?", requestID).Error; err != nil {
		return model.Request{}, fmt.Errorf("reload request: %w", err)
	}
	s.emit(ctx, queue.EventAccepted, requestID, actorID)
	return req, nil
}

// Complete 送达：in_progress → completed，仅限接单人本人。
// 守卫（fulfiller 匹配 + 状态 in_progress）全部在 UPDATE 谓词里。
func (s *Store) Complete(ctx context.Context, actorID, requestID int64) (model.Request, error) {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&model.Request{}).
		Where("request_id = ? AND fulfiller_id = ? AND status = ?", requestID, actorID, model.StatusInProgress).
		Updates(map[string]interface{}{
			"status":       model.StatusCompleted,
			"completed_at": now,
		})
	if res.Error != nil {
		return model.Request{}, fmt.Errorf("complete request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Request{}, ErrForbidden
	}

	var req model.Request
	if err := s.db.WithContext(ctx).First(&req, "request_id = ?", requestID).Error; err != nil {
		return model.Request{}, fmt.Errorf("reload request: %w", err)
	}
	s.emit(ctx, queue.EventCompleted, requestID, actorID)
	return req, nil
}

// Acknowledge 发布者确认完成。重复确认是无副作用的成功（既定策略），
// 且不会刷新首次确认时间，也不再发事件。
func (s *Store) Acknowledge(ctx context.Context, actorID, requestID int64) (model.Request, error) {
	var req model.Request
	if err := s.db.WithContext(ctx).First(&req, "request_id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Request{}, ErrRequestNotFound
		}
		return model.Request{}, fmt.Errorf("load request: %w", err)
	}
	if req.RequesterID != actorID {
		return model.Request{}, ErrForbidden
	}
	if req.Status != model.StatusCompleted {
		return model.Request{}, ErrInvalidState
	}
	if req.Acknowledged {
		return req, nil
	}

	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&model.Request{}).
		Where("request_id = ? AND requester_id = ? AND status = ?", requestID, actorID, model.StatusCompleted).
		Updates(map[string]interface{}{
			"acknowledged":    true,
			"acknowledged_at": now,
		})
	if res.Error != nil {
		return model.Request{}, fmt.Errorf("acknowledge request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Request{}, ErrInvalidState
	}

	if err := s.db.WithContext(ctx).First(&req, "request_id = ?", requestID).Error; err != nil {
		return model.Request{}, fmt.Errorf("reload request: %w", err)
	}
	s.emit(ctx, queue.EventAcknowledged, requestID, actorID)
	return req, nil
}

// Cancel 撤单：仅发布者本人、仅 open 状态，物理删除行。
// 非本人与不存在统一返回 ErrRequestNotFound（404 语义）；
// 事件管道保留 cancelled 记录，删除不等于失忆。
func (s *Store) Cancel(ctx context.Context, actorID, requestID int64) (model.Request, error) {
	var req model.Request
	if err := s.db.WithContext(ctx).First(&req, "request_id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Request{}, ErrRequestNotFound
		}
		return model.Request{}, fmt.Errorf("load request: %w", err)
	}
	if req.RequesterID != actorID {
		return model.Request{}, ErrRequestNotFound
	}
	if req.Status != model.StatusOpen {
		return model.Request{}, ErrInvalidState
	}

	res := s.db.WithContext(ctx).
		Where("request_id = ? AND requester_id = ? AND status = ?", requestID, actorID, model.StatusOpen).
		Delete(&model.Request{})
	if res.Error != nil {
		return model.Request{}, fmt.Errorf("cancel request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// 守卫窗口内被人抢单了。
		return model.Request{}, ErrInvalidState
	}

	s.emit(ctx, queue.EventCancelled, requestID, actorID)
	return req, nil
}

// Mine 聚合「我的订单」与「我的配送」两个视图。
type Mine struct {
	AsRequester []model.Request
	AsFulfiller []model.Request
}

// ListMine 返回调用者名下全部请求（不限状态），新→旧。
func (s *Store) ListMine(ctx context.Context, actorID int64) (Mine, error) {
	var out Mine
	if err := s.db.WithContext(ctx).
		Where("requester_id = ?", actorID).
		Order("created_at DESC, request_id DESC").
		Find(&out.AsRequester).Error; err != nil {
		return Mine{}, fmt.Errorf("list my orders: %w", err)
	}
	if err := s.db.WithContext(ctx).
		Where("fulfiller_id = ?", actorID).
		Order("created_at DESC, request_id DESC").
		Find(&out.AsFulfiller).Error; err != nil {
		return Mine{}, fmt.Errorf("list my deliveries: %w", err)
	}
	return out, nil
}

// ListActive 返回调用者正在配送中的请求（fulfiller 本人 + in_progress）。
func (s *Store) ListActive(ctx context.Context, actorID int64) ([]model.Request, error) {
	var rows []model.Request
	if err := s.db.WithContext(ctx).
		Where("fulfiller_id = ? AND status = ?", actorID, model.StatusInProgress).
		Order("created_at DESC, request_id DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list active requests: %w", err)
	}
	return rows, nil
}

// emit 尽力而为地发布事件：失败只记日志，不反悔已提交的迁移。
func (s *Store) emit(ctx context.Context, evType string, requestID, actorID int64) {
	if s.events == nil {
		return
	}
	ev := queue.LifecycleEvent{
		EventID:    uuid.New().String(),
		RequestID:  requestID,
		Type:       evType,
		ActorID:    actorID,
		OccurredAt: time.Now().Unix(),
	}
	if err := s.events.Emit(ctx, ev); err != nil {
		log.Printf("lifecycle emit %s request=%d: %v", evType, requestID, err)
	}
}
