package lifecycle

import (
	"context"
	"testing"

	"errand_market/internal/model"
	"errand_market/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordingSink 收集 emit 出来的事件，供断言用。
type recordingSink struct {
	events []queue.LifecycleEvent
}

func (s *recordingSink) Emit(_ context.Context, ev queue.LifecycleEvent) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) types() []string {
	out := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Type)
	}
	return out
}

// newTestDB 内存 sqlite。限制单连接，否则每个连接各看一份 :memory: 库。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Mess{}, &model.Request{}, &model.RequestEvent{}))
	return db
}

type fixture struct {
	db    *gorm.DB
	store *Store
	sink  *recordingSink
	mess  model.Mess
	alice model.User
	bob   model.User
	carol model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	mess := model.Mess{MessBlock: "A Block"}
	require.NoError(t, db.Create(&mess).Error)

	alice := model.User{Email: "alice@campus.edu", RoomNumber: "A-101", PhoneNumber: "9876543210", DefaultMessID: mess.MessID}
	bob := model.User{Email: "bob@campus.edu", RoomNumber: "B-202", PhoneNumber: "9876543211", DefaultMessID: mess.MessID}
	carol := model.User{Email: "carol@campus.edu", RoomNumber: "C-303", PhoneNumber: "9876543212", DefaultMessID: mess.MessID}
	require.NoError(t, db.Create(&alice).Error)
	require.NoError(t, db.Create(&bob).Error)
	require.NoError(t, db.Create(&carol).Error)

	sink := &recordingSink{}
	return &fixture{
		db:    db,
		store: NewStore(db, sink),
		sink:  sink,
		mess:  mess,
		alice: alice,
		bob:   bob,
		carol: carol,
	}
}

func TestCreateRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.store.Create(ctx, f.alice.UserID, "Coffee", "50", f.mess.MessID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, req.Status)
	assert.Equal(t, "pending", req.View().StatusLabel)
	assert.Equal(t, f.alice.UserID, req.RequesterID)
	assert.Nil(t, req.FulfillerID)
	assert.Equal(t, "50", req.PriceOffered)
	assert.Equal(t, []string{queue.EventCreated}, f.sink.types())
}

func TestCreateRequestDefaultMess(t *testing.T) {
	f := newFixture(t)

	req, err := f.store.Create(context.Background(), f.alice.UserID, "Maggi", "30", 0)
	require.NoError(t, err)
	assert.Equal(t, f.alice.DefaultMessID, req.DeliveryMessID)
}

func TestCreateRequestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		item  string
		price string
		mess  int64
		want  error
	}{
		{"empty item", "  ", "50", f.mess.MessID, ErrValidation},
		{"empty price", "Coffee", "", f.mess.MessID, ErrValidation},
		{"non-numeric price", "Coffee", "abc", f.mess.MessID, ErrValidation},
		{"negative price", "Coffee", "-5", f.mess.MessID, ErrValidation},
		{"price over cap", "Coffee", "100001", f.mess.MessID, ErrValidation},
		{"unknown mess", "Coffee", "50", 999, ErrInvalidMess},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.store.Create(ctx, f.alice.UserID, tc.item, tc.price, tc.mess)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// 上限本身可接受
	_, err := f.store.Create(ctx, f.alice.UserID, "Laptop", "100000", f.mess.MessID)
	assert.NoError(t, err)

	// 未注册用户
	_, err = f.store.Create(ctx, 999, "Coffee", "50", f.mess.MessID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.store.Create(ctx, f.alice.UserID, "Coffee", "50", f.mess.MessID)
	require.NoError(t, err)
	second, err := f.store.Create(ctx, f.bob.UserID, "Maggi", "30", f.mess.MessID)
	require.NoError(t, err)

	rows, err := f.store.ListOpen(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// 新 → 旧
	assert.Equal(t, second.RequestID, rows[0].RequestID)
	assert.Equal(t, first.RequestID, rows[1].RequestID)
	// 联表字段与状态标签
	assert.Equal(t, "B-202", rows[0].RoomNumber)
	assert.Equal(t, "9876543211", rows[0].PhoneNumber)
	assert.Equal(t, "A Block", rows[0].MessBlock)
	assert.Equal(t, "pending", rows[0].View().StatusLabel)

	// 排除自己发布的
	rows, err = f.store.ListOpen(ctx, f.alice.UserID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, second.RequestID, rows[0].RequestID)

	// 被接走的不再出现
	_, err = f.store.Accept(ctx, f.carol.UserID, first.RequestID)
	require.NoError(t, err)
	rows, err = f.store.ListOpen(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, second.RequestID, rows[0].RequestID)
}

func TestAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.store.Create(ctx, f.alice.UserID, "Coffee", "50", f.mess.MessID)
	require.NoError(t, err)

	// 自接自单，无论状态如何都 403
	_, err = f.store.Accept(ctx, f.alice.UserID, req.RequestID)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.store.Accept(ctx, f.bob.UserID, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, updated.Status)
	require.NotNil(t, updated.FulfillerID)
	assert.Equal(t, f.bob.UserID, *updated.FulfillerID)
	assert.NotNil(t, updated.AcceptedAt)

	// 第二个抢单人撞到守卫，拿冲突
	_, err = f.store.Accept(ctx, f.carol.UserID, req.RequestID)
	assert.ErrorIs(t, err, ErrConflict)

	// 已被接走后发布者再来也仍是 403（归属检查先于状态）
	_, err = f.store.Accept(ctx, f.alice.UserID, req.RequestID)
	assert.ErrorIs(t, err, ErrForbidden)

	// 不存在的行与已被抢走同一个错误
	_, err = f.store.Accept(ctx, f.bob.UserID, 999)
	assert.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, []string{queue.EventCreated, queue.EventAccepted}, f.sink.types())
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.store.Create(ctx, f.alice.UserID, "Coffee", "50", f.mess.MessID)
	require.NoError(t, err)

	// 未接单不能完成
	_, err = f.store.Complete(ctx, f.bob.UserID, req.RequestID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.store.Accept(ctx, f.bob.UserID, req.RequestID)
	require.NoError(t, err)

	// 只有接单人能完成
	_, err = f.store.Complete(ctx, f.carol.UserID, req.RequestID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.store.Complete(ctx, f.alice.UserID, req.RequestID)
	assert.ErrorIs(t, err, ErrForbidden)

	done, err := f.store.Complete(ctx, f.bob.UserID, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, "completed", done.View().StatusLabel)

	// 重复完成同样被守卫挡住
	_, err = f.store.Complete(ctx, f.bob.UserID, req.RequestID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAcknowledge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.store.Create(ctx, f.alice.UserID, "Coffee", "50", f.mess.MessID)
	require.NoError(t, err)
	_, err = f.store.Accept(ctx, f.bob.UserID, req.RequestID)
	require.NoError(t, err)

	// 完成前不能确认
	_, err = f.store.Acknowledge(ctx, f.alice.UserID, req.RequestID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.store.Complete(ctx, f.bob.UserID, req.RequestID)
	require.NoError(t, err)

	// 只有发布者能确认
	_, err = f.store.Acknowledge(ctx, f.bob.UserID, req.RequestID)
	assert.ErrorIs(t, err, ErrForbidden)

	acked, err := f.store.Acknowledge(ctx, f.alice.UserID, req.RequestID)
	require.NoError(t, err)
	assert.True(t, acked.Acknowledged)
	require.NotNil(t, acked.AcknowledgedAt)
	firstAckAt := *acked.AcknowledgedAt
	eventCount := len(f.sink.events)

	// 重复确认：无副作用的成功，时间戳不刷新，不再发事件
	again, err := f.store.Acknowledge(ctx, f.alice.UserID, req.RequestID)
	require.NoError(t, err)
	assert.True(t, again.Acknowledged)
	require.NotNil(t, again.AcknowledgedAt)
	assert.Equal(t, firstAckAt, *again.AcknowledgedAt)
	assert.Len(t, f.sink.events, eventCount)

	// 不存在的行
	_, err = f.store.Acknowledge(ctx, f.alice.UserID, 999)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.store.Create(ctx, f.alice.UserID, "Coffee", "50", f.mess.MessID)
	require.NoError(t, err)

	// 非本人：对外等同于不存在
	_, err = f.store.Cancel(ctx, f.bob.UserID, req.RequestID)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	// 不存在的行
	_, err = f.store.Cancel(ctx, f.alice.UserID, 999)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	snapshot, err := f.store.Cancel(ctx, f.alice.UserID, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", snapshot.ItemName)

	// 物理删除：行彻底消失
	var count int64
	require.NoError(t, f.db.Model(&model.Request{}).Where("request_id = ?", req.RequestID).Count(&count).Error)
	assert.Zero(t, count)

	// 已被接走后不可撤
	req2, err := f.store.Create(ctx, f.alice.UserID, "Maggi", "30", f.mess.MessID)
	require.NoError(t, err)
	_, err = f.store.Accept(ctx, f.bob.UserID, req2.RequestID)
	require.NoError(t, err)
	_, err = f.store.Cancel(ctx, f.alice.UserID, req2.RequestID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestListMineAndActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine1, err := f.store.Create(ctx, f.alice.UserID, "Coffee", "50", f.mess.MessID)
	require.NoError(t, err)
	mine2, err := f.store.Create(ctx, f.alice.UserID, "Maggi", "30", f.mess.MessID)
	require.NoError(t, err)
	other, err := f.store.Create(ctx, f.bob.UserID, "Juice", "20", f.mess.MessID)
	require.NoError(t, err)

	_, err = f.store.Accept(ctx, f.alice.UserID, other.RequestID)
	require.NoError(t, err)
	_, err = f.store.Accept(ctx, f.bob.UserID, mine1.RequestID)
	require.NoError(t, err)

	mine, err := f.store.ListMine(ctx, f.alice.UserID)
	require.NoError(t, err)
	require.Len(t, mine.AsRequester, 2)
	assert.Equal(t, mine2.RequestID, mine.AsRequester[0].RequestID)
	assert.Equal(t, mine1.RequestID, mine.AsRequester[1].RequestID)
	require.Len(t, mine.AsFulfiller, 1)
	assert.Equal(t, other.RequestID, mine.AsFulfiller[0].RequestID)

	active, err := f.store.ListActive(ctx, f.alice.UserID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, other.RequestID, active[0].RequestID)

	// 完成后不再算 active
	_, err = f.store.Complete(ctx, f.alice.UserID, other.RequestID)
	require.NoError(t, err)
	active, err = f.store.ListActive(ctx, f.alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestNilEventSink(t *testing.T) {
	f := newFixture(t)
	store := NewStore(f.db, nil)

	req, err := store.Create(context.Background(), f.alice.UserID, "Coffee", "50", f.mess.MessID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, req.Status)
}
