package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"errand_market/internal/model"

	"gorm.io/gorm"
)

// 档案相关的类型化结果。
var (
	// ErrUserNotFound 身份从未注册过档案，调用方应提示“需要先注册”。
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists 注册是一次性的，重复注册返回冲突。
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidMess 选择的地点不在参照表里。
	ErrInvalidMess = errors.New("invalid mess id")
	// ErrValidation 输入缺失或不合法。
	ErrValidation = errors.New("validation failed")
)

// minPhoneLen 刻意宽松的电话校验（只看长度，不做完整解析）。
const minPhoneLen = 10

// Directory 把外部验证过的身份（email）映射到内部用户档案。
type Directory struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// Resolve 把已验证身份换成内部 user_id。所有生命周期操作的第一步。
func (d *Directory) Resolve(ctx context.Context, email string) (int64, error) {
	var user model.User
	err := d.db.WithContext(ctx).Select("user_id").First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("resolve user: %w", err)
	}
	return user.UserID, nil
}

// Get 返回完整档案，不存在时返回 nil（GET /auth/check 用）。
func (d *Directory) Get(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := d.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// Register 创建档案，一次性操作。三个字段都必填；电话只做最小长度检查。
func (d *Directory) Register(ctx context.Context, email, room, phone string, messID int64) (model.User, error) {
	room = strings.TrimSpace(room)
	phone = strings.TrimSpace(phone)
	if room == "" || phone == "" || messID == 0 {
		return model.User{}, fmt.Errorf("%w: room_number, phone_number and default_mess_id are required", ErrValidation)
	}
	if len(phone) < minPhoneLen {
		return model.User{}, fmt.Errorf("%w: phone_number must be at least %d characters", ErrValidation, minPhoneLen)
	}

	var count int64
	if err := d.db.WithContext(ctx).Model(&model.Mess{}).Where("mess_id = ?", messID).Count(&count).Error; err != nil {
		return model.User{}, fmt.Errorf("check mess: %w", err)
	}
	if count == 0 {
		return model.User{}, ErrInvalidMess
	}

	user := model.User{
		Email:         email,
		RoomNumber:    room,
		PhoneNumber:   phone,
		DefaultMessID: messID,
	}
	if err := d.db.WithContext(ctx).Create(&user).Error; err != nil {
		// email 的 UNIQUE 约束兜底并发重复注册。
		if errorsLikeUnique(err) {
			return model.User{}, ErrUserExists
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// ListMesses 返回全部配送地点参照数据（注册页下拉框用）。
func (d *Directory) ListMesses(ctx context.Context) ([]model.Mess, error) {
	var messes []model.Mess
	if err := d.db.WithContext(ctx).Order("mess_id ASC").Find(&messes).Error; err != nil {
		return nil, fmt.Errorf("list messes: %w", err)
	}
	return messes, nil
}

func errorsLikeUnique(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE") ||
		strings.Contains(s, "unique") ||
		strings.Contains(s, "duplicate key")
}
