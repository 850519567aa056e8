package lifecycle

import "errors"

// 生命周期操作的类型化结果：预期失败一律走这些哨兵错误，
// 只有真正的基础设施故障才以原始 error 上抛（HTTP 层映射为 500）。
var (
	// ErrUserNotFound 调用者身份尚未注册档案。
	ErrUserNotFound = errors.New("user not found")
	// ErrRequestNotFound 请求行不存在（或对调用者不可见，见 Cancel）。
	ErrRequestNotFound = errors.New("request not found")
	// ErrConflict 状态守卫失败：行不是预期状态。Accept 刻意不区分
	// “不存在”与“已被抢走”，避免泄露时序信息。
	ErrConflict = errors.New("request not found or already claimed")
	// ErrForbidden 调用者对该行没有操作权限。
	ErrForbidden = errors.New("not authorized")
	// ErrInvalidState 行存在但处于不允许该操作的状态。
	ErrInvalidState = errors.New("request is not in a valid state for this operation")
	// ErrInvalidMess 配送地点不在参照表内。
	ErrInvalidMess = errors.New("invalid mess id")
	// ErrValidation 输入缺失或非法，具体原因通过包装信息携带。
	ErrValidation = errors.New("validation failed")
)
