package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken 统一的凭证校验失败，对外一律映射为 401。
var ErrInvalidToken = errors.New("invalid token")

// Identity 是外部身份服务验证出来的调用者身份。
type Identity struct {
	Email   string
	Subject string
}

// Verifier 校验 Bearer 凭证并解出身份。实现通过显式注入传给
// HTTP 层，不做进程级单例，方便测试替换。
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// StaticVerifier 固定 token→身份 的映射，测试与本地联调用。
type StaticVerifier map[string]Identity

func (v StaticVerifier) Verify(_ context.Context, token string) (Identity, error) {
	id, ok := v[token]
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}
