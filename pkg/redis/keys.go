package redis

import "fmt"

// RateLimitUserKey 按已验证身份限流的键名。
func RateLimitUserKey(email string) string {
	return fmt.Sprintf("errand:rate_limit:user:%s", email)
}

// RateLimitIPKey 未认证/解析失败时按 IP 限流的降级键名。
func RateLimitIPKey(ip string) string {
	return fmt.Sprintf("errand:rate_limit:ip:%s", ip)
}

// EventSeenKey 标记某个 event_id 是否已被消费（消费端快速去重）。
func EventSeenKey(eventID string) string {
	return fmt.Sprintf("errand:event:seen:%s", eventID)
}
