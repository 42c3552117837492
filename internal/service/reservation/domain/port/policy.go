// internal/service/reservation/domain/port/policy.go
package port

import "context"

// AdmissionPolicy 是可配置的准入规则引擎端口
// 规则只做本地校验，不产生任何副作用；拒绝的请求不允许触碰计数器
type AdmissionPolicy interface {
	// Allow 返回请求是否通过准入规则
	Allow(ctx context.Context, productID uint64, quantity int64) (bool, error)
}
