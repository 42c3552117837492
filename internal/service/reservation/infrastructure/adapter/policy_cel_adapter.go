// internal/service/reservation/infrastructure/adapter/policy_cel_adapter.go
package adapter

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// PolicyCelAdapter 是 port.AdmissionPolicy 的 CEL 实现
// 准入规则是一条对 {productId, quantity} 求值的布尔表达式，
// 运营可以通过配置调整限购策略而无需改代码，例如:
//
//	quantity > 0 && quantity <= 10
//	productId != 42 || quantity <= 2
type PolicyCelAdapter struct {
	program cel.Program
}

// NewPolicyCelAdapter 编译规则表达式。表达式语法错误在启动时就会暴露。
func NewPolicyCelAdapter(rule string) (*PolicyCelAdapter, error) {
	env, err := cel.NewEnv(
		cel.Variable("productId", cel.IntType),
		cel.Variable("quantity", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid admission rule %q: %w", rule, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("admission rule %q must evaluate to bool, got %s", rule, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build CEL program: %w", err)
	}
	return &PolicyCelAdapter{program: program}, nil
}

// Allow 对单个请求求值，纯本地计算，无副作用
func (a *PolicyCelAdapter) Allow(_ context.Context, productID uint64, quantity int64) (bool, error) {
	out, _, err := a.program.Eval(map[string]interface{}{
		"productId": int64(productID),
		"quantity":  quantity,
	})
	if err != nil {
		return false, fmt.Errorf("admission rule evaluation failed: %w", err)
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("admission rule returned non-bool value: %v", out.Value())
	}
	return allowed, nil
}
