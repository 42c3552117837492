package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyCelAdapter_QuantityLimit(t *testing.T) {
	policy, err := NewPolicyCelAdapter("quantity > 0 && quantity <= 10")
	require.NoError(t, err)

	cases := []struct {
		name      string
		productID uint64
		quantity  int64
		want      bool
	}{
		{"within limit", 1, 5, true},
		{"at limit", 1, 10, true},
		{"over limit", 1, 11, false},
		{"zero", 1, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			allowed, err := policy.Allow(context.Background(), tc.productID, tc.quantity)
			require.NoError(t, err)
			assert.Equal(t, tc.want, allowed)
		})
	}
}

func TestPolicyCelAdapter_ProductSpecificRule(t *testing.T) {
	policy, err := NewPolicyCelAdapter("productId != 42 || quantity <= 2")
	require.NoError(t, err)

	allowed, err := policy.Allow(context.Background(), 42, 3)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = policy.Allow(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestNewPolicyCelAdapter_RejectsBadRules(t *testing.T) {
	_, err := NewPolicyCelAdapter("quantity >")
	assert.Error(t, err)

	// 语法合法但结果不是布尔值的规则也必须在启动时被拒绝
	_, err = NewPolicyCelAdapter("quantity + 1")
	assert.Error(t, err)
}
