package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// mockChecker 模拟检查器
type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(ctx context.Context) CheckResult {
	return CheckResult{
		Status:  m.status,
		Message: "mock",
		Latency: time.Millisecond,
	}
}

// slowChecker 等待 ctx 结束
type slowChecker struct{}

func (slowChecker) Name() string { return "slow" }

func (slowChecker) Check(ctx context.Context) CheckResult {
	<-ctx.Done()
	return CheckResult{Status: StatusUnhealthy, Message: ctx.Err().Error()}
}

func TestAggregator(t *testing.T) {
	ctx := context.Background()

	t.Run("全部健康", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"lamp", StatusHealthy}, &mockChecker{"other", StatusHealthy})
		assert.Equal(t, StatusHealthy, agg.OverallStatus(ctx))
		assert.True(t, agg.Ready(ctx))
	})

	t.Run("部分降级仍然就绪", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"lamp", StatusDegraded}, &mockChecker{"other", StatusHealthy})
		assert.Equal(t, StatusDegraded, agg.OverallStatus(ctx))
		assert.True(t, agg.Ready(ctx))
	})

	t.Run("任一不健康则不就绪", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"lamp", StatusUnhealthy}, &mockChecker{"other", StatusDegraded})
		assert.Equal(t, StatusUnhealthy, agg.OverallStatus(ctx))
		assert.False(t, agg.Ready(ctx))
	})

	t.Run("动态添加检查器", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"initial", StatusHealthy})
		agg.AddChecker(&mockChecker{"added", StatusHealthy})
		assert.Len(t, agg.CheckAll(ctx), 2)
	})

	t.Run("Report只执行一轮", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"lamp", StatusDegraded})
		report := agg.Report(ctx)
		assert.Equal(t, StatusDegraded, report.Status)
		assert.Contains(t, report.Checks, "lamp")
		assert.False(t, report.Timestamp.IsZero())
	})

	t.Run("检查超时", func(t *testing.T) {
		agg := NewAggregator(slowChecker{})
		agg.SetTimeout(50 * time.Millisecond)
		start := time.Now()
		assert.Equal(t, StatusUnhealthy, agg.OverallStatus(ctx))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("Alive始终返回true", func(t *testing.T) {
		assert.True(t, NewAggregator().Alive())
	})
}

func TestReadiness(t *testing.T) {
	r := New()
	assert.False(t, r.Ready())
	r.SetListening(true)
	assert.True(t, r.Ready())
	r.SetDraining(true)
	assert.False(t, r.Ready())
}
