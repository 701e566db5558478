package simulator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// sessionLimiter 设备会话许可（基于 Semaphore）。
// 真实设备同一时刻只服务一个连接，其余连接排队等待，超时后不应答直接关闭。
type sessionLimiter struct {
	sem           chan struct{}
	wait          time.Duration
	max           int
	activeCount   atomic.Int64
	rejectedCount atomic.Int64
}

func newSessionLimiter(max int, wait time.Duration) *sessionLimiter {
	if max <= 0 {
		max = 1
	}
	if wait <= 0 {
		wait = time.Second
	}
	return &sessionLimiter{
		sem:  make(chan struct{}, max),
		wait: wait,
		max:  max,
	}
}

// acquire 获取会话许可，等待超过 wait 或 ctx 结束时失败
func (l *sessionLimiter) acquire(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	select {
	case l.sem <- struct{}{}:
		l.activeCount.Add(1)
		return nil
	case <-ctx.Done():
		l.rejectedCount.Add(1)
		return fmt.Errorf("device busy: max sessions=%d", l.max)
	}
}

func (l *sessionLimiter) release() {
	select {
	case <-l.sem:
		l.activeCount.Add(-1)
	default:
	}
}

// SessionStats 会话统计
type SessionStats struct {
	MaxSessions    int   `json:"max_sessions"`
	ActiveSessions int   `json:"active_sessions"`
	RejectedTotal  int64 `json:"rejected_total"`
}

func (l *sessionLimiter) stats() SessionStats {
	return SessionStats{
		MaxSessions:    l.max,
		ActiveSessions: int(l.activeCount.Load()),
		RejectedTotal:  l.rejectedCount.Load(),
	}
}
