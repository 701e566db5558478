package health

import (
	"context"
	"errors"
	"time"

	"github.com/taoyao-code/signal-lamp/internal/protocol/qlight"
)

// LampReader 执行一次读交换
type LampReader interface {
	ReadLamp(ctx context.Context) (*qlight.Response, error)
}

// LampChecker 信号灯健康检查器：执行一次读交换。
// 应答有效为 Healthy；无应答、应答残缺或校验失败为 Degraded；传输错误为 Unhealthy。
type LampChecker struct {
	reader LampReader
	addr   string
}

// NewLampChecker 创建信号灯检查器，addr 仅用于详情展示
func NewLampChecker(reader LampReader, addr string) *LampChecker {
	return &LampChecker{reader: reader, addr: addr}
}

// Name 返回检查器名称
func (c *LampChecker) Name() string {
	return "lamp"
}

// Check 执行健康检查
func (c *LampChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	details := map[string]any{"addr": c.addr}

	resp, err := c.reader.ReadLamp(ctx)
	if err != nil {
		status := StatusUnhealthy
		if errors.Is(err, qlight.ErrNoResponse) || errors.Is(err, qlight.ErrMalformedResponse) {
			status = StatusDegraded
		}
		return CheckResult{
			Status:  status,
			Message: err.Error(),
			Details: details,
			Latency: time.Since(start),
		}
	}

	ok, reasons := resp.Validate()
	details["red"] = resp.Red().String()
	details["raw"] = resp.Raw().Hex()
	if len(reasons) > 0 {
		details["reasons"] = reasons
	}
	if !ok {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "invalid reply",
			Details: details,
			Latency: time.Since(start),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: details,
		Latency: time.Since(start),
	}
}
