package lampclient

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/signal-lamp/internal/config"
	"github.com/taoyao-code/signal-lamp/internal/protocol/qlight"
)

// Observer 交换结果观察者（由 metrics.LampMetrics 实现）
type Observer interface {
	ObserveExchange(op, result string, d time.Duration)
	ObserveValidation(ok bool)
	ObserveVerify(verified bool)
}

type nopObserver struct{}

func (nopObserver) ObserveExchange(string, string, time.Duration) {}
func (nopObserver) ObserveValidation(bool)                        {}
func (nopObserver) ObserveVerify(bool)                            {}

// 交换结果标签
const (
	ResultOK         = "ok"
	ResultTimeout    = "timeout"
	ResultConnection = "connection"
	ResultNoResponse = "no_response"
	ResultMalformed  = "malformed"
	ResultCanceled   = "canceled"
)

// Client 单个信号灯设备的客户端。
// 不持有连接，每次调用都是一次独立的连接-发送-接收-关闭交换。
type Client struct {
	address string
	port    int
	timeout time.Duration
	logger  *zap.Logger
	obs     Observer
}

// Option 客户端选项
type Option func(*Client)

// WithTimeout 设置单次交换超时
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver 设置指标观察者
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.obs = o
		}
	}
}

// New 创建客户端
func New(address string, port int, opts ...Option) *Client {
	c := &Client{
		address: address,
		port:    port,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
		obs:     nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig 按 lamp 配置段创建客户端
func NewFromConfig(cfg config.LampConfig, opts ...Option) *Client {
	return New(cfg.Addr, cfg.Port, append([]Option{WithTimeout(cfg.Timeout)}, opts...)...)
}

// Address 返回 host:port
func (c *Client) Address() string {
	return net.JoinHostPort(c.address, strconv.Itoa(c.port))
}

// Timeout 返回单次交换超时
func (c *Client) Timeout() time.Duration { return c.timeout }

// ReadLamp 发送读命令并返回解码后的应答。
// 收到的应答无论是否通过校验都会返回，是否有效由调用方查看 Validate。
func (c *Client) ReadLamp(ctx context.Context) (*qlight.Response, error) {
	return c.roundTrip(ctx, qlight.ReadCommand())
}

// SetLamp 设置红灯状态并返回设备是否确认。
// verified 为 true 当且仅当应答通过校验且回显的红灯状态与请求一致；
// 回显不一致不是错误，返回 verified=false 与应答本身。
func (c *Client) SetLamp(ctx context.Context, state qlight.LampState) (bool, *qlight.Response, error) {
	frame, err := qlight.WriteCommand(state)
	if err != nil {
		return false, nil, err
	}
	resp, err := c.roundTrip(ctx, frame)
	if err != nil {
		return false, nil, err
	}
	verified := resp.Confirms(state)
	c.obs.ObserveVerify(verified)
	if !verified {
		c.logger.Warn("lamp write not confirmed",
			zap.String("addr", c.Address()),
			zap.Stringer("requested", state),
			zap.Stringer("echoed", resp.Red()),
		)
	}
	return verified, resp, nil
}

// LampOn 红灯常亮
func (c *Client) LampOn(ctx context.Context) (bool, *qlight.Response, error) {
	return c.SetLamp(ctx, qlight.LampOn)
}

// LampOff 红灯熄灭
func (c *Client) LampOff(ctx context.Context) (bool, *qlight.Response, error) {
	return c.SetLamp(ctx, qlight.LampOff)
}

// LampBlink 红灯闪烁
func (c *Client) LampBlink(ctx context.Context) (bool, *qlight.Response, error) {
	return c.SetLamp(ctx, qlight.LampBlink)
}

func (c *Client) roundTrip(ctx context.Context, frame qlight.Frame) (*qlight.Response, error) {
	op := qlight.OpcodeName(frame.Opcode())
	log := c.logger.With(
		zap.String("exchange_id", uuid.NewString()),
		zap.String("addr", c.Address()),
		zap.String("op", op),
	)

	start := time.Now()
	raw, err := Exchange(ctx, c.address, c.port, frame, c.timeout)
	if err == nil {
		var resp *qlight.Response
		resp, err = qlight.Decode(raw)
		if err == nil {
			d := time.Since(start)
			c.obs.ObserveExchange(op, ResultOK, d)
			ok, reasons := resp.Validate()
			c.obs.ObserveValidation(ok)
			log.Debug("lamp exchange",
				zap.String("tx", frame.Hex()),
				zap.String("rx", resp.Raw().Hex()),
				zap.Duration("took", d),
			)
			if len(reasons) > 0 {
				log.Warn("lamp reply flagged", zap.Bool("valid", ok), zap.Strings("reasons", reasons))
			}
			return resp, nil
		}
	}

	c.obs.ObserveExchange(op, ResultLabel(err), time.Since(start))
	log.Warn("lamp exchange failed", zap.String("tx", frame.Hex()), zap.Error(err))
	return nil, err
}

// ResultLabel 将交换错误映射为指标标签
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrTimeout):
		return ResultTimeout
	case errors.Is(err, ErrConnection):
		return ResultConnection
	case errors.Is(err, qlight.ErrNoResponse):
		return ResultNoResponse
	case errors.Is(err, qlight.ErrMalformedResponse):
		return ResultMalformed
	case errors.Is(err, context.Canceled):
		return ResultCanceled
	default:
		return ResultConnection
	}
}
