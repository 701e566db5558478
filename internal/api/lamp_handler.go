package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/taoyao-code/signal-lamp/internal/api/middleware"
	"github.com/taoyao-code/signal-lamp/internal/lampclient"
	"github.com/taoyao-code/signal-lamp/internal/protocol/qlight"
)

// Lamp 灯控 API 依赖的设备操作（*lampclient.Client 实现）
type Lamp interface {
	ReadLamp(ctx context.Context) (*qlight.Response, error)
	SetLamp(ctx context.Context, state qlight.LampState) (bool, *qlight.Response, error)
}

// minWatchInterval 推送间隔下限
const minWatchInterval = 100 * time.Millisecond

// LampHandler 信号灯 API 处理器。
// 设备同一时刻只处理一个会话，所有交换经 mu 串行化。
type LampHandler struct {
	lamp          Lamp
	logger        *zap.Logger
	watchInterval time.Duration
	upgrader      websocket.Upgrader

	mu sync.Mutex
}

// NewLampHandler 创建处理器；watchInterval 为 watch 推送的默认间隔
func NewLampHandler(lamp Lamp, watchInterval time.Duration, logger *zap.Logger) *LampHandler {
	if watchInterval < minWatchInterval {
		watchInterval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LampHandler{
		lamp:          lamp,
		logger:        logger,
		watchInterval: watchInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// SetLampRequest 设置红灯请求体
type SetLampRequest struct {
	State string `json:"state" binding:"required"`
}

func (h *LampHandler) read(ctx context.Context) (*qlight.Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lamp.ReadLamp(ctx)
}

// ReadLamp 串行化的读交换，供健康检查与 API 共用同一把锁
func (h *LampHandler) ReadLamp(ctx context.Context) (*qlight.Response, error) {
	return h.read(ctx)
}

func (h *LampHandler) set(ctx context.Context, state qlight.LampState) (bool, *qlight.Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lamp.SetLamp(ctx, state)
}

// GetLamp 读取全部灯状态
// @Summary 读取信号灯状态
// @Tags 信号灯
// @Produce json
// @Success 200 {object} qlight.Snapshot
// @Router /api/v1/lamp [get]
func (h *LampHandler) GetLamp(c *gin.Context) {
	resp, err := h.read(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.Snapshot())
}

// PutRed 设置红灯状态，body: {"state":"on|off|blink"}
// @Summary 设置红灯
// @Tags 信号灯
// @Accept json
// @Produce json
// @Success 200 {object} qlight.WriteResult
// @Router /api/v1/lamp/red [put]
func (h *LampHandler) PutRed(c *gin.Context) {
	var req SetLampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "invalid_request",
			"message":    err.Error(),
			"request_id": middleware.RequestIDFrom(c),
		})
		return
	}
	h.setRed(c, req.State)
}

// PostRed 快捷设置红灯：/api/v1/lamp/red/{on,off,blink}
func (h *LampHandler) PostRed(c *gin.Context) {
	h.setRed(c, c.Param("state"))
}

func (h *LampHandler) setRed(c *gin.Context, arg string) {
	state, err := qlight.ParseLampState(arg)
	if err != nil {
		h.writeError(c, err)
		return
	}
	verified, resp, err := h.set(c.Request.Context(), state)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("red lamp set",
		zap.Stringer("state", state),
		zap.Bool("verified", verified),
		zap.String("request_id", middleware.RequestIDFrom(c)),
	)
	c.JSON(http.StatusOK, qlight.WriteResult{Verified: verified, Snapshot: resp.Snapshot()})
}

// Watch 以 websocket 周期推送灯状态快照，?poll=500ms 可覆盖默认间隔。
// 单次交换失败时推送 {"error","message"} 并继续，直到对端断开。
func (h *LampHandler) Watch(c *gin.Context) {
	interval := h.watchInterval
	if v := c.Query("poll"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < minWatchInterval {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_argument",
				"message": "poll must be a duration of at least " + minWatchInterval.String(),
			})
			return
		}
		interval = d
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	// 清除 http.Server 在握手阶段设置的读写截止时间
	_ = conn.NetConn().SetDeadline(time.Time{})
	h.logger.Debug("websocket subscription", zap.String("remote", conn.RemoteAddr().String()), zap.Duration("poll", interval))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// 读循环只用于感知对端关闭
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		var msg any
		if resp, err := h.read(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			code, _ := errorCode(err)
			msg = gin.H{"error": code, "message": err.Error()}
		} else {
			msg = resp.Snapshot()
		}

		_ = conn.SetWriteDeadline(time.Now().Add(interval + time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug("websocket lost connection", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *LampHandler) writeError(c *gin.Context, err error) {
	code, status := errorCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("lamp request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{
		"error":      code,
		"message":    err.Error(),
		"request_id": middleware.RequestIDFrom(c),
	})
}

// errorCode 将错误映射为错误码与 HTTP 状态
func errorCode(err error) (string, int) {
	switch {
	case errors.Is(err, qlight.ErrInvalidArgument):
		return "invalid_argument", http.StatusBadRequest
	case errors.Is(err, lampclient.ErrTimeout):
		return "timeout", http.StatusGatewayTimeout
	case errors.Is(err, lampclient.ErrConnection):
		return "connection_error", http.StatusBadGateway
	case errors.Is(err, qlight.ErrNoResponse):
		return "no_response", http.StatusBadGateway
	case errors.Is(err, qlight.ErrMalformedResponse):
		return "malformed_response", http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return "canceled", http.StatusServiceUnavailable
	default:
		return "internal_error", http.StatusInternalServerError
	}
}
