package simulator

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/signal-lamp/internal/config"
	"github.com/taoyao-code/signal-lamp/internal/metrics"
	"github.com/taoyao-code/signal-lamp/internal/protocol/qlight"
)

// Server 信号灯设备模拟器：每个连接读取一帧 10 字节请求，回复一帧后关闭
type Server struct {
	cfg     cfgpkg.SimulatorConfig
	ln      net.Listener
	wg      sync.WaitGroup
	stopC   chan struct{}
	stop    sync.Once
	logger  *zap.Logger
	metrics *metrics.SimulatorMetrics
	session *sessionLimiter

	mu    sync.Mutex
	mode  Mode
	state qlight.Frame // 当前设备状态，按应答帧布局保存
}

// Option 模拟器选项
type Option func(*Server)

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.SimulatorMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New 创建模拟器，初始状态全灭、声音关闭；cfg.Mode 无法识别时按 normal 处理
func New(cfg cfgpkg.SimulatorConfig, opts ...Option) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		mode = ModeNormal
	}
	s := &Server{
		cfg:     cfg,
		stopC:   make(chan struct{}),
		logger:  zap.NewNop(),
		session: newSessionLimiter(cfg.MaxSessions, cfg.SessionWait),
		mode:    mode,
	}
	s.state[qlight.OffsetOpcode] = qlight.AckByte
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start 监听并接受连接（非阻塞，内部 goroutine）
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("lamp simulator listening", zap.String("addr", ln.Addr().String()), zap.String("mode", string(s.Mode())))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ln)
	}()
	return nil
}

// acceptLoop 接受连接直到监听关闭；仅超时类错误重试，其余错误记录后退出
func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopC:
				return
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			s.logger.Error("simulator accept failed", zap.Error(err))
			return
		}
		if s.metrics != nil {
			s.metrics.Accepted.Inc()
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer c.Close()
			if err := s.session.acquire(context.Background()); err != nil {
				if s.metrics != nil {
					s.metrics.Busy.Inc()
				}
				s.logger.Debug("simulator busy", zap.String("remote", c.RemoteAddr().String()), zap.Error(err))
				return
			}
			defer s.session.release()
			s.serve(c)
		}(conn)
	}
}

// Addr 返回实际监听地址（Start 之后有效）
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Port 返回实际监听端口，便于以 :0 启动的测试使用
func (s *Server) Port() int {
	if a, ok := s.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

// Shutdown 优雅关闭监听并等待连接退出，可重复调用
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop.Do(func() {
		close(s.stopC)
		if s.ln != nil {
			_ = s.ln.Close()
		}
	})
	ch := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(ch)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// Sessions 会话统计
func (s *Server) Sessions() SessionStats { return s.session.stats() }

// Mode 当前应答模式
func (s *Server) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode 切换应答模式
func (s *Server) SetMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// State 返回当前设备状态（按应答帧解码）
func (s *Server) State() *qlight.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return qlight.DecodeFrame(s.state)
}

// SetLamps 直接设置五路灯状态（红、黄、绿、蓝、白）
func (s *Server) SetLamps(lamps [5]qlight.LampState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range lamps {
		s.state[qlight.OffsetRed+i] = byte(l)
	}
}

// SetSound 直接设置声音组与通道
func (s *Server) SetSound(group qlight.SoundGroup, channel qlight.SoundChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[qlight.OffsetGroup] = byte(group)
	s.state[qlight.OffsetSound] = byte(channel)
}

func (s *Server) serve(c net.Conn) {
	_ = c.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	_ = c.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))

	var req qlight.Frame
	if _, err := io.ReadFull(c, req[:]); err != nil {
		if !errors.Is(err, io.EOF) {
			s.logger.Debug("simulator read failed", zap.String("remote", c.RemoteAddr().String()), zap.Error(err))
		}
		return
	}
	if s.metrics != nil {
		s.metrics.Requests.WithLabelValues(qlight.OpcodeName(req.Opcode())).Inc()
	}

	reply, ok := s.respond(req)
	if !ok {
		s.logger.Debug("simulator dropped reply", zap.String("req", req.Hex()))
		return
	}
	if _, err := c.Write(reply); err != nil {
		s.logger.Debug("simulator write failed", zap.Error(err))
		return
	}
	s.logger.Debug("simulator exchange", zap.String("req", req.Hex()), zap.Binary("reply", reply))
}

// respond 按模式生成应答；ok 为 false 时不回复直接关闭
func (s *Server) respond(req qlight.Frame) (reply []byte, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeSilent {
		return nil, false
	}
	if s.mode == ModeNack || !(req.IsRead() || req.IsWrite()) {
		return nack(), true
	}

	if req.IsWrite() {
		red := qlight.LampState(req[qlight.OffsetRed])
		if !red.Valid() {
			return nack(), true
		}
		if s.mode != ModeMismatch {
			s.state[qlight.OffsetRed] = byte(red)
		}
	}

	out := s.state
	switch s.mode {
	case ModeGarbage:
		out[qlight.OffsetRed] = 0x03
	case ModeShort:
		return out[:qlight.FrameLen/2], true
	}
	return out[:], true
}

func nack() []byte {
	return make([]byte, qlight.FrameLen)
}
