package lampclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/taoyao-code/signal-lamp/internal/protocol/qlight"
)

// DefaultTimeout 连接与读取的默认超时
const DefaultTimeout = 2 * time.Second

var (
	ErrConnection = errors.New("lampclient: connection error")
	ErrTimeout    = errors.New("lampclient: timeout")
)

// dialContext 建立 TCP 连接，测试中可替换以模拟慢速握手
var dialContext = (&net.Dialer{}).DialContext

// Exchange 执行一次完整交换：建立 TCP 连接、发送 10 字节帧、读取至多 10 字节应答、关闭连接。
//
// 对端未应答即关闭时返回空切片；发送半包后关闭时返回不足 10 字节的数据，二者均不视为错误。
// 连接、发送、接收各自受 timeout（<=0 时取 DefaultTimeout）约束，ctx 截止时间为整体上限。
// 拒绝连接、不可达、连接重置返回 ErrConnection；超时返回 ErrTimeout。不做重试。
func Exchange(ctx context.Context, address string, port int, frame qlight.Frame, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	addr := net.JoinHostPort(address, strconv.Itoa(port))

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	conn, err := dialContext(dialCtx, "tcp", addr)
	cancel()
	if err != nil {
		return nil, classify(ctx, "dial "+addr, err)
	}
	defer conn.Close()

	// 上下文被取消时打断阻塞中的读写
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	_ = conn.SetWriteDeadline(opDeadline(ctx, timeout))
	if ctx.Err() != nil {
		return nil, classify(ctx, "write "+addr, ctx.Err())
	}
	if _, err := conn.Write(frame[:]); err != nil {
		return nil, classify(ctx, "write "+addr, err)
	}

	_ = conn.SetReadDeadline(opDeadline(ctx, timeout))
	if ctx.Err() != nil {
		return nil, classify(ctx, "read "+addr, ctx.Err())
	}
	buf := make([]byte, qlight.FrameLen)
	n, err := io.ReadFull(conn, buf)
	switch {
	case err == nil:
		return buf, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		// 对端关闭：返回实际收到的字节（可能为空）
		return buf[:n], nil
	default:
		return nil, classify(ctx, "read "+addr, err)
	}
}

// opDeadline 单步操作的截止时间：now+timeout 与 ctx 截止时间中较早者
func opDeadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}

// classify 将底层网络错误归类为 ErrTimeout / ErrConnection，调用方主动取消时原样返回 context.Canceled
func classify(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s: %w", op, context.Canceled)
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) ||
		(errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %s: %w", ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrConnection, op, err)
}
