// Package qlight 实现 QLight ST56EL-ETN 信号灯的 10 字节定长命令/应答协议。
//
// 请求与应答均为 10 个原始字节，无长度前缀、无校验和、无分隔符：
//
//	偏移  请求                         应答
//	[0]   操作码 0x52 读 / 0x57 写     应答标记 0x41 'A'
//	[1]   类型/组，固定 0x00           声音组 0x00-0x04
//	[2]   红灯命令（仅写）             红灯状态
//	[3]   黄灯 0x00                    黄灯状态
//	[4]   绿灯 0x00                    绿灯状态
//	[5]   蓝灯 0x00                    蓝灯状态
//	[6]   白灯 0x00                    白灯状态
//	[7]   声音 0x00                    声音通道 0 或 0x01-0x05
//	[8:10] 备用 0x00                   备用，必须为 0x00
package qlight

import (
	"encoding/hex"
	"fmt"
)

// FrameLen 请求帧与应答帧的固定长度
const FrameLen = 10

// 操作码与应答标记
const (
	OpRead  byte = 0x52 // 'R'
	OpWrite byte = 0x57 // 'W'
	AckByte byte = 0x41 // 'A'
)

// 帧内字段偏移
const (
	OffsetOpcode  = 0
	OffsetGroup   = 1
	OffsetRed     = 2
	OffsetAmber   = 3
	OffsetGreen   = 4
	OffsetBlue    = 5
	OffsetWhite   = 6
	OffsetSound   = 7
	OffsetSpare0  = 8
	OffsetSpare1  = 9
	lampFieldsLen = 5
)

// Frame 一帧定长报文（请求或应答）
type Frame [FrameLen]byte

// Bytes 返回帧的字节切片副本
func (f Frame) Bytes() []byte {
	b := make([]byte, FrameLen)
	copy(b, f[:])
	return b
}

// Opcode 返回第 0 字节
func (f Frame) Opcode() byte { return f[OffsetOpcode] }

// IsWrite 是否为写命令
func (f Frame) IsWrite() bool { return f[OffsetOpcode] == OpWrite }

// IsRead 是否为读命令
func (f Frame) IsRead() bool { return f[OffsetOpcode] == OpRead }

func (f Frame) String() string {
	return fmt.Sprintf("% X", f[:])
}

// Hex 返回紧凑的十六进制表示，用于日志与快照
func (f Frame) Hex() string {
	return hex.EncodeToString(f[:])
}

// FrameFromBytes 将恰好 10 字节拷贝为 Frame
func FrameFromBytes(b []byte) (Frame, error) {
	var f Frame
	if len(b) != FrameLen {
		return f, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedResponse, len(b), FrameLen)
	}
	copy(f[:], b)
	return f, nil
}

// OpcodeName 操作码名称
func OpcodeName(op byte) string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case AckByte:
		return "ack"
	default:
		return fmt.Sprintf("0x%02X", op)
	}
}
