package simulator

import (
	"fmt"
	"strings"
)

// Mode 模拟器应答模式，用于故障注入
type Mode string

const (
	ModeNormal   Mode = "normal"   // 正常应答
	ModeSilent   Mode = "silent"   // 不应答直接关闭
	ModeShort    Mode = "short"    // 只回 5 字节
	ModeNack     Mode = "nack"     // 首字节 0x00
	ModeMismatch Mode = "mismatch" // 忽略写命令，回显原红灯状态
	ModeGarbage  Mode = "garbage"  // 红灯字节 0x03
)

// Modes 全部模式
var Modes = []Mode{ModeNormal, ModeSilent, ModeShort, ModeNack, ModeMismatch, ModeGarbage}

// ParseMode 解析模式名称，空串视为 normal
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeNormal, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown simulator mode %q", s)
}
