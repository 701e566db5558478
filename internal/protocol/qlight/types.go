package qlight

import (
	"fmt"
	"strings"
)

// LampState 单色灯状态
type LampState uint8

const (
	LampOff   LampState = 0x00
	LampOn    LampState = 0x01
	LampBlink LampState = 0x02
)

// LampStates 设备支持的全部灯状态，按编码升序
var LampStates = []LampState{LampOff, LampOn, LampBlink}

// ParseLampState 解析参数形式的灯状态："off" | "on" | "blink"（不区分大小写）
func ParseLampState(s string) (LampState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return LampOff, nil
	case "on":
		return LampOn, nil
	case "blink":
		return LampBlink, nil
	}
	return 0, fmt.Errorf("%w: lamp state must be one of \"off\", \"on\", \"blink\", got %q", ErrInvalidArgument, s)
}

// Valid 是否为协议定义的状态码
func (s LampState) Valid() bool {
	switch s {
	case LampOff, LampOn, LampBlink:
		return true
	}
	return false
}

// String 状态名称；未知编码渲染为错误标记，不会 panic
func (s LampState) String() string {
	switch s {
	case LampOff:
		return "OFF"
	case LampOn:
		return "ON"
	case LampBlink:
		return "BLINK"
	default:
		return fmt.Sprintf("ERR (0x%02X)", uint8(s))
	}
}

// Arg 参数形式的名称（与 ParseLampState 对应）
func (s LampState) Arg() string {
	if !s.Valid() {
		return s.String()
	}
	return strings.ToLower(s.String())
}

func (s LampState) MarshalText() ([]byte, error) {
	return []byte(s.Arg()), nil
}

// UnmarshalText 接受参数形式的名称，以及 MarshalText 为未知编码输出的 "ERR (0xNN)"
func (s *LampState) UnmarshalText(b []byte) error {
	v, err := ParseLampState(string(b))
	if err == nil {
		*s = v
		return nil
	}
	var code uint8
	if _, serr := fmt.Sscanf(string(b), "ERR (0x%02X)", &code); serr == nil && LampState(code).String() == string(b) {
		*s = LampState(code)
		return nil
	}
	return err
}

// SoundGroup 声音组（应答第 1 字节）
type SoundGroup uint8

// MaxSoundGroup 最大声音组编号
const MaxSoundGroup SoundGroup = 0x04

// Valid 是否在 0x00-0x04 之内
func (g SoundGroup) Valid() bool { return g <= MaxSoundGroup }

// SoundChannel 声音通道（应答第 7 字节），0 表示关闭
type SoundChannel uint8

const (
	SoundOff        SoundChannel = 0x00
	MinSoundChannel SoundChannel = 0x01
	MaxSoundChannel SoundChannel = 0x05
)

// Valid 关闭或 0x01-0x05
func (c SoundChannel) Valid() bool {
	return c == SoundOff || (c >= MinSoundChannel && c <= MaxSoundChannel)
}

// Colors 五路灯的名称，顺序与帧偏移 2..6 一致
var Colors = [lampFieldsLen]string{"red", "amber", "green", "blue", "white"}
