package qlight

import "fmt"

// Encode 构造一帧读/写命令。
// 读命令不得携带灯状态；写命令必须携带 OFF/ON/BLINK 之一。
// 除操作码与红灯字节外，其余字节固定为 0x00。
func Encode(write bool, red *LampState) (Frame, error) {
	var f Frame
	if !write {
		if red != nil {
			return f, fmt.Errorf("%w: cannot provide a lamp state for a read command", ErrInvalidArgument)
		}
		f[OffsetOpcode] = OpRead
		return f, nil
	}
	if red == nil {
		return f, fmt.Errorf("%w: write command requires a lamp state", ErrInvalidArgument)
	}
	if !red.Valid() {
		return f, fmt.Errorf("%w: lamp state must be one of off, on, blink, got 0x%02X", ErrInvalidArgument, uint8(*red))
	}
	f[OffsetOpcode] = OpWrite
	f[OffsetRed] = byte(*red)
	return f, nil
}

// ReadCommand 读状态命令
func ReadCommand() Frame {
	f, _ := Encode(false, nil)
	return f
}

// WriteCommand 设置红灯状态的写命令
func WriteCommand(state LampState) (Frame, error) {
	return Encode(true, &state)
}
