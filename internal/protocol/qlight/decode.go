package qlight

import "fmt"

// Response 一次交换收到的应答帧的解码视图（构造后不可变）。
// 所有字段均按需从原始帧派生，解码视图与 Raw 始终一致。
type Response struct {
	raw Frame
}

// Decode 解析应答。
// 空输入返回 ErrNoResponse；长度既非 0 也非 10 返回 ErrMalformedResponse。
// 字段取值不在此处校验，越界值原样保留，由 Validate 判定。
func Decode(b []byte) (*Response, error) {
	if len(b) == 0 {
		return nil, ErrNoResponse
	}
	if len(b) != FrameLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedResponse, len(b), FrameLen)
	}
	var f Frame
	copy(f[:], b)
	return DecodeFrame(f), nil
}

// DecodeFrame 从定长帧解码
func DecodeFrame(f Frame) *Response {
	return &Response{raw: f}
}

// Raw 返回原始应答帧
func (r *Response) Raw() Frame { return r.raw }

// Ack 首字节是否为应答标记 0x41
func (r *Response) Ack() bool { return r.raw[OffsetOpcode] == AckByte }

// SoundGroup 声音组
func (r *Response) SoundGroup() SoundGroup { return SoundGroup(r.raw[OffsetGroup]) }

// Red 等五路灯状态
func (r *Response) Red() LampState   { return LampState(r.raw[OffsetRed]) }
func (r *Response) Amber() LampState { return LampState(r.raw[OffsetAmber]) }
func (r *Response) Green() LampState { return LampState(r.raw[OffsetGreen]) }
func (r *Response) Blue() LampState  { return LampState(r.raw[OffsetBlue]) }
func (r *Response) White() LampState { return LampState(r.raw[OffsetWhite]) }

// SoundChannel 声音通道
func (r *Response) SoundChannel() SoundChannel { return SoundChannel(r.raw[OffsetSound]) }

// Spare 两个备用字节
func (r *Response) Spare() [2]byte { return [2]byte{r.raw[OffsetSpare0], r.raw[OffsetSpare1]} }

// Lamps 按红、黄、绿、蓝、白顺序返回五路灯状态
func (r *Response) Lamps() [lampFieldsLen]LampState {
	return [lampFieldsLen]LampState{r.Red(), r.Amber(), r.Green(), r.Blue(), r.White()}
}

// Lamp 按颜色名称取状态
func (r *Response) Lamp(color string) (LampState, bool) {
	lamps := r.Lamps()
	for i, c := range Colors {
		if c == color {
			return lamps[i], true
		}
	}
	return 0, false
}
