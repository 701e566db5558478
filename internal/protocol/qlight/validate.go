package qlight

import "fmt"

// Validate 按协议约束检查应答，返回是否有效及诊断原因。
//
// 检查顺序：应答标记 → 声音组（仅提示，不判无效）→ 五路灯状态 → 声音通道 → 备用字节；
// 遇到第一个致命问题即停止。
func (r *Response) Validate() (bool, []string) {
	var reasons []string

	if !r.Ack() {
		return false, append(reasons, fmt.Sprintf("not an ack, got byte 0x%02X at position %d", r.raw[OffsetOpcode], OffsetOpcode))
	}

	if !r.SoundGroup().Valid() {
		reasons = append(reasons, fmt.Sprintf("unexpected sound group 0x%02X at position %d, expected 0x00-0x%02X",
			uint8(r.SoundGroup()), OffsetGroup, uint8(MaxSoundGroup)))
	}

	for i, s := range r.Lamps() {
		if !s.Valid() {
			return false, append(reasons, fmt.Sprintf("invalid %s lamp state, got byte 0x%02X at position %d, expected one of 0x00/0x01/0x02",
				Colors[i], uint8(s), OffsetRed+i))
		}
	}

	if !r.SoundChannel().Valid() {
		return false, append(reasons, fmt.Sprintf("invalid sound channel, got byte 0x%02X at position %d, expected 0x00 or 0x%02X-0x%02X",
			uint8(r.SoundChannel()), OffsetSound, uint8(MinSoundChannel), uint8(MaxSoundChannel)))
	}

	for i, b := range r.Spare() {
		if b != 0 {
			return false, append(reasons, fmt.Sprintf("non-zero spare byte 0x%02X at position %d", b, OffsetSpare0+i))
		}
	}

	return true, reasons
}

// Valid 仅返回 Validate 的结论
func (r *Response) Valid() bool {
	ok, _ := r.Validate()
	return ok
}

// Err 有效时返回 nil，否则返回携带原因的 *ValidationError
func (r *Response) Err() error {
	ok, reasons := r.Validate()
	if ok {
		return nil
	}
	return &ValidationError{Reasons: reasons}
}

// Confirms 应答是否确认了所请求的红灯状态：帧有效且回显的红灯状态与请求一致
func (r *Response) Confirms(requested LampState) bool {
	return r.Valid() && r.Red() == requested
}
