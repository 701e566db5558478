package qlight

import (
	"fmt"
	"strings"
)

// String 诊断用的可读表示；无效应答以 "[Invalid] " 开头
func (r *Response) String() string {
	var sb strings.Builder
	if !r.Valid() {
		sb.WriteString("[Invalid] ")
	}
	for i, s := range r.Lamps() {
		name := Colors[i]
		fmt.Fprintf(&sb, "%s%s: %s, ", strings.ToUpper(name[:1]), name[1:], s)
	}
	fmt.Fprintf(&sb, "Sound group: %d, Sound channel: %d", uint8(r.SoundGroup()), uint8(r.SoundChannel()))
	return sb.String()
}

// Snapshot 应答的可序列化视图（CLI 输出与 HTTP API 共用）
type Snapshot struct {
	Ack          bool      `json:"ack" yaml:"ack"`
	Valid        bool      `json:"valid" yaml:"valid"`
	Reasons      []string  `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	Red          LampState `json:"red" yaml:"red"`
	Amber        LampState `json:"amber" yaml:"amber"`
	Green        LampState `json:"green" yaml:"green"`
	Blue         LampState `json:"blue" yaml:"blue"`
	White        LampState `json:"white" yaml:"white"`
	SoundGroup   uint8     `json:"sound_group" yaml:"sound_group"`
	SoundChannel uint8     `json:"sound_channel" yaml:"sound_channel"`
	Raw          string    `json:"raw" yaml:"raw"`
}

// Snapshot 生成可序列化视图
func (r *Response) Snapshot() Snapshot {
	ok, reasons := r.Validate()
	return Snapshot{
		Ack:          r.Ack(),
		Valid:        ok,
		Reasons:      reasons,
		Red:          r.Red(),
		Amber:        r.Amber(),
		Green:        r.Green(),
		Blue:         r.Blue(),
		White:        r.White(),
		SoundGroup:   uint8(r.SoundGroup()),
		SoundChannel: uint8(r.SoundChannel()),
		Raw:          r.raw.Hex(),
	}
}

// WriteResult 写命令结果视图：是否被设备确认以及应答快照
type WriteResult struct {
	Verified bool     `json:"verified" yaml:"verified"`
	Snapshot Snapshot `json:"snapshot" yaml:"snapshot"`
}
