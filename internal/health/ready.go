package health

import "sync/atomic"

// Readiness 网关进程自身的就绪状态：HTTP 已监听且未进入关闭流程
type Readiness struct {
	listening atomic.Bool
	draining  atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetListening(v bool) { r.listening.Store(v) }
func (r *Readiness) SetDraining(v bool)  { r.draining.Store(v) }

// Ready 已监听且未在关闭中
func (r *Readiness) Ready() bool {
	return r.listening.Load() && !r.draining.Load()
}
