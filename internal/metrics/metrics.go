package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// LampMetrics 信号灯交换相关指标
type LampMetrics struct {
	ExchangeTotal      *prometheus.CounterVec   // labels: op=read|write, result
	ExchangeDuration   *prometheus.HistogramVec // labels: op
	ValidationFailures prometheus.Counter
	WriteVerifyTotal   *prometheus.CounterVec // labels: result=verified|unverified
}

// NewLampMetrics 注册并返回信号灯指标
func NewLampMetrics(reg prometheus.Registerer) *LampMetrics {
	m := &LampMetrics{
		ExchangeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lamp_exchange_total",
			Help: "Lamp request/response exchanges by operation and result.",
		}, []string{"op", "result"}),
		ExchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lamp_exchange_duration_seconds",
			Help:    "Duration of one connect-send-receive-close exchange.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		}, []string{"op"}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lamp_validation_failures_total",
			Help: "Well-formed replies that failed protocol validation.",
		}),
		WriteVerifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lamp_write_verify_total",
			Help: "Write acknowledgements by verification result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.ExchangeTotal, m.ExchangeDuration, m.ValidationFailures, m.WriteVerifyTotal)
	return m
}

// ObserveExchange 记录一次交换
func (m *LampMetrics) ObserveExchange(op, result string, d time.Duration) {
	m.ExchangeTotal.WithLabelValues(op, result).Inc()
	m.ExchangeDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveValidation 记录应答校验结果
func (m *LampMetrics) ObserveValidation(ok bool) {
	if !ok {
		m.ValidationFailures.Inc()
	}
}

// ObserveVerify 记录写命令的回显确认结果
func (m *LampMetrics) ObserveVerify(verified bool) {
	if verified {
		m.WriteVerifyTotal.WithLabelValues("verified").Inc()
		return
	}
	m.WriteVerifyTotal.WithLabelValues("unverified").Inc()
}

// SimulatorMetrics 模拟器指标
type SimulatorMetrics struct {
	Accepted prometheus.Counter
	Busy     prometheus.Counter
	Requests *prometheus.CounterVec // labels: opcode
}

// NewSimulatorMetrics 注册并返回模拟器指标
func NewSimulatorMetrics(reg prometheus.Registerer) *SimulatorMetrics {
	m := &SimulatorMetrics{
		Accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_accept_total",
			Help: "Total accepted TCP connections.",
		}),
		Busy: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_busy_rejected_total",
			Help: "Connections closed unanswered because the device session was busy.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simulator_requests_total",
			Help: "Requests handled by the lamp simulator by opcode.",
		}, []string{"opcode"}),
	}
	reg.MustRegister(m.Accepted, m.Busy, m.Requests)
	return m
}
