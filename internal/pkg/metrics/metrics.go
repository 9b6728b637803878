package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections",
		Help: "当前在线的 WebSocket 连接数",
	})
	FanoutMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_messages_total",
		Help: "按类型统计的广播消息数",
	}, []string{"type"})
	FanoutDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fanout_dropped_total",
		Help: "类型无法识别而被丢弃的消息数",
	})
	CacheRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_retries_total",
		Help: "缓存操作触发的重试次数",
	})
	CacheFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_fallbacks_total",
		Help: "重试耗尽后返回降级值的次数",
	})
	OutboxFlushed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_flushed_total",
		Help: "事务提交后成功派发的事件数",
	})
	OutboxDiscarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_discarded_total",
		Help: "事务回滚后被丢弃的事件数",
	})
	ColdStartSignals = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_cold_start_total",
		Help: "无个性化信号的首页请求数",
	})
	ProfileSyncFlushSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "profile_sync_flush_seconds",
		Help:    "资料同步批量落库耗时",
		Buckets: prometheus.DefBuckets,
	})
)

// MustRegister 注册全部指标
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		WsConnections,
		FanoutMessages,
		FanoutDropped,
		CacheRetries,
		CacheFallbacks,
		OutboxFlushed,
		OutboxDiscarded,
		ColdStartSignals,
		ProfileSyncFlushSeconds,
	)
}
