package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumestudio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP 请求耗时分布（秒）。",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route", "status"},
	)

	requestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "resumestudio",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "当前正在处理的 HTTP 请求数量。",
		},
	)

	autosavePatchKeys = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "resumestudio",
			Subsystem: "documents",
			Name:      "patch_keys",
			Help:      "每次文档 PATCH 携带的顶层字段数。",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		},
	)
)

// GinMiddleware 采集请求耗时。/metrics 自身不计入，
// 子实体路由的 :entity 段替换为实际类型，便于按 experience/skill 等区分。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		requestsInFlight.Inc()
		defer requestsInFlight.Dec()

		c.Next()

		requestDuration.WithLabelValues(
			c.Request.Method,
			routeLabel(c),
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// routeLabel 返回路由模板；未匹配的请求统一记为 unmatched，避免高基数。
func routeLabel(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		return "unmatched"
	}
	if entity := c.Param("entity"); entity != "" && strings.Contains(route, ":entity") {
		route = strings.Replace(route, ":entity", entity, 1)
	}
	return route
}

// ObservePatchKeys 记录一次部分更新携带的字段数。
func ObservePatchKeys(n int) {
	autosavePatchKeys.Observe(float64(n))
}
