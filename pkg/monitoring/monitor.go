package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 徽章引擎指标
	BadgeAwards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_awards_total",
			Help: "Total number of newly awarded badges",
		},
		[]string{"badge"},
	)

	BadgeEvaluationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_evaluation_failures_total",
			Help: "Criterion evaluations that degraded to not earned because of an error",
		},
		[]string{"criterion"},
	)

	BadgeCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "badge_check_duration_seconds",
			Help:    "Duration of badge checks",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"path"},
	)

	// 当前订阅徽章推送的 websocket 连接数
	BadgeSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "badge_ws_subscribers",
			Help: "Number of connected badge notification websockets",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(BadgeAwards)
	prometheus.MustRegister(BadgeEvaluationFailures)
	prometheus.MustRegister(BadgeCheckDuration)
	prometheus.MustRegister(BadgeSubscribers)
}

// ObserveBadgeCheck 记录一次徽章检查耗时，配合 defer 使用
func ObserveBadgeCheck(path string, start time.Time) {
	BadgeCheckDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
