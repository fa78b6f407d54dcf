package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumestudio",
			Subsystem: "documents",
			Name:      "cache_lookups_total",
			Help:      "文档聚合缓存查询次数，按命中结果区分。",
		},
		[]string{"result"},
	)

	documentMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumestudio",
			Subsystem: "documents",
			Name:      "mutations_total",
			Help:      "文档写操作次数。",
		},
		[]string{"operation"},
	)

	trashPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "resumestudio",
			Subsystem: "trash",
			Name:      "purged_documents_total",
			Help:      "回收站自动清理删除的文档数。",
		},
	)
)

// ObserveCacheLookup 记录一次缓存查询。
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	documentCacheLookups.WithLabelValues(result).Inc()
}

// ObserveMutation 记录一次成功的写操作。
func ObserveMutation(operation string) {
	documentMutations.WithLabelValues(operation).Inc()
}

// AddTrashPurged 累加清理的文档数。
func AddTrashPurged(n int) {
	trashPurged.Add(float64(n))
}
