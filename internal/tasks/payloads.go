package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeTrashPurge = "trash:purge"
)

// TrashPurgeUniqueTTL 内同一类型的清理任务只入队一次。
const TrashPurgeUniqueTTL = 10 * time.Minute

// TrashPurgePayload 描述一次回收站清理。零值表示使用 worker 的默认配置。
type TrashPurgePayload struct {
	Batch         int    `json:"batch,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// NewTrashPurgeTask 构造一个回收站清理任务。
func NewTrashPurgeTask(batch int, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(TrashPurgePayload{
		Batch:         batch,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTrashPurge, payload, asynq.Unique(TrashPurgeUniqueTTL)), nil
}
