package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"resumeStudio/internal/cache"
	"resumeStudio/internal/document"
	"resumeStudio/internal/metrics"
	"resumeStudio/internal/storage"
	"resumeStudio/internal/tasks"
)

// maxPurgeRounds 限制单个任务内的批次数，剩余的留给下一次调度。
const maxPurgeRounds = 50

// DocumentPurger 由 document.Service 实现。
type DocumentPurger interface {
	PurgeArchived(ctx context.Context, before time.Time, limit int) ([]document.Document, error)
}

// PrefixDeleter 删除文档的缩略图对象，由 storage.Client 实现。
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// CacheInvalidator 由 cache.DocumentCache 实现。
type CacheInvalidator interface {
	Invalidate(ctx context.Context, id string) error
}

// EventPublisher 由 cache.EventPublisher 实现。
type EventPublisher interface {
	Publish(ctx context.Context, userID uint, ev cache.Event) error
}

// PurgeDeps 中的 nil 字段表示对应的清理步骤跳过。
type PurgeDeps struct {
	Storage PrefixDeleter
	Cache   CacheInvalidator
	Events  EventPublisher
}

// PurgeHandler 消费 trash:purge 任务，物理删除超过保留期的归档文档。
type PurgeHandler struct {
	documents DocumentPurger
	deps      PurgeDeps
	retention time.Duration
	batch     int
	now       func() time.Time
	logger    *slog.Logger
}

// NewPurgeHandler 创建任务处理器。
func NewPurgeHandler(documents DocumentPurger, deps PurgeDeps, retention time.Duration, batch int, logger *slog.Logger) *PurgeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if batch <= 0 {
		batch = 100
	}
	return &PurgeHandler{
		documents: documents,
		deps:      deps,
		retention: retention,
		batch:     batch,
		now:       time.Now,
		logger:    logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *PurgeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.TrashPurgePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			h.logger.Error("unmarshal task payload failed", slog.Any("error", err))
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	log := h.logger
	if payload.CorrelationID != "" {
		log = log.With(slog.String("correlation_id", payload.CorrelationID))
	}

	batch := h.batch
	if payload.Batch > 0 {
		batch = payload.Batch
	}

	n, err := h.purge(ctx, batch, log)
	if err != nil {
		return err
	}
	log.Info("trash purge finished", slog.Int("purged", n))
	return nil
}

// Purge 立即执行一轮清理，返回删除的文档数。
func (h *PurgeHandler) Purge(ctx context.Context) (int, error) {
	return h.purge(ctx, h.batch, h.logger)
}

func (h *PurgeHandler) purge(ctx context.Context, batch int, log *slog.Logger) (int, error) {
	before := h.now().Add(-h.retention)
	log = log.With(slog.Time("before", before))

	total := 0
	for round := 0; round < maxPurgeRounds; round++ {
		purged, err := h.documents.PurgeArchived(ctx, before, batch)
		for _, doc := range purged {
			h.cleanup(ctx, doc, log)
		}
		total += len(purged)
		metrics.AddTrashPurged(len(purged))

		if err != nil {
			log.Error("purge archived documents failed", slog.Int("purged", total), slog.Any("error", err))
			return total, fmt.Errorf("purge archived: %w", err)
		}
		if len(purged) < batch {
			break
		}
	}
	return total, nil
}

// cleanup 处理数据库之外的残留；失败只记录日志，不影响已完成的删除。
func (h *PurgeHandler) cleanup(ctx context.Context, doc document.Document, log *slog.Logger) {
	log = log.With(slog.String("document_id", doc.ID), slog.Uint64("user_id", uint64(doc.UserID)))

	if h.deps.Storage != nil {
		if err := h.deps.Storage.DeletePrefix(ctx, storage.ThumbnailPrefix(doc.ID)); err != nil {
			log.Warn("delete thumbnails failed", slog.Any("error", err))
		}
	}
	if h.deps.Cache != nil {
		if err := h.deps.Cache.Invalidate(ctx, doc.ID); err != nil {
			log.Warn("invalidate document cache failed", slog.Any("error", err))
		}
	}
	if h.deps.Events != nil {
		ev := cache.Event{Type: cache.EventDocumentDeleted, DocumentID: doc.ID, At: h.now()}
		if err := h.deps.Events.Publish(ctx, doc.UserID, ev); err != nil {
			log.Warn("publish purge event failed", slog.Any("error", err))
		}
	}
}
