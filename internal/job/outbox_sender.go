package job

import (
	"context"
	"log"
	"time"

	"agencyledger/internal/config"
	"agencyledger/internal/infrastructure/mq"
	"agencyledger/internal/model"
	"agencyledger/internal/repository"

	"gorm.io/gorm"
)

const (
	relayInterval  = 200 * time.Millisecond
	relayBatchSize = 50
)

// OutboxSender 把发件箱里的结算事件投递到 Kafka
// 结算事务提交后事件必然存在于发件箱，这里只负责"至少一次"送达；
// 重试耗尽的事件转入 FAILED，不阻塞后续事件
type OutboxSender struct {
	db         *gorm.DB
	outboxRepo *repository.OutboxRepository
	cfg        *config.Config
	stopCh     chan struct{}
}

func NewOutboxSender(db *gorm.DB, cfg *config.Config) *OutboxSender {
	return &OutboxSender{
		db:         db,
		outboxRepo: repository.NewOutboxRepository(db),
		cfg:        cfg,
		stopCh:     make(chan struct{}),
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	log.Println("[OutboxSender] 结算事件投递任务启动")

	ticker := time.NewTicker(relayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] 收到停止信号，任务退出")
			return
		case <-s.stopCh:
			log.Println("[OutboxSender] 任务停止")
			return
		case <-ticker.C:
			s.drain(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// drain 取一批待投递事件逐条发送，单条失败不影响同批其他事件
func (s *OutboxSender) drain(ctx context.Context) {
	messages, err := s.outboxRepo.PendingBatch(ctx, relayBatchSize)
	if err != nil {
		log.Printf("[OutboxSender] 拉取待投递事件失败: %v", err)
		return
	}

	for _, msg := range messages {
		s.dispatch(ctx, msg)
	}
}

func (s *OutboxSender) dispatch(ctx context.Context, msg *model.OutboxMessage) {
	if err := mq.SendMessage(msg.Topic, msg.MessageKey, msg.Payload); err != nil {
		s.handleSendFailure(ctx, msg, err)
		return
	}

	if err := s.outboxRepo.MarkSent(ctx, msg.ID); err != nil {
		// 状态没落上，下一轮会重发同一事件，靠消费端按 key 幂等兜底
		log.Printf("[OutboxSender] 更新事件状态失败: id=%d, err=%v", msg.ID, err)
		return
	}
	log.Printf("[OutboxSender] 事件投递成功: id=%d, topic=%s, key=%s", msg.ID, msg.Topic, msg.MessageKey)
}

func (s *OutboxSender) handleSendFailure(ctx context.Context, msg *model.OutboxMessage, sendErr error) {
	log.Printf("[OutboxSender] 事件投递失败: id=%d, err=%v", msg.ID, sendErr)

	if msg.RetryCount+1 >= s.cfg.Business.MaxRetryCount {
		if err := s.outboxRepo.MarkFailed(ctx, msg.ID); err != nil {
			log.Printf("[OutboxSender] 标记事件失败状态失败: id=%d, err=%v", msg.ID, err)
			return
		}
		log.Printf("[OutboxSender] 事件重试耗尽，转入失败队列: id=%d", msg.ID)
		return
	}

	if err := s.outboxRepo.BumpRetry(ctx, msg.ID); err != nil {
		log.Printf("[OutboxSender] 累加重试次数失败: id=%d, err=%v", msg.ID, err)
	}
}
