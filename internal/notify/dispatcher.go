package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"projecthub/config"
	"projecthub/internal/model"
	"projecthub/internal/repository"
	"projecthub/pkg/mailer"
)

// 超过该时长仍处于 sending 的事件视为投递中断，允许重新领取
const (
	defaultStaleAfter = 5 * time.Minute
	// 单次发件箱状态写入的超时
	markTimeout = 5 * time.Second
)

// Publisher 接收投递结果，用于推送项目动态
type Publisher interface {
	Publish(ev *model.NotificationEvent)
}

// Reconciler 周期性修复经理双写不一致
type Reconciler interface {
	ReconcileManagers(ctx context.Context) (int, error)
}

// Dispatcher 发件箱投递器
// 按固定间隔领取 pending 事件，交给协程池渲染并发送邮件
type Dispatcher struct {
	outbox     repository.NotificationEventRepository
	mailer     mailer.Mailer
	renderer   *Renderer
	publisher  Publisher
	reconciler Reconciler

	cfg         config.NotifyConfig
	sendTimeout time.Duration
	staleAfter  time.Duration

	pool      *ants.Pool
	scheduler gocron.Scheduler
	logger    *zap.Logger
}

// Option 可选依赖
type Option func(*Dispatcher)

// WithPublisher 投递完成后推送到 websocket
func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) { d.publisher = p }
}

// WithReconciler 注册经理一致性修复任务
func WithReconciler(r Reconciler) Option {
	return func(d *Dispatcher) { d.reconciler = r }
}

// NewDispatcher 创建投递器
func NewDispatcher(
	outbox repository.NotificationEventRepository,
	m mailer.Mailer,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) (*Dispatcher, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	workers := cfg.Notify.Workers
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("创建投递协程池失败: %w", err)
	}

	d := &Dispatcher{
		outbox:      outbox,
		mailer:      m,
		renderer:    renderer,
		cfg:         cfg.Notify,
		sendTimeout: cfg.Mail.SendTimeout,
		staleAfter:  defaultStaleAfter,
		pool:        pool,
		logger:      logger,
	}
	if d.sendTimeout <= 0 {
		d.sendTimeout = 30 * time.Second
	}
	if d.cfg.BatchSize <= 0 {
		d.cfg.BatchSize = 20
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start 注册定时任务并启动调度器
func (d *Dispatcher) Start() error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("创建调度器失败: %w", err)
	}

	if _, err := s.NewJob(
		gocron.DurationJob(d.cfg.PollInterval),
		gocron.NewTask(d.poll),
		gocron.WithName("outbox-dispatch"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("注册投递任务失败: %w", err)
	}

	if d.reconciler != nil && d.cfg.ReconcileInterval > 0 {
		if _, err := s.NewJob(
			gocron.DurationJob(d.cfg.ReconcileInterval),
			gocron.NewTask(d.reconcile),
			gocron.WithName("manager-reconcile"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return fmt.Errorf("注册一致性修复任务失败: %w", err)
		}
	}

	d.scheduler = s
	s.Start()
	d.logger.Info("通知投递器已启动",
		zap.Duration("poll_interval", d.cfg.PollInterval),
		zap.Int("workers", d.pool.Cap()),
	)
	return nil
}

// Stop 停止调度并等待在途投递结束
func (d *Dispatcher) Stop() {
	if d.scheduler != nil {
		if err := d.scheduler.Shutdown(); err != nil {
			d.logger.Warn("关闭调度器失败", zap.Error(err))
		}
	}
	d.pool.Release()
	d.logger.Info("通知投递器已停止")
}

func (d *Dispatcher) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.PollInterval+markTimeout)
	defer cancel()

	if _, err := d.DispatchOnce(ctx); err != nil {
		d.logger.Error("投递发件箱失败", zap.Error(err))
	}
}

func (d *Dispatcher) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fixed, err := d.reconciler.ReconcileManagers(ctx)
	if err != nil {
		d.logger.Error("经理一致性修复失败", zap.Error(err))
		return
	}
	if fixed > 0 {
		d.logger.Warn("已修复经理不一致的项目", zap.Int("count", fixed))
	}
}

// DispatchOnce 领取一批事件并等待其全部投递完成，返回领取数量
// ctx 只约束领取；每次投递使用独立的超时，排队靠后的事件不受批次耗时影响
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	events, err := d.outbox.Claim(ctx, d.cfg.BatchSize, d.cfg.MaxAttempts, d.staleAfter)
	if err != nil {
		return 0, fmt.Errorf("领取发件箱事件失败: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	var wg sync.WaitGroup
	for i := range events {
		ev := &events[i]
		wg.Add(1)
		if err := d.pool.Submit(func() {
			defer wg.Done()
			d.deliver(ev)
		}); err != nil {
			wg.Done()
			d.logger.Error("提交投递任务失败", zap.String("event_id", ev.EventID), zap.Error(err))
			d.fail(ev, err, false)
		}
	}
	wg.Wait()
	return len(events), nil
}

func (d *Dispatcher) deliver(ev *model.NotificationEvent) {
	html, err := d.renderer.Render(ev)
	if err != nil {
		// 模板错误重试也不会成功
		d.fail(ev, err, true)
		return
	}

	sendCtx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	err = d.mailer.Send(sendCtx, ev.Recipient, ev.Subject, html)
	cancel()
	if err != nil {
		d.fail(ev, err, ev.Attempts >= d.cfg.MaxAttempts)
		return
	}

	markCtx, cancel := context.WithTimeout(context.Background(), markTimeout)
	defer cancel()
	if err := d.outbox.MarkSent(markCtx, ev.EventID); err != nil {
		d.logger.Error("标记事件已发送失败", zap.String("event_id", ev.EventID), zap.Error(err))
		return
	}
	now := time.Now()
	ev.Status = model.EventStatusSent
	ev.SentAt = &now
	ev.LastError = nil
	d.logger.Debug("通知已发送",
		zap.String("event_id", ev.EventID),
		zap.String("type", ev.Type),
		zap.String("recipient", ev.Recipient),
	)
	d.publish(ev)
}

func (d *Dispatcher) fail(ev *model.NotificationEvent, cause error, final bool) {
	msg := cause.Error()
	ctx, cancel := context.WithTimeout(context.Background(), markTimeout)
	defer cancel()
	if err := d.outbox.MarkFailed(ctx, ev.EventID, msg, final); err != nil {
		d.logger.Error("记录投递失败状态失败", zap.String("event_id", ev.EventID), zap.Error(err))
		return
	}

	ev.LastError = &msg
	if final {
		ev.Status = model.EventStatusFailed
		d.logger.Error("通知投递最终失败",
			zap.String("event_id", ev.EventID),
			zap.Int("attempts", ev.Attempts),
			zap.Error(cause),
		)
		d.publish(ev)
		return
	}
	ev.Status = model.EventStatusPending
	d.logger.Warn("通知投递失败，等待重试",
		zap.String("event_id", ev.EventID),
		zap.Int("attempts", ev.Attempts),
		zap.Error(cause),
	)
}

func (d *Dispatcher) publish(ev *model.NotificationEvent) {
	if d.publisher == nil || ev.ProjectID == nil {
		return
	}
	d.publisher.Publish(ev)
}
