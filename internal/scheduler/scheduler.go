// Package scheduler runs the periodic background jobs: refreshing every
// wallet balance and posting the activity digest to chat.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/agentdesk/internal/config"
	"github.com/zulandar/agentdesk/internal/telegraph"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DigestWindow is the period summarized by each digest.
const DigestWindow = 24 * time.Hour

// BalanceSyncer refreshes the balances of every stored wallet.
type BalanceSyncer interface {
	SyncEveryone(ctx context.Context) (synced, failed int, err error)
}

// Poster queues a chat message without blocking.
type Poster interface {
	Enqueue(msg telegraph.OutboundMessage) bool
}

// Options configures a Scheduler. A job is registered only when its cron
// expression and collaborators are set.
type Options struct {
	BalanceCron string
	Wallets     BalanceSyncer

	DigestCron string
	DB         *gorm.DB
	Poster     Poster

	Log *zap.Logger
}

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron    *cron.Cron
	wallets BalanceSyncer
	db      *gorm.DB
	poster  Poster
	log     *zap.Logger
	now     func() time.Time
	jobs    []string

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the configured jobs. It returns an error for an invalid cron
// expression.
func New(opts Options) (*Scheduler, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	cronLog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		wallets: opts.Wallets,
		db:      opts.DB,
		poster:  opts.Poster,
		log:     log,
		now:     time.Now,
		ctx:     context.Background(),
	}

	if opts.BalanceCron != "" && opts.Wallets != nil {
		if err := s.add("balance-sync", opts.BalanceCron, s.SyncBalances); err != nil {
			return nil, err
		}
	}
	if opts.DigestCron != "" && opts.DB != nil && opts.Poster != nil {
		if err := s.add("digest", opts.DigestCron, s.PostDigest); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(name, expr string, job func(context.Context) error) error {
	sched, err := config.ParseCron(expr)
	if err != nil {
		return fmt.Errorf("scheduler: %s: %w", name, err)
	}
	s.cron.Schedule(sched, cron.FuncJob(func() {
		if err := job(s.jobContext()); err != nil {
			s.log.Warn("scheduler: job failed", zap.String("job", name), zap.Error(err))
		}
	}))
	s.jobs = append(s.jobs, name)
	s.log.Info("scheduler: registered job", zap.String("job", name), zap.String("cron", expr))
	return nil
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Jobs lists the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	return append([]string(nil), s.jobs...)
}

// Start begins running jobs. Jobs receive a context derived from ctx that is
// cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
}

// Stop halts the scheduler, cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}

// SyncBalances refreshes every wallet balance.
func (s *Scheduler) SyncBalances(ctx context.Context) error {
	synced, failed, err := s.wallets.SyncEveryone(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: balance sync: %w", err)
	}
	s.log.Info("scheduler: balances synced", zap.Int("synced", synced), zap.Int("failed", failed))
	return nil
}

// PostDigest summarizes the last DigestWindow and queues it for chat. An
// empty period posts nothing.
func (s *Scheduler) PostDigest(ctx context.Context) error {
	until := s.now()
	report, err := telegraph.BuildDigest(s.db.WithContext(ctx), until.Add(-DigestWindow), until)
	if err != nil {
		return fmt.Errorf("scheduler: digest: %w", err)
	}
	if report.Empty() {
		s.log.Debug("scheduler: digest skipped, no activity")
		return nil
	}
	fe := telegraph.FormatDigest(report)
	if !s.poster.Enqueue(telegraph.OutboundMessage{Text: fe.Title, Events: []telegraph.FormattedEvent{fe}}) {
		return fmt.Errorf("scheduler: digest dropped, relay queue full")
	}
	return nil
}
