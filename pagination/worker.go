package pagination

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// WorkerState 是排版工作者的状态。
type WorkerState int

const (
	StateIdle WorkerState = iota
	StateRunning
)

func (s WorkerState) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// WorkerOptions 配置 Worker。
type WorkerOptions struct {
	// MinInterval 是两次执行之间的最短间隔，0 表示不限制。
	MinInterval time.Duration
	Logger      *slog.Logger
}

// Worker 串行执行排版请求：最多一个在运行、一个在等待。
// 运行中提交的新快照覆盖尚未处理的旧快照，结束后只处理最新的那一个。
type Worker[T any] struct {
	ctx     context.Context
	run     func(context.Context, T) error
	limiter *rate.Limiter
	logger  *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	state   WorkerState
	pending *T
	rerun   bool
	lastErr error
	runs    int
	dropped int
}

// NewWorker 创建 Worker；ctx 传给每次 run，取消后排队中的请求不再执行。
func NewWorker[T any](ctx context.Context, run func(context.Context, T) error, opts WorkerOptions) *Worker[T] {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	w := &Worker[T]{ctx: ctx, run: run, logger: opts.Logger}
	if opts.MinInterval > 0 {
		w.limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Submit 提交一个快照。空闲时立即开始执行；运行中则记为待重跑。
func (w *Worker[T]) Submit(snapshot T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.dropped++
		w.logger.Debug("丢弃被覆盖的排版请求", "dropped", w.dropped)
	}
	w.pending = &snapshot
	if w.state == StateRunning {
		w.rerun = true
		return
	}
	w.state = StateRunning
	go w.loop()
}

func (w *Worker[T]) loop() {
	for {
		w.mu.Lock()
		if w.pending == nil || w.ctx.Err() != nil {
			w.pending = nil
			w.rerun = false
			w.state = StateIdle
			w.cond.Broadcast()
			w.mu.Unlock()
			return
		}
		snapshot := *w.pending
		w.pending = nil
		w.rerun = false
		w.mu.Unlock()

		err := w.wait()
		if err == nil {
			err = w.run(w.ctx, snapshot)
		}

		w.mu.Lock()
		w.lastErr = err
		w.runs++
		w.mu.Unlock()
	}
}

func (w *Worker[T]) wait() error {
	if w.limiter == nil {
		return nil
	}
	return w.limiter.Wait(w.ctx)
}

// Wait 阻塞到 Worker 空闲，返回最后一次执行的错误。
func (w *Worker[T]) Wait() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.state != StateIdle {
		w.cond.Wait()
	}
	return w.lastErr
}

func (w *Worker[T]) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// RerunRequested 表示运行期间是否有新请求在等待。
func (w *Worker[T]) RerunRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rerun
}

// Runs 返回已执行次数与被覆盖丢弃的请求数。
func (w *Worker[T]) Runs() (runs, dropped int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs, w.dropped
}
