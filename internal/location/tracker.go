package location

import (
	"context"
	"sync"
	"time"

	"geoloc/internal/geo"
	"geoloc/internal/logger"
	"geoloc/internal/metrics"
)

// State：请求状态快照；Location/Error 为 nil 表示缺省
type State struct {
	Location *geo.Coordinate `json:"location"`
	Loading  bool            `json:"loading"`
	Error    *Failure        `json:"error"`
}

// 文档注释：位置请求状态容器
// 背景：展示层读取 {location, loading, error} 并通过 Refetch 触发重新定位。
// 约束：
//   - Refetch 返回前已置 loading=true 且清空 error，location 保持不变；
//   - 成功：写入 location，loading=false；失败：写入 error，保留已有 location，loading=false；
//   - 不取消先前仍在进行的请求，多个请求并发时以最后完成者为准；
//   - Close 后迟到的结果被丢弃，订阅通道关闭。
type Tracker struct {
	acq     Acquirer
	timeout time.Duration
	ctx     context.Context

	mu     sync.Mutex
	st     State
	subs   map[int]chan State
	nextID int
	closed bool
	// pending：已发起未结束的定位数；idle 与 mu 绑定
	pending int
	idle    *sync.Cond
}

type TrackerOption func(*Tracker)

// WithTimeout：每次 Refetch 传给 Acquire 的超时；默认 0（由服务取默认值）
func WithTimeout(d time.Duration) TrackerOption { return func(t *Tracker) { t.timeout = d } }

// WithContext：Refetch 发起定位时使用的上下文，默认 Background
func WithContext(ctx context.Context) TrackerOption { return func(t *Tracker) { t.ctx = ctx } }

func NewTracker(acq Acquirer, opts ...TrackerOption) *Tracker {
	t := &Tracker{acq: acq, ctx: context.Background(), subs: make(map[int]chan State)}
	t.idle = sync.NewCond(&t.mu)
	for _, o := range opts {
		o(t)
	}
	return t
}

// Snapshot：当前状态副本
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st
}

// Refetch：发起一次新的定位；立即返回
func (t *Tracker) Refetch() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.st.Loading = true
	t.st.Error = nil
	t.publishLocked()
	t.pending++
	t.mu.Unlock()
	metrics.RefetchTotal.Inc()

	go func() {
		r, err := t.acq.Acquire(t.ctx, t.timeout)
		t.mu.Lock()
		defer t.mu.Unlock()
		defer t.settleLocked()
		if t.closed {
			logger.L().Debug("tracker_result_dropped", "reason", "closed")
			return
		}
		if err != nil {
			f, ok := err.(*Failure)
			if !ok {
				f = &Failure{Code: PositionUnavailable, Message: err.Error()}
			}
			t.st.Error = f
		} else {
			loc := r.Location
			t.st.Location = &loc
		}
		t.st.Loading = false
		t.publishLocked()
	}()
}

// 文档注释：订阅状态变化
// 返回：订阅时先收到当前状态，此后每次状态变化收到一份快照；取消函数可重复调用。
// 约束：通道带缓冲，消费过慢时丢弃最旧的未读快照，保证始终能读到最新状态。
func (t *Tracker) Subscribe() (<-chan State, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan State, 8)
	if t.closed {
		close(ch)
		return ch, func() {}
	}
	id := t.nextID
	t.nextID++
	t.subs[id] = ch
	ch <- t.st
	return ch, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if c, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(c)
		}
	}
}

func (t *Tracker) publishLocked() {
	for _, ch := range t.subs {
		for {
			select {
			case ch <- t.st:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Close：销毁容器；不等待进行中的定位
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
}

// Wait：等待所有已发起的定位结束（含被丢弃者）；可与 Refetch 并发调用
func (t *Tracker) Wait() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.pending > 0 {
		t.idle.Wait()
	}
}

func (t *Tracker) settleLocked() {
	t.pending--
	if t.pending == 0 {
		t.idle.Broadcast()
	}
}
