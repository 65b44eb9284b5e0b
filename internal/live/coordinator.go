package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/T10nnyy/sentiment-AI/internal/metrics"
	"github.com/T10nnyy/sentiment-AI/internal/models"
	"github.com/T10nnyy/sentiment-AI/internal/utils"
)

// Predictor is the slice of the gateway the coordinator needs.
type Predictor interface {
	Predict(ctx context.Context, text string) (models.PredictionResult, error)
}

// Snapshot is the published live-result slot: either a result, an error
// kind/message, or neither (cleared). Text is the input that produced it.
type Snapshot struct {
	Text       string
	Result     *models.PredictionResult
	ErrKind    utils.Kind
	ErrMessage string
}

// Empty reports whether the slot holds neither a result nor an error.
func (s Snapshot) Empty() bool {
	return s.Result == nil && s.ErrKind == ""
}

// Options configures a Coordinator.
type Options struct {
	// DebounceInterval is the typing quiet period. Default 400ms.
	DebounceInterval time.Duration
	// MinLength is the minimum text length that triggers a live probe;
	// shorter input clears the live slot. Default 4. Deployed variants
	// have used anything from 4 to 11, so this is configuration, not a
	// constant.
	MinLength int
	// Timeout bounds each live call. Live probes get a shorter budget
	// than explicit calls so a stale probe cannot linger. Default 10s.
	Timeout time.Duration
	// Enabled is the initial live-typing state.
	Enabled bool
	Logger  *slog.Logger
}

// Coordinator binds the Debouncer to the prediction gateway and enforces
// the staleness protocol: every dispatched request gets a sequence number
// from a monotonic counter, and an outcome is published only when its
// number still equals the counter on arrival. Sequence equality is the
// only acceptance test; arrival order and wall-clock time are never
// consulted. Safe for concurrent use.
type Coordinator struct {
	logger    *slog.Logger
	predictor Predictor
	debouncer *Debouncer
	timeout   time.Duration
	minLength int
	onUpdate  func(Snapshot)

	mu       sync.Mutex
	enabled  bool
	closed   bool
	seq      uint64
	inflight context.CancelFunc
	current  Snapshot
}

// NewCoordinator builds a Coordinator publishing through onUpdate (may be
// nil; Current is always available).
func NewCoordinator(predictor Predictor, opts Options, onUpdate func(Snapshot)) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	minLength := opts.MinLength
	if minLength <= 0 {
		minLength = 4
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Coordinator{
		logger:    logger,
		predictor: predictor,
		timeout:   timeout,
		minLength: minLength,
		enabled:   opts.Enabled,
		onUpdate:  onUpdate,
	}
	c.debouncer = NewDebouncer(opts.DebounceInterval, c.fire)
	return c
}

// OnTextChanged feeds one keystroke's worth of input. Too-short input
// (or live typing being disabled) clears the live slot and schedules
// nothing; anything else restarts the debounce window.
func (c *Coordinator) OnTextChanged(text string) {
	c.mu.Lock()
	active := c.enabled && !c.closed
	minLength := c.minLength
	c.mu.Unlock()

	if !active || len(text) < minLength {
		c.debouncer.Cancel()
		c.clear()
		return
	}
	c.debouncer.Schedule(text)
}

// SetEnabled toggles live typing. Disabling clears the live slot and
// supersedes any in-flight probe.
func (c *Coordinator) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
	if !enabled {
		c.debouncer.Cancel()
		c.clear()
	}
}

// Enabled reports whether live typing is on.
func (c *Coordinator) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Current returns the published live slot.
func (c *Coordinator) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Close tears the coordinator down: the debouncer is cancelled, the
// in-flight request is superseded and aborted, and nothing is published
// afterwards. Idempotent.
func (c *Coordinator) Close() {
	c.debouncer.Cancel()

	c.mu.Lock()
	c.closed = true
	c.seq++
	cancel := c.inflight
	c.inflight = nil
	c.current = Snapshot{}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// fire runs on debounce expiry: it claims the next sequence number,
// aborts the previous in-flight request, and dispatches the probe.
func (c *Coordinator) fire(text string) {
	c.mu.Lock()
	if c.closed || !c.enabled {
		c.mu.Unlock()
		return
	}
	c.seq++
	seq := c.seq
	if c.inflight != nil {
		// Abort is advisory: correctness rests on the sequence check, the
		// cancel just releases the connection early.
		c.inflight()
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	c.inflight = cancel
	c.mu.Unlock()

	go func() {
		defer cancel()
		result, err := c.predictor.Predict(ctx, text)
		c.publish(seq, text, result, err)
	}()
}

// publish applies the staleness check and fills the live slot.
func (c *Coordinator) publish(seq uint64, text string, result models.PredictionResult, err error) {
	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		metrics.ObserveLiveDiscard()
		return
	}

	snap := Snapshot{Text: text}
	if err != nil {
		// Best effort: a failed probe surfaces its kind but never
		// disrupts typing or the explicit path.
		snap.ErrKind = utils.KindOf(err)
		snap.ErrMessage = utils.MessageOf(err)
		c.logger.Debug("live prediction failed",
			slog.String("kind", string(snap.ErrKind)), slog.Any("error", err))
	} else {
		r := result
		snap.Result = &r
	}
	c.current = snap
	notify := c.onUpdate
	c.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
}

// clear empties the live slot and supersedes any in-flight probe.
func (c *Coordinator) clear() {
	c.mu.Lock()
	if c.closed || (c.current.Empty() && c.inflight == nil) {
		c.mu.Unlock()
		return
	}
	c.seq++
	cancel := c.inflight
	c.inflight = nil
	c.current = Snapshot{}
	notify := c.onUpdate
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if notify != nil {
		notify(Snapshot{})
	}
}
