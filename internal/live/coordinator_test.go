package live

import (
	"context"
	"testing"
	"time"

	"github.com/T10nnyy/sentiment-AI/internal/models"
	"github.com/T10nnyy/sentiment-AI/internal/utils"
)

type outcome struct {
	result models.PredictionResult
	err    error
}

type pendingCall struct {
	text    string
	release chan outcome
}

// blockingPredictor parks every call until the test releases it, and
// deliberately ignores context cancellation: the coordinator's sequence
// check must be correct even when aborted requests run to completion.
type blockingPredictor struct {
	calls chan *pendingCall
}

func newBlockingPredictor() *blockingPredictor {
	return &blockingPredictor{calls: make(chan *pendingCall, 16)}
}

func (p *blockingPredictor) Predict(_ context.Context, text string) (models.PredictionResult, error) {
	call := &pendingCall{text: text, release: make(chan outcome, 1)}
	p.calls <- call
	out := <-call.release
	return out.result, out.err
}

func (p *blockingPredictor) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case call := <-p.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for predictor call")
		return nil
	}
}

func (p *blockingPredictor) expectNoCall(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case call := <-p.calls:
		t.Fatalf("unexpected predictor call for %q", call.text)
	case <-time.After(within):
	}
}

func newTestCoordinator(predictor Predictor, updates chan Snapshot) *Coordinator {
	return NewCoordinator(predictor, Options{
		DebounceInterval: time.Millisecond,
		MinLength:        4,
		Enabled:          true,
	}, func(s Snapshot) {
		updates <- s
	})
}

func waitUpdate(t *testing.T, updates chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-updates:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live update")
		return Snapshot{}
	}
}

func expectNoUpdate(t *testing.T, updates chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s := <-updates:
		t.Fatalf("unexpected live update: %+v", s)
	case <-time.After(within):
	}
}

func TestStalenessLaterRequestWinsRegardlessOfArrivalOrder(t *testing.T) {
	predictor := newBlockingPredictor()
	updates := make(chan Snapshot, 16)
	c := newTestCoordinator(predictor, updates)
	defer c.Close()

	c.OnTextChanged("first input")
	first := predictor.next(t)

	c.OnTextChanged("second input")
	second := predictor.next(t)

	// Newest completes first and is published.
	second.release <- outcome{result: models.PredictionResult{Label: "POSITIVE", Score: 0.9}}
	snap := waitUpdate(t, updates)
	if snap.Result == nil || snap.Text != "second input" {
		t.Fatalf("expected second input's result, got %+v", snap)
	}

	// The older response straggles in afterwards and must be dropped.
	first.release <- outcome{result: models.PredictionResult{Label: "NEGATIVE", Score: 0.8}}
	expectNoUpdate(t, updates, 50*time.Millisecond)

	current := c.Current()
	if current.Result == nil || current.Result.Label != "POSITIVE" {
		t.Fatalf("live slot regressed to a stale result: %+v", current)
	}
}

func TestStalenessStaleFirstThenCurrent(t *testing.T) {
	predictor := newBlockingPredictor()
	updates := make(chan Snapshot, 16)
	c := newTestCoordinator(predictor, updates)
	defer c.Close()

	c.OnTextChanged("first input")
	first := predictor.next(t)
	c.OnTextChanged("second input")
	second := predictor.next(t)

	// In-order arrival: the superseded outcome is silently dropped.
	first.release <- outcome{result: models.PredictionResult{Label: "NEGATIVE", Score: 0.8}}
	expectNoUpdate(t, updates, 50*time.Millisecond)

	second.release <- outcome{result: models.PredictionResult{Label: "POSITIVE", Score: 0.9}}
	snap := waitUpdate(t, updates)
	if snap.Result == nil || snap.Result.Label != "POSITIVE" {
		t.Fatalf("expected current result, got %+v", snap)
	}
}

func TestStalenessFailureOfCurrentRequestIsSurfaced(t *testing.T) {
	predictor := newBlockingPredictor()
	updates := make(chan Snapshot, 16)
	c := newTestCoordinator(predictor, updates)
	defer c.Close()

	c.OnTextChanged("doomed input")
	call := predictor.next(t)
	call.release <- outcome{err: utils.NewPredictionError(utils.KindTimeout, "gateway.Predict", "request deadline exceeded", nil)}

	snap := waitUpdate(t, updates)
	if snap.Result != nil {
		t.Fatalf("expected error snapshot, got result %+v", snap.Result)
	}
	if snap.ErrKind != utils.KindTimeout || snap.ErrMessage != "request deadline exceeded" {
		t.Fatalf("unexpected error snapshot: %+v", snap)
	}
}

func TestStalenessSupersededFailureIsSilent(t *testing.T) {
	predictor := newBlockingPredictor()
	updates := make(chan Snapshot, 16)
	c := newTestCoordinator(predictor, updates)
	defer c.Close()

	c.OnTextChanged("first input")
	first := predictor.next(t)
	c.OnTextChanged("second input")
	second := predictor.next(t)

	first.release <- outcome{err: utils.NewPredictionError(utils.KindNetwork, "gateway.Predict", "connection refused", nil)}
	expectNoUpdate(t, updates, 50*time.Millisecond)

	second.release <- outcome{result: models.PredictionResult{Label: "POSITIVE", Score: 0.9}}
	snap := waitUpdate(t, updates)
	if snap.ErrKind != "" || snap.Result == nil {
		t.Fatalf("superseded failure leaked into live slot: %+v", snap)
	}
}

func TestDebounceCoalescesToSingleRequestWithLastText(t *testing.T) {
	predictor := newBlockingPredictor()
	updates := make(chan Snapshot, 16)
	c := NewCoordinator(predictor, Options{
		DebounceInterval: 50 * time.Millisecond,
		MinLength:        4,
		Enabled:          true,
	}, func(s Snapshot) { updates <- s })
	defer c.Close()

	c.OnTextChanged("I love this")
	c.OnTextChanged("I love this product")

	call := predictor.next(t)
	if call.text != "I love this product" {
		t.Fatalf("expected last-supplied text, got %q", call.text)
	}
	predictor.expectNoCall(t, 100*time.Millisecond)
	call.release <- outcome{result: models.PredictionResult{Label: "POSITIVE", Score: 0.99}}
	waitUpdate(t, updates)
}

func TestShortInputClearsLiveSlotWithoutScheduling(t *testing.T) {
	predictor := newBlockingPredictor()
	updates := make(chan Snapshot, 16)
	c := newTestCoordinator(predictor, updates)
	defer c.Close()

	c.OnTextChanged("long enough")
	call := predictor.next(t)
	call.release <- outcome{result: models.PredictionResult{Label: "POSITIVE", Score: 0.9}}
	waitUpdate(t, updates)

	c.OnTextChanged("hi")
	snap := waitUpdate(t, updates)
	if !snap.Empty() {
		t.Fatalf("expected cleared slot, got %+v", snap)
	}
	predictor.expectNoCall(t, 30*time.Millisecond)
	if !c.Current().Empty() {
		t.Fatalf("live slot not cleared: %+v", c.Current())
	}
}

func TestDisabledCoordinatorSchedulesNothing(t *testing.T) {
	predictor := newBlockingPredictor()
	updates := make(chan Snapshot, 16)
	c := NewCoordinator(predictor, Options{
		DebounceInterval: time.Millisecond,
		MinLength:        4,
		Enabled:          false,
	}, func(s Snapshot) { updates <- s })
	defer c.Close()

	c.OnTextChanged("plenty long enough")
	predictor.expectNoCall(t, 30*time.Millisecond)
}

func TestCloseSupersedesInflightAndIsIdempotent(t *testing.T) {
	predictor := newBlockingPredictor()
	updates := make(chan Snapshot, 16)
	c := newTestCoordinator(predictor, updates)

	c.OnTextChanged("about to be orphaned")
	call := predictor.next(t)

	c.Close()
	c.Close()

	call.release <- outcome{result: models.PredictionResult{Label: "POSITIVE", Score: 0.9}}
	expectNoUpdate(t, updates, 50*time.Millisecond)
	if !c.Current().Empty() {
		t.Fatalf("live slot set after close: %+v", c.Current())
	}

	// Input after close is ignored entirely.
	c.OnTextChanged("typed after close")
	predictor.expectNoCall(t, 30*time.Millisecond)
}

func TestDebouncerNeverFiresAfterCancel(t *testing.T) {
	fired := make(chan string, 1)
	d := NewDebouncer(10*time.Millisecond, func(text string) { fired <- text })

	d.Schedule("pending")
	d.Cancel()

	select {
	case text := <-fired:
		t.Fatalf("debouncer fired %q after cancel", text)
	case <-time.After(50 * time.Millisecond):
	}

	// Cancel when idle is safe.
	d.Cancel()
}

func TestDebouncerFiresOncePerQuietPeriod(t *testing.T) {
	fired := make(chan string, 8)
	d := NewDebouncer(20*time.Millisecond, func(text string) { fired <- text })

	d.Schedule("a")
	d.Schedule("ab")
	d.Schedule("abc")

	select {
	case text := <-fired:
		if text != "abc" {
			t.Fatalf("expected last argument, got %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
	}

	select {
	case text := <-fired:
		t.Fatalf("debouncer fired twice, second with %q", text)
	case <-time.After(60 * time.Millisecond):
	}
}
