package event

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/steprun/internal/outcome"
)

func TestKind_StringAndParse(t *testing.T) {
	for _, k := range []Kind{KindScenarioStarted, KindStepStarted, KindStepFinished, KindScenarioFinished} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("hook_started")
	require.Error(t, err)
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestEvent_ScenarioAndKind(t *testing.T) {
	tests := []struct {
		ev   Event
		kind Kind
	}{
		{ScenarioStarted{ScenarioID: "s1"}, KindScenarioStarted},
		{StepStarted{ScenarioID: "s1", StepID: "s1/1"}, KindStepStarted},
		{StepFinished{ScenarioID: "s1", StepID: "s1/1"}, KindStepFinished},
		{ScenarioFinished{ScenarioID: "s1"}, KindScenarioFinished},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.ev.Kind())
		assert.Equal(t, "s1", tt.ev.Scenario())
	}
}

func TestEnvelope_Accessors(t *testing.T) {
	failed := outcome.New(outcome.StatusFailed, errors.New("boom"))

	env := Envelope{Event: StepFinished{ScenarioID: "s", StepID: "s/2", Text: "Given x", Outcome: failed}}
	assert.Equal(t, "s/2", env.StepID())
	assert.Equal(t, "Given x", env.Label())
	o, ok := env.Outcome()
	require.True(t, ok)
	assert.Equal(t, outcome.StatusFailed, o.Status())

	env = Envelope{Event: ScenarioStarted{ScenarioID: "s", Name: "checkout"}}
	assert.Equal(t, "", env.StepID())
	assert.Equal(t, "checkout", env.Label())
	_, ok = env.Outcome()
	assert.False(t, ok)
}

func TestClock_Next(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestDispatcher_DeliversToAllSubscribersInOrder(t *testing.T) {
	d := NewDispatcher()

	var first, second []int64
	d.Subscribe(func(env Envelope) { first = append(first, env.Seq) })
	d.Subscribe(func(env Envelope) { second = append(second, env.Seq) })

	d.Send(ScenarioStarted{ScenarioID: "a"})
	d.Send(StepStarted{ScenarioID: "a", StepID: "a/1"})
	d.Send(StepFinished{ScenarioID: "a", StepID: "a/1", Outcome: outcome.Passed()})

	assert.Equal(t, []int64{1, 2, 3}, first)
	assert.Equal(t, first, second)
}

func TestDispatcher_SendIsSynchronous(t *testing.T) {
	d := NewDispatcher()
	delivered := false
	d.Subscribe(func(Envelope) { delivered = true })

	d.Send(ScenarioStarted{ScenarioID: "a"})

	// Visible without any synchronization: Send returned after delivery
	assert.True(t, delivered)
}

func TestDispatcher_Unsubscribe(t *testing.T) {
	d := NewDispatcher()
	count := 0
	unsubscribe := d.Subscribe(func(Envelope) { count++ })
	assert.Equal(t, 1, d.Len())

	d.Send(ScenarioStarted{ScenarioID: "a"})
	unsubscribe()
	unsubscribe() // idempotent
	d.Send(ScenarioStarted{ScenarioID: "b"})

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, d.Len())
}

func TestDispatcher_WithNowAndSequencer(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := NewClock()
	clock.Next() // start numbering at 2

	d := NewDispatcher(WithNow(func() time.Time { return fixed }), WithSequencer(clock))

	var got Envelope
	d.Subscribe(func(env Envelope) { got = env })
	d.Send(ScenarioStarted{ScenarioID: "a"})

	assert.Equal(t, int64(2), got.Seq)
	assert.Equal(t, fixed, got.At)
}

func TestDispatcher_ConcurrentPublishersKeepPerScenarioOrder(t *testing.T) {
	d := NewDispatcher()

	var mu sync.Mutex
	perScenario := make(map[string][]Kind)
	var seqs []int64
	d.Subscribe(func(env Envelope) {
		// Handlers run under the dispatcher lock; mu only guards against the test reader
		mu.Lock()
		defer mu.Unlock()
		perScenario[env.Event.Scenario()] = append(perScenario[env.Event.Scenario()], env.Event.Kind())
		seqs = append(seqs, env.Seq)
	})

	const publishers = 20
	const steps = 25
	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			d.Send(ScenarioStarted{ScenarioID: id})
			for j := 0; j < steps; j++ {
				d.Send(StepStarted{ScenarioID: id})
				d.Send(StepFinished{ScenarioID: id, Outcome: outcome.Passed()})
			}
			d.Send(ScenarioFinished{ScenarioID: id, Outcome: outcome.Passed()})
		}(string(rune('A' + i)))
	}
	wg.Wait()

	require.Len(t, perScenario, publishers)
	for id, kinds := range perScenario {
		require.Len(t, kinds, 2+2*steps, "scenario %s", id)
		assert.Equal(t, KindScenarioStarted, kinds[0])
		assert.Equal(t, KindScenarioFinished, kinds[len(kinds)-1])
		for j := 0; j < steps; j++ {
			assert.Equal(t, KindStepStarted, kinds[1+2*j])
			assert.Equal(t, KindStepFinished, kinds[2+2*j])
		}
	}

	// Seq is strictly increasing in delivery order
	for i := 1; i < len(seqs); i++ {
		assert.Equal(t, seqs[i-1]+1, seqs[i])
	}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	for i := int64(1); i <= 3; i++ {
		assert.True(t, q.Push(Envelope{Seq: i}))
	}
	assert.Equal(t, 3, q.Len())

	for i := int64(1); i <= 3; i++ {
		env, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, i, env.Seq)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestQueue_CloseWakesWaitersAndRejectsPush(t *testing.T) {
	q := NewQueue()
	q.Push(Envelope{Seq: 1})
	q.Close()
	q.Close() // idempotent

	assert.True(t, q.Closed())
	assert.False(t, q.Push(Envelope{Seq: 2}), "push after close should fail")

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("Wait should fire after Close")
	}

	// Items queued before Close are still drained
	env, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, int64(1), env.Seq)
}

func TestQueue_SubscribedToDispatcher(t *testing.T) {
	d := NewDispatcher()
	q := NewQueue()
	d.Subscribe(q.Handler())

	d.Send(ScenarioStarted{ScenarioID: "a"})
	d.Send(ScenarioFinished{ScenarioID: "a", Outcome: outcome.Passed()})

	assert.Equal(t, 2, q.Len())
	env, _ := q.TryDequeue()
	assert.Equal(t, KindScenarioStarted, env.Event.Kind())
}
