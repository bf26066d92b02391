package circuitbreaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"talentwire/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
)

func testConfig() circuitbreaker.Config {
	return circuitbreaker.Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		RollingWindow:       time.Second,
		ResetTimeout:        50 * time.Millisecond,
		MaxRequestsHalfOpen: 1,
	}
}

var errDependency = errors.New("dependency down")

func fail(ctx context.Context) error    { return errDependency }
func succeed(ctx context.Context) error { return nil }

func TestExecute_PassesThroughWhenClosed(t *testing.T) {
	cb := circuitbreaker.New("speech", testConfig())

	err := cb.Execute(context.Background(), succeed)
	assert.NoError(t, err)
	assert.Equal(t, circuitbreaker.StateClosed, cb.GetState())
}

func TestExecute_OpensAfterFailureThreshold(t *testing.T) {
	cb := circuitbreaker.New("fraud", testConfig())

	for i := 0; i < 2; i++ {
		err := cb.Execute(context.Background(), fail)
		assert.ErrorIs(t, err, errDependency)
	}
	assert.Equal(t, circuitbreaker.StateOpen, cb.GetState())

	// Open circuit short-circuits without calling the dependency.
	called := false
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	var open *circuitbreaker.ErrOpen
	assert.ErrorAs(t, err, &open)
	assert.Equal(t, "fraud", open.Name)
	assert.False(t, called)
}

func TestExecute_RecoversThroughHalfOpen(t *testing.T) {
	cb := circuitbreaker.New("video", testConfig())

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	assert.Equal(t, circuitbreaker.StateOpen, cb.GetState())

	time.Sleep(60 * time.Millisecond)

	// First trial call after the reset timeout is allowed and closes the
	// circuit on success.
	err := cb.Execute(context.Background(), succeed)
	assert.NoError(t, err)
	assert.Equal(t, circuitbreaker.StateClosed, cb.GetState())
}

func TestExecute_FailedTrialReopens(t *testing.T) {
	cb := circuitbreaker.New("nlp", testConfig())

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	time.Sleep(60 * time.Millisecond)

	err := cb.Execute(context.Background(), fail)
	assert.ErrorIs(t, err, errDependency)
	assert.Equal(t, circuitbreaker.StateOpen, cb.GetState())
}

func TestExecute_SuccessResetsFailureCount(t *testing.T) {
	cb := circuitbreaker.New("speech", testConfig())

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), succeed)
	_ = cb.Execute(context.Background(), fail)

	// One failure, success, one failure: threshold of 2 never reached in a row.
	assert.Equal(t, circuitbreaker.StateClosed, cb.GetState())
}

func TestOnStateChange_Notified(t *testing.T) {
	cb := circuitbreaker.New("fraud", testConfig())

	transitions := make(chan circuitbreaker.State, 4)
	cb.OnStateChange(func(name string, from, to circuitbreaker.State) {
		transitions <- to
	})

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), fail)
	}

	select {
	case to := <-transitions:
		assert.Equal(t, circuitbreaker.StateOpen, to)
	case <-time.After(time.Second):
		t.Fatal("expected a state transition notification")
	}
}

func TestGetStats(t *testing.T) {
	cb := circuitbreaker.New("video", testConfig())

	_ = cb.Execute(context.Background(), succeed)
	_ = cb.Execute(context.Background(), fail)

	stats := cb.GetStats()
	assert.Equal(t, "video", stats.Name)
	assert.Equal(t, "closed", stats.State)
	assert.Equal(t, int64(2), stats.TotalCalls)
	assert.Equal(t, int64(1), stats.TotalFailures)
	assert.Equal(t, int64(1), stats.TotalSuccesses)
}

func TestReset(t *testing.T) {
	cb := circuitbreaker.New("fraud", testConfig())

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	assert.Equal(t, circuitbreaker.StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, circuitbreaker.StateClosed, cb.GetState())
	assert.NoError(t, cb.Execute(context.Background(), succeed))
}

func TestRegistry_GetReturnsSameBreaker(t *testing.T) {
	reg := circuitbreaker.NewRegistry(testConfig())

	a := reg.Get("speech")
	b := reg.Get("speech")
	assert.Same(t, a, b)
	assert.NotSame(t, a, reg.Get("video"))
}

func TestRegistry_StatsCoversAllBreakers(t *testing.T) {
	reg := circuitbreaker.NewRegistry(testConfig())
	_ = reg.Get("speech").Execute(context.Background(), succeed)
	_ = reg.Get("fraud").Execute(context.Background(), fail)

	stats := reg.Stats()
	assert.Len(t, stats, 2)
	assert.Contains(t, stats, "speech")
	assert.Contains(t, stats, "fraud")
	assert.Equal(t, int64(1), stats["fraud"].TotalFailures)
}

func TestRegistry_OnStateChangeAppliesToNewBreakers(t *testing.T) {
	reg := circuitbreaker.NewRegistry(testConfig())

	transitions := make(chan string, 4)
	reg.OnStateChange(func(name string, from, to circuitbreaker.State) {
		transitions <- name
	})

	for i := 0; i < 2; i++ {
		_ = reg.Get("fraud").Execute(context.Background(), fail)
	}

	select {
	case name := <-transitions:
		assert.Equal(t, "fraud", name)
	case <-time.After(time.Second):
		t.Fatal("expected a state transition notification")
	}
}
