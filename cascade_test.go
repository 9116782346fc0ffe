package docconv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(bs ...Backend) *executor {
	e := &executor{
		backends: map[string]Backend{},
		timeouts: map[BackendKind]time.Duration{
			KindRemote:   50 * time.Millisecond,
			KindLocal:    50 * time.Millisecond,
			KindFallback: 50 * time.Millisecond,
		},
		logger: zerolog.Nop(),
	}
	for _, b := range bs {
		e.backends[b.Name()] = b
	}
	return e
}

var textToHTML = Pair{FormatText, FormatHTML}

func TestCascadeFirstSuccessWins(t *testing.T) {
	a := &fakeBackend{name: "a", out: []byte("<p>from a</p>")}
	b := &fakeBackend{name: "b", out: []byte("<p>from b</p>")}
	e := newTestExecutor(a, b)

	res, err := e.run(context.Background(), textToHTML, []string{"a", "b"}, Input{Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "<p>from a</p>", string(res.data))
	assert.EqualValues(t, 0, b.calls.Load())
	require.Len(t, res.attempts, 1)
	assert.Equal(t, OutcomeSuccess, res.attempts[0].Outcome)
}

func TestCascadeAdvancesOnFailure(t *testing.T) {
	failing := &fakeBackend{name: "failing", err: errors.New("service unavailable")}
	tiny := &fakeBackend{name: "tiny", out: []byte("<")}
	panicky := &fakeBackend{name: "panicky", panic: true}
	good := &fakeBackend{name: "good", out: []byte("<p>ok</p>")}
	e := newTestExecutor(failing, tiny, panicky, good)

	res, err := e.run(context.Background(), textToHTML, []string{"missing", "failing", "tiny", "panicky", "good"}, Input{})
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", string(res.data))

	var outcomes []Outcome
	for _, a := range res.attempts {
		outcomes = append(outcomes, a.Outcome)
	}
	assert.Equal(t, []Outcome{OutcomeError, OutcomeRejected, OutcomeError, OutcomeSuccess}, outcomes)
	assert.ErrorContains(t, res.attempts[2].Err, "panic")
}

func TestCascadeTimeoutAdvances(t *testing.T) {
	slow := &fakeBackend{name: "slow", kind: KindRemote, delay: time.Second, out: []byte("<p>late</p>")}
	fast := &fakeBackend{name: "fast", kind: KindFallback, out: []byte("<p>fast</p>")}
	e := newTestExecutor(slow, fast)

	start := time.Now()
	res, err := e.run(context.Background(), textToHTML, []string{"slow", "fast"}, Input{})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, "<p>fast</p>", string(res.data))
	assert.Equal(t, OutcomeTimeout, res.attempts[0].Outcome)
}

func TestCascadeExhausted(t *testing.T) {
	a := &fakeBackend{name: "a", err: errors.New("a failed")}
	b := &fakeBackend{name: "b", out: []byte("no markup here")}
	e := newTestExecutor(a, b)

	_, err := e.run(context.Background(), textToHTML, []string{"a", "b"}, Input{})
	require.Error(t, err)
	assert.True(t, IsBackendExhausted(err))
	assert.Equal(t, BackendExhausted, KindOf(err))

	var exhausted *BackendExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, textToHTML, exhausted.Pair)
	require.Len(t, exhausted.Attempts, 2)
	assert.Equal(t, OutcomeRejected, exhausted.Attempts[1].Outcome)
}

func TestCascadeEmpty(t *testing.T) {
	e := newTestExecutor()
	_, err := e.run(context.Background(), textToHTML, nil, Input{})
	assert.True(t, IsBackendExhausted(err))
	assert.Contains(t, err.Error(), "no backend available")
}

func TestCascadeStopsOnCancelledContext(t *testing.T) {
	a := &fakeBackend{name: "a", out: []byte("<p>x</p>")}
	e := newTestExecutor(a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.run(ctx, textToHTML, []string{"a"}, Input{})
	assert.True(t, IsBackendExhausted(err))
	assert.EqualValues(t, 0, a.calls.Load())
}

func TestCascadeDegradedFlag(t *testing.T) {
	marker := &fakeBackend{name: "marker", out: []byte("<p>placeholder</p>"), check: func(in *Input) { in.MarkDegraded() }}
	e := newTestExecutor(marker)

	res, err := e.run(context.Background(), textToHTML, []string{"marker"}, Input{})
	require.NoError(t, err)
	assert.True(t, res.degraded)
}

func TestValidateOutput(t *testing.T) {
	assert.NoError(t, validateOutput(FormatPDF, fakePDF()))
	assert.Error(t, validateOutput(FormatPDF, []byte("not a pdf at all, but long enough to pass the minimum size check")))
	assert.NoError(t, validateOutput(FormatImage, samplePNG(t)))
	assert.Error(t, validateOutput(FormatText, []byte("   ")))
	assert.Error(t, validateOutput(FormatText, []byte{0xff, 0xfe, 0x00}))
	assert.NoError(t, validateOutput(FormatText, []byte("hello")))
}
