package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeBackend struct {
	reopens int
	err     error
}

func (b *fakeBackend) Reopen() error {
	b.reopens++
	return b.err
}

func newTestMonitor(opts ...Option) (*Monitor, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(append([]Option{WithClock(clock.now)}, opts...)...), clock
}

func TestInterval(t *testing.T) {
	m, clock := newTestMonitor()

	clock.advance(2 * time.Second)
	assert.Equal(t, 2*time.Second, m.Interval(false, "files"))

	clock.advance(time.Second)
	assert.Equal(t, 3*time.Second, m.Interval(true, "files"))

	clock.advance(time.Second)
	assert.Equal(t, time.Second, m.Interval(true, "media"))

	assert.Equal(t, map[string]time.Duration{
		"files": 5 * time.Second,
		"media": time.Second,
	}, m.Totals())
	assert.Equal(t, []string{"files", "media"}, m.Names())
	assert.Equal(t, 4*time.Second, m.Total())
}

func TestCheckpoint(t *testing.T) {
	t.Run("below threshold", func(t *testing.T) {
		m, clock := newTestMonitor()
		b := &fakeBackend{}

		clock.advance(9 * time.Second)
		assert.False(t, m.Checkpoint("addFiles", b))
		assert.Equal(t, 0, b.reopens)
	})

	t.Run("at threshold reopens and resets", func(t *testing.T) {
		m, clock := newTestMonitor()
		b := &fakeBackend{}

		clock.advance(10 * time.Second)
		assert.True(t, m.Checkpoint("addFiles", b))
		assert.Equal(t, 1, b.reopens)
		assert.Equal(t, 1, m.Reopens())

		clock.advance(time.Second)
		assert.Equal(t, time.Second, m.Interval(false, ""))
	})

	t.Run("backend without reopen keeps timer", func(t *testing.T) {
		m, clock := newTestMonitor()

		clock.advance(15 * time.Second)
		assert.False(t, m.Checkpoint("addFiles", struct{}{}))
		assert.Equal(t, 15*time.Second, m.Interval(false, ""))
	})

	t.Run("custom threshold and hook", func(t *testing.T) {
		var gotName string
		var gotErr error
		m, clock := newTestMonitor(
			WithThreshold(time.Second),
			WithReopenHook(func(name string, _ time.Duration, err error) {
				gotName, gotErr = name, err
			}),
		)
		b := &fakeBackend{err: errors.New("refused")}

		clock.advance(time.Second)
		require.True(t, m.Checkpoint("languages", b))
		assert.Equal(t, "languages", gotName)
		assert.EqualError(t, gotErr, "refused")
	})
}

func TestSectionDone(t *testing.T) {
	m, clock := newTestMonitor()
	b := &fakeBackend{}

	clock.advance(3 * time.Second)
	assert.False(t, m.SectionDone("files", b))

	clock.advance(12 * time.Second)
	assert.True(t, m.SectionDone("administration", b))
	assert.Equal(t, 1, b.reopens)

	assert.Equal(t, 3*time.Second, m.Totals()["files"])
	assert.Equal(t, 12*time.Second, m.Totals()["administration"])
}
