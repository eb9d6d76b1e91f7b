package journal

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainReturnsOnlyNewMessages(t *testing.T) {
	j := New()
	j.Info("one")
	j.Info("two")
	j.Error("three")

	got := j.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, Message{Level: LevelInfo, Text: "one"}, got[0])
	assert.Equal(t, Message{Level: LevelInfo, Text: "two"}, got[1])
	assert.Equal(t, Message{Level: LevelError, Text: "three"}, got[2])

	assert.Empty(t, j.Drain())
	assert.Empty(t, j.Drain())

	j.Info("four")
	got = j.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, "four", got[0].Text)
}

func TestDrainOnEmptyJournal(t *testing.T) {
	j := New()
	got := j.Drain()
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestResetStartsNewLog(t *testing.T) {
	j := New()
	j.Info("old")
	j.Finish()
	j.Drain()
	require.True(t, j.Done())

	j.Reset(Message{Level: LevelInfo, Text: "install x"})
	assert.False(t, j.Done())
	assert.Equal(t, 1, j.Len())

	got := j.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, "install x", got[0].Text)
}

func TestFinishAppendsTerminator(t *testing.T) {
	j := New()
	j.Info("working")
	j.Finish()

	msgs := j.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, Terminator, msgs[1].Text)
	assert.Equal(t, LevelInfo, msgs[1].Level)
	assert.True(t, j.Done())
}

func TestCursorsAreIndependent(t *testing.T) {
	j := New()
	a := j.Cursor()
	j.Info("one")

	assert.Len(t, a.Next(), 1)
	b := j.Cursor()
	j.Info("two")

	assert.Len(t, b.Next(), 2)
	assert.Len(t, a.Next(), 1)
	assert.Len(t, j.Drain(), 2)
	assert.Empty(t, a.Next())
}

func TestCursorSurvivesReset(t *testing.T) {
	j := New()
	c := j.Cursor()
	j.Info("one")
	j.Info("two")
	c.Next()

	j.Reset(Message{Level: LevelInfo, Text: "fresh"})
	got := c.Next()
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Text)
}

func TestConcurrentProducerAndConsumer(t *testing.T) {
	j := New()
	const total = 500

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			j.Info("msg %d", i)
		}
		j.Finish()
	}()

	var received []Message
	for {
		received = append(received, j.Drain()...)
		if j.Done() {
			received = append(received, j.Drain()...)
			break
		}
	}
	wg.Wait()

	require.Len(t, received, total+1)
	assert.Equal(t, "msg 0", received[0].Text)
	assert.Equal(t, Terminator, received[total].Text)
}
