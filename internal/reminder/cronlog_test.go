package reminder

import (
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCronLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := cronLogger{zap.New(core).Sugar()}

	l.Info("wake", "now", "2024-03-10")
	l.Error(errors.New("boom"), "panic", "job", "sweep")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, "2024-03-10", entries[0].ContextMap()["now"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "panic", entries[1].Message)
	assert.Equal(t, "sweep", entries[1].ContextMap()["job"])
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestCronLogger_RecoversPanicIntoZap(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	l := cronLogger{zap.New(core).Sugar()}

	job := cron.NewChain(cron.Recover(l)).Then(cron.FuncJob(func() { panic("sweep failed") }))

	done := make(chan struct{})
	go func() {
		defer close(done)
		job.Run()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not return")
	}

	require.Equal(t, 1, logs.FilterMessage("panic").Len())
}
