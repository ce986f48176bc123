package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type syncCountingCore struct {
	zapcore.Core
	syncs int
}

func (c *syncCountingCore) Sync() error {
	c.syncs++
	return c.Core.Sync()
}

func TestFinish(t *testing.T) {
	inner, logs := observer.New(zapcore.InfoLevel)
	core := &syncCountingCore{Core: inner}
	log := zap.New(core)

	assert.Equal(t, 1, finish(log, errors.New("listen tcp :8080: address already in use")))
	assert.Equal(t, 1, core.syncs, "logger must be flushed before exit")
	entries := logs.FilterMessage("server stopped").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	}

	assert.Equal(t, 0, finish(log, nil))
	assert.Equal(t, 2, core.syncs)
	assert.Equal(t, 1, logs.Len())
}
