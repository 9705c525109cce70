package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingHandler accepts every record and fails to handle it.
type failingHandler struct {
	slog.Handler
}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}

func textHandler(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestMultiHandler_FansOutAndSkipsNil(t *testing.T) {
	var a, b bytes.Buffer
	multi := NewMultiHandler(nil, textHandler(&a, slog.LevelInfo), nil, textHandler(&b, slog.LevelInfo))
	require.Len(t, multi.handlers, 2)

	slog.New(multi).Info("sample", "step", 7)
	assert.Contains(t, a.String(), "step=7")
	assert.Contains(t, b.String(), "step=7")
}

func TestMultiHandler_Enabled(t *testing.T) {
	ctx := context.Background()
	info := textHandler(&bytes.Buffer{}, slog.LevelInfo)
	debug := textHandler(&bytes.Buffer{}, slog.LevelDebug)

	assert.False(t, NewMultiHandler().Enabled(ctx, slog.LevelError))
	assert.False(t, NewMultiHandler(info).Enabled(ctx, slog.LevelDebug))
	assert.True(t, NewMultiHandler(info, debug).Enabled(ctx, slog.LevelDebug))
}

func TestMultiHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(textHandler(&buf, slog.LevelInfo))

	slog.New(multi.WithAttrs([]slog.Attr{slog.String("sink", "influx")}).WithGroup("wind")).
		Info("gust", "speed", 6.5)

	assert.Contains(t, buf.String(), "sink=influx")
	assert.Contains(t, buf.String(), "wind.speed=6.5")
	assert.Equal(t, multi, multi.WithGroup(""))
}

func TestMultiHandler_ErrorDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(failingHandler{}, textHandler(&buf, slog.LevelInfo))

	slog.New(multi).Info("still delivered")
	assert.Contains(t, buf.String(), "still delivered")
}

func TestContextHandler_NilProvider(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), nil)
	slog.New(h.WithAttrs([]slog.Attr{slog.String("a", "b")}).WithGroup("g")).Info("plain", "k", 1)

	assert.Contains(t, buf.String(), "a=b")
	assert.Contains(t, buf.String(), "g.k=1")
	assert.Equal(t, h, h.WithGroup(""))
}
