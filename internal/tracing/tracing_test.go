package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appconfig "github.com/therealutkarshpriyadarshi/filmfluent/internal/config"
)

func TestInitDisabled(t *testing.T) {
	tracer, closer, err := Init(appconfig.TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NotNil(t, tracer)
	assert.NoError(t, closer.Close())
}

func TestSpanHelpers(t *testing.T) {
	tracer := mocktracer.New()
	previous := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(tracer)
	defer opentracing.SetGlobalTracer(previous)

	parent, ctx := StartSpan(context.Background(), "process_file")
	child, _ := StartSpan(ctx, "parse")
	SetTag(child, "blocks", 5)
	LogError(child, errors.New("bad block"))
	FinishSpan(child)
	FinishSpan(parent)

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 2)

	parse := spans[0]
	assert.Equal(t, "parse", parse.OperationName)
	assert.Equal(t, 5, parse.Tag("blocks"))
	assert.Equal(t, true, parse.Tag("error"))
	assert.Equal(t, spans[1].SpanContext.SpanID, parse.ParentID)
}

func TestHelpersTolerateNilSpan(t *testing.T) {
	FinishSpan(nil)
	SetTag(nil, "k", "v")
	LogError(nil, errors.New("x"))
}
