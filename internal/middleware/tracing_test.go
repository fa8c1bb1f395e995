package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer := mocktracer.New()
	previous := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(tracer)
	defer opentracing.SetGlobalTracer(previous)

	router := gin.New()
	router.Use(Tracing())
	router.GET("/api/v1/movies/:id", func(c *gin.Context) {
		assert.NotNil(t, opentracing.SpanFromContext(c.Request.Context()))
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/movies/42", nil))

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/movies/:id", spans[0].OperationName)
	assert.Equal(t, uint16(500), spans[0].Tag("http.status_code"))
	assert.Equal(t, true, spans[0].Tag("error"))
}
