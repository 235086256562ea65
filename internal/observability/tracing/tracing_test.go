package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSafeAttributesDropsClientData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("collection", "payments"),
		attribute.String("client_name", "Asha Rao"),
		attribute.String("email", "asha@example.com"),
	)
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("collection"), attrs[0].Key)
}

func TestSafeErrorFlattensAndCaps(t *testing.T) {
	assert.Nil(t, SafeError(nil))

	err := SafeError(errors.New("line one\n\tline two"))
	assert.Equal(t, "line one line two", err.Error())

	long := SafeError(errors.New(strings.Repeat("x", 1000)))
	assert.Len(t, long.Error(), maxErrorLength)
}

func TestSamplingRatioClamps(t *testing.T) {
	assert.Equal(t, 0.0, samplingRatio(-1))
	assert.Equal(t, 1.0, samplingRatio(4))
	assert.Equal(t, 0.25, samplingRatio(0.25))
}

func TestGinMiddlewareRecordsServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/dashboard", func(c *gin.Context) {
		_ = c.Error(errors.New("sheets unreachable"))
		c.Status(http.StatusInternalServerError)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET /api/dashboard", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
