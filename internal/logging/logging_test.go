package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput(&buf, "debug", FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("records", 3).Info("trained")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "trained", line["msg"])
	assert.Equal(t, float64(3), line["records"])
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("loud", FormatText)
	assert.Error(t, err)

	_, err = New("info", Format("xml"))
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	router := gin.New()
	router.Use(Middleware(logger))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ok", nil)
	router.ServeHTTP(w, req)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "/ok", hook.LastEntry().Data["path"])

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/bad", nil)
	router.ServeHTTP(w, req)
	require.Len(t, hook.Entries, 2)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, http.StatusUnprocessableEntity, hook.LastEntry().Data["status"])
}
