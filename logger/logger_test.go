package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	Configure(l, &buf, "debug", "production")

	l.WithField("year", 2025).Info("holidays loaded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "holidays loaded", entry["msg"])
	assert.Equal(t, float64(2025), entry["year"])
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

func TestConfigure_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	Configure(l, &buf, "chatty", "development")

	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.Contains(t, buf.String(), "Invalid log level")
	_, isText := l.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}
