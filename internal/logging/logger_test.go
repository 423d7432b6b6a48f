package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCachesPerComponent(t *testing.T) {
	t.Setenv(EnvLevel, "")
	Reset()
	t.Cleanup(Reset)

	first := New("store", Config{Level: "debug"})
	second := New("store", Config{Level: "error"})
	assert.Same(t, first, second)
	assert.Equal(t, logrus.DebugLevel, first.Logger.GetLevel())

	other := New("addon", Config{})
	assert.NotSame(t, first, other)
}

func TestNewJSONFormatWritesComponent(t *testing.T) {
	Reset()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(nil)
		Reset()
	})

	New("medium", Config{Format: "json"}).Info("persisted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "medium", entry["component"])
	assert.Equal(t, "persisted", entry["msg"])
}

func TestParseLevel(t *testing.T) {
	t.Setenv(EnvLevel, "")
	assert.Equal(t, logrus.InfoLevel, ParseLevel(""))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("loud"))

	t.Setenv(EnvLevel, "debug")
	assert.Equal(t, logrus.DebugLevel, ParseLevel("error"))
}
