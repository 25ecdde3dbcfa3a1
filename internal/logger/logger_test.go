package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesRotatedFile(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	path := filepath.Join(t.TempDir(), "logs", "sentinel.log")

	require.NoError(t, Init(Config{Level: "debug", File: path}))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	logrus.Info("hello from the test")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the test")
}

func TestInitUnknownLevel(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	require.NoError(t, Init(Config{Level: "chatty"}))
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
