package logging

import (
	"os"
	"path/filepath"
	"testing"

	"bebamart/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetFormatter(&logrus.TextFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetOutput(os.Stderr)
	})

	closer := Setup(&config.Config{IsProd: true, LogLevel: "debug"})
	require.NoError(t, closer.Close())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	path := filepath.Join(t.TempDir(), "bebamart.log")
	closer = Setup(&config.Config{LogLevel: "nonsense", LogFile: path})
	logrus.Info("rotated")
	require.NoError(t, closer.Close())
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	assert.FileExists(t, path)
}
