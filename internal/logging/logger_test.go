package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, TRACE, ParseLevel("trace"))
	assert.Equal(t, WARN, ParseLevel(" warning "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("нечто"), "Неизвестный уровень трактуется как INFO")
	assert.Equal(t, "DEBUG", DEBUG.String())
}

func TestFileLoggerWritesToDir(t *testing.T) {
	dir := t.TempDir()
	prev := currentSettings()
	defer Configure(prev)

	s := DefaultSettings()
	s.Dir = dir
	s.ConsoleLevel = ERROR
	Configure(s)

	l, err := NewLogger("navtest")
	require.NoError(t, err)
	l.Info("регион %d построен", 7)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, "navtest.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "регион 7 построен")
}

func TestManagerReturnsSameLogger(t *testing.T) {
	lm := GetLoggerManager()
	a := lm.MustGetLogger("same")
	b := lm.MustGetLogger("same")
	assert.Same(t, a, b)
	assert.Contains(t, lm.ListComponents(), "same")
	assert.NoError(t, lm.SetLogLevel("same", WARN, WARN))
	assert.Error(t, lm.SetLogLevel("missing-component", WARN, WARN))
}

func TestNilDefaultLoggerIsSafe(t *testing.T) {
	CloseDefaultLogger()
	assert.NotPanics(t, func() { Info("без логгера %s", "ok") })
}
