package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedMap(t *testing.T) {
	Env = map[string]string{"BAC_TEST_KEY": "from-map"}
	t.Setenv("BAC_TEST_KEY", "from-os")
	defer func() { Env = nil }()

	assert.Equal(t, "from-map", GetEnv("BAC_TEST_KEY", "def"))
}

func TestGetEnvFallsBackToOS(t *testing.T) {
	Env = map[string]string{}
	defer func() { Env = nil }()
	t.Setenv("BAC_TEST_OS_ONLY", "os")

	assert.Equal(t, "os", GetEnv("BAC_TEST_OS_ONLY", "def"))
	assert.Equal(t, "def", GetEnv("BAC_TEST_MISSING", "def"))
}

func TestTypedGetters(t *testing.T) {
	Env = map[string]string{
		"BAC_INT":      "7",
		"BAC_BAD_INT":  "seven",
		"BAC_DURATION": "15m",
		"BAC_BOOL":     "true",
	}
	defer func() { Env = nil }()

	assert.Equal(t, 7, GetEnvInt("BAC_INT", 1))
	assert.Equal(t, 1, GetEnvInt("BAC_BAD_INT", 1))
	assert.Equal(t, 15*time.Minute, GetEnvDuration("BAC_DURATION", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("BAC_MISSING", time.Second))
	assert.True(t, GetEnvBool("BAC_BOOL", false))
	assert.False(t, GetEnvBool("BAC_MISSING", false))
}
