package config

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogLevelFromEnv(t *testing.T) {
	cases := []struct {
		value string
		want  logrus.Level
	}{
		{"", logrus.ErrorLevel},
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"nonsense", logrus.ErrorLevel},
		{"  error  ", logrus.ErrorLevel},
	}
	for _, tc := range cases {
		t.Setenv("LOG_LEVEL", tc.value)
		if got := logLevelFromEnv(); got != tc.want {
			t.Errorf("LOG_LEVEL=%q: level = %v, want %v", tc.value, got, tc.want)
		}
	}
}
