package logger

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/keyauth-community/keyauth-go/pkg/config"
)

func TestNew_InactiveLoggerDiscardsOutput(t *testing.T) {
	log := New(config.LoggerConfig{Active: false, Level: "debug"})
	assert.Equal(t, io.Discard, log.Out)
}

func TestNew_ParsesLevel(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{level: "debug", want: logrus.DebugLevel},
		{level: "warn", want: logrus.WarnLevel},
		{level: "error", want: logrus.ErrorLevel},
		{level: "nonsense", want: logrus.InfoLevel},
		{level: "", want: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := New(config.LoggerConfig{Active: true, Level: tt.level})
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestWithName_CarriesLoggerField(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LoggerConfig{Active: true, Level: "info"})
	log.SetOutput(&buf)

	WithName(log, "licensing").Info("hello")
	assert.Contains(t, buf.String(), "logger=licensing")

	buf.Reset()
	WithName(log, "").Info("hello")
	assert.Contains(t, buf.String(), "logger=keyauth")
}
