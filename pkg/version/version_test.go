package version

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	assert.Equal(t, AppName, info.AppName)
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, BuildDate, info.BuildDate)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH), info.Platform)
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, fmt.Sprintf("%s/%s", AppName, Version), UserAgent())
	assert.NotContains(t, UserAgent(), " ")
}
