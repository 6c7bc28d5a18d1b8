package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "0.3.1"
	AppName   = "keyauth-go"
	BuildDate = "unknown"
)

// Info describes the build of this module and the runtime it runs on.
type Info struct {
	AppName   string `json:"app_name"`
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo snapshots the build and runtime identity, e.g. for startup logging.
func GetInfo() Info {
	return Info{
		AppName:   AppName,
		Version:   Version,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// UserAgent is the default User-Agent header value for outbound requests.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", AppName, Version)
}
