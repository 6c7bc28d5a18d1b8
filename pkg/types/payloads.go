package types

// Typed views over operation payloads. Decoded from Response.Data with
// mapstructure; field tags follow the wire names used by the KeyAuth API.

// AppInfo is returned by init and carries application-level counters.
type AppInfo struct {
	NumUsers          string `mapstructure:"numUsers"`
	NumOnlineUsers    string `mapstructure:"numOnlineUsers"`
	NumKeys           string `mapstructure:"numKeys"`
	Version           string `mapstructure:"version"`
	CustomerPanelLink string `mapstructure:"customerPanelLink"`
}

// UserInfo is returned by login, register and license.
type UserInfo struct {
	Username      string         `mapstructure:"username"`
	IP            string         `mapstructure:"ip"`
	HWID          string         `mapstructure:"hwid"`
	CreateDate    string         `mapstructure:"createdate"`
	LastLogin     string         `mapstructure:"lastlogin"`
	Subscriptions []Subscription `mapstructure:"subscriptions"`
}

type Subscription struct {
	Subscription string `mapstructure:"subscription"`
	Key          string `mapstructure:"key"`
	Expiry       string `mapstructure:"expiry"`
	TimeLeft     int64  `mapstructure:"timeleft"`
}

// ChatMessage is one entry of a chat channel returned by chatget.
type ChatMessage struct {
	Author    string `mapstructure:"author"`
	Message   string `mapstructure:"message"`
	Timestamp string `mapstructure:"timestamp"`
}

// OnlineUser is one entry returned by fetchOnline.
type OnlineUser struct {
	CredentialUsername string `mapstructure:"credential"`
}
