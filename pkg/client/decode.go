package client

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/keyauth-community/keyauth-go/pkg/types"
)

// decodePayload maps a normalized payload fragment onto a typed struct.
// WeaklyTypedInput tolerates the service's habit of returning numbers as
// strings and vice versa.
func decodePayload(input any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func dataField(resp *types.Response, key string) any {
	m := resp.DataMap()
	if m == nil {
		return nil
	}
	return m[key]
}

func stringField(resp *types.Response, key string) string {
	s, _ := dataField(resp, key).(string)
	return s
}

// AppInfoFrom decodes the application metadata an init response carries.
func AppInfoFrom(resp *types.Response) (types.AppInfo, error) {
	var info types.AppInfo
	raw := dataField(resp, "appinfo")
	if raw == nil {
		return info, fmt.Errorf("response carries no appinfo")
	}
	return info, decodePayload(raw, &info)
}

// UserInfoFrom decodes the user record returned by login-class operations.
func UserInfoFrom(resp *types.Response) (types.UserInfo, error) {
	var info types.UserInfo
	raw := dataField(resp, "info")
	if raw == nil {
		return info, fmt.Errorf("response carries no user info")
	}
	return info, decodePayload(raw, &info)
}

// ChatMessagesFrom decodes the messages of a chatget response.
func ChatMessagesFrom(resp *types.Response) ([]types.ChatMessage, error) {
	var messages []types.ChatMessage
	raw := dataField(resp, "messages")
	if raw == nil {
		return nil, nil
	}
	return messages, decodePayload(raw, &messages)
}

// OnlineUsersFrom decodes the user list of a fetchOnline response.
func OnlineUsersFrom(resp *types.Response) ([]types.OnlineUser, error) {
	var users []types.OnlineUser
	raw := dataField(resp, "users")
	if raw == nil {
		return nil, nil
	}
	return users, decodePayload(raw, &users)
}
