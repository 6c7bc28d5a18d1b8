package types

// Operation identifies a KeyAuth API operation. The value is sent verbatim
// as the `type` field of the outbound request.
type Operation string

const (
	OpInit           Operation = "init"
	OpLogin          Operation = "login"
	OpLogout         Operation = "logout"
	OpRegister       Operation = "register"
	OpLicense        Operation = "license"
	OpBan            Operation = "ban"
	OpCheck          Operation = "check"
	OpCheckBlacklist Operation = "checkblacklist"
	OpChangeUsername Operation = "changeUsername"
	OpForgot         Operation = "forgot"
	OpFetchOnline    Operation = "fetchOnline"
	OpFetchStats     Operation = "fetchStats"
	OpLog            Operation = "log"
	OpWebhook        Operation = "webhook"
	OpFile           Operation = "file"
	OpChatGet        Operation = "chatget"
	OpChatSend       Operation = "chatsend"
	OpGetVar         Operation = "getvar"
	OpSetVar         Operation = "setvar"
	OpVar            Operation = "var"
)

func (o Operation) String() string {
	return string(o)
}
