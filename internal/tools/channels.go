package tools

import "chatgate/internal/upstream"

// payloadBuilder shapes the outbound send-message body for one channel.
// Each channel requires a structurally different payload for the same
// logical action.
type payloadBuilder func(recipient, text string) any

// payloadBuilders is closed over the fixed channel set; adding a channel
// means adding an entry here and a path prefix in the upstream package.
var payloadBuilders = map[upstream.Channel]payloadBuilder{
	upstream.ChannelWhatsApp: func(recipient, text string) any {
		return map[string]any{
			"phone": recipient,
			"body":  text,
		}
	},
	upstream.ChannelTelegram: func(recipient, text string) any {
		return map[string]any{
			"chat_id": recipient,
			"text":    text,
		}
	},
}
