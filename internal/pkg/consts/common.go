package consts

const (
	DefaultAvatarURL = "default_avatar.png"
)

const (
	MessageStateSent      = int8(0)
	MessageStateDelivered = int8(1)
	MessageStateRead      = int8(2)
)

const (
	ActionTypeFollow = "follow"
	ActionTypeLike   = "like"
)
