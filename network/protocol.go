package network

// Message identifiers carried in the packet header. Clients must
// authenticate before anything other than a heartbeat is accepted.
const (
	MsgTypeHeartbeat = 1
	MsgTypeAuth      = 101
	MsgTypeCommand   = 201
	MsgTypeResponse  = 202
	MsgTypeAnnounce  = 301
	MsgTypeError     = 401
)
