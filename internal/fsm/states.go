package fsm

const (
	StateIdle           = ""
	StateAwaitingWallet = "awaiting_wallet"
)
