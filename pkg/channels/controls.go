package channels

// Shared render labels so every transport presents the same controls.
const (
	claimLabel   = "Claim 🎁"
	unclaimLabel = "Unclaim ↩️"
)

// menuCommands is the quick-reply keyboard offered after /start, on
// transports that support one.
var menuCommands = []string{"/add", "/list", "/reset"}
