package domain

// Member is one connected participant's room registration. Membership is
// ephemeral: it mirrors a live connection and is lost on process restart.
// Role is advisory metadata; any role string a client presents is recorded
// verbatim.
type Member struct {
	ConnID    ConnID
	SessionID SessionID
	Role      Role
	Name      string
}
