package model

// Identity is the caller resolved from a request token. A zero Identity is anonymous.
type Identity struct {
	UserID  int64
	IsAdmin bool
}

// Anonymous reports whether no user is attached.
func (i Identity) Anonymous() bool { return i.UserID == 0 }
