package models

// Profile is the signed-in user's identity as returned by the API.
type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// BankAccount is a read-only snapshot of a linked payout account.
type BankAccount struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	Currency      string `json:"currency"`
	Country       string `json:"country"`
	IsDefault     bool   `json:"is_default"`
}

// Session represents the authenticated user's client-side state.
// IsAuthenticated is true only while Token holds a token set by a successful login.
type Session struct {
	Token           string        `json:"token"`
	Profile         Profile       `json:"profile"`
	Accounts        []BankAccount `json:"accounts"`
	IsAuthenticated bool          `json:"is_authenticated"`
}

// Clone returns a copy that shares no memory with s.
func (s Session) Clone() Session {
	out := s
	if s.Accounts != nil {
		out.Accounts = make([]BankAccount, len(s.Accounts))
		copy(out.Accounts, s.Accounts)
	}
	return out
}

// DefaultAccount returns the account flagged as default, if any.
func (s Session) DefaultAccount() (BankAccount, bool) {
	for _, acc := range s.Accounts {
		if acc.IsDefault {
			return acc, true
		}
	}
	return BankAccount{}, false
}
