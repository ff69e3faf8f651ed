package domain

// Principal is the caller identity carried by an access token.
type Principal struct {
	Id       AccountId
	Username Username
	Admin    bool
}
