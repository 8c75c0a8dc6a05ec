package domain

// Client is the owner of one or more IP addresses. Key is the national
// identification number the client registered with.
type Client struct {
	Key           string `json:"key" db:"client_key"`
	Name          string `json:"name" db:"name"`
	EmailAddress  string `json:"email_address" db:"email_address"`
	PostalAddress string `json:"postal_address" db:"postal_address"`
}

// IPAddress is a registered address belonging to exactly one client
type IPAddress struct {
	Value     string `json:"value" db:"value"`
	ClientKey string `json:"client_key" db:"client_key"`
}

// Ref returns the by-value reference used on loans
func (a *IPAddress) Ref() IPAddressRef {
	return IPAddressRef{Value: a.Value, ClientKey: a.ClientKey}
}
