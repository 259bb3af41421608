package salesforce

// Account is one CRM account record, immutable for the duration of a run.
type Account struct {
	ID        string
	Name      string
	Industry  string
	Address   string
	OwnerName string
	Cluster   string
	Area      string
}

// Contact is one CRM contact related to an account. Position and Role are
// free-text role indicators; the selection rule in the sync engine decides
// what they mean.
type Contact struct {
	ID       string
	Name     string
	Email    string
	Phone    string
	Mobile   string
	Position string
	Role     string
}
