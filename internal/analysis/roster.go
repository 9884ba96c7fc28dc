package analysis

// Roster lists the people and organizations the model classifies against.
type Roster struct {
	InternalStaff []string `yaml:"internal_staff"`
	Clients       []string `yaml:"clients"`
}

// DefaultRoster is used when configuration provides no roster.
var DefaultRoster = Roster{
	InternalStaff: []string{
		"Alex Morgan",
		"Jordan Lee",
		"Priya Raman",
		"Sam Okafor",
		"Taylor Brooks",
	},
	Clients: []string{
		"Northwind Traders",
		"Contoso",
		"Fabrikam",
		"Globex",
	},
}

func (r Roster) withDefaults() Roster {
	if len(r.InternalStaff) == 0 {
		r.InternalStaff = DefaultRoster.InternalStaff
	}
	if len(r.Clients) == 0 {
		r.Clients = DefaultRoster.Clients
	}
	return r
}
