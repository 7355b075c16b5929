package family

// seedRecord builds the fixed initial roster used when no family record
// has been persisted yet.
func seedRecord() *Record {
	record := &Record{
		Family: Info{
			Name: "Gupta Family",
			Values: []string{
				"Family First",
				"Privacy Always",
				"Learning Together",
				"Love and Growth",
				"Simple and Useful",
			},
		},
		Members: NewRoster(),
	}

	seed := []struct {
		id, name, role, note string
	}{
		{"santosh", "Santosh Gupta", "admin", "Family creator and administrator"},
		{"maryne", "Maryne Gupta", "mother", "Caring mother"},
		{"aditya", "Aditya Gupta", "son", "Young family member"},
		{"avinav", "Avinav Gupta", "son", "Young family member"},
		{"sushma", "Sushma Potlapally", "sister", "Visiting from Germany"},
		{"meghna", "Meghna Potlapally", "niece", "Sushma's daughter"},
	}
	for _, m := range seed {
		record.Members.Add(&Member{
			ID:          m.id,
			DisplayName: m.name,
			Role:        m.role,
			Interests:   []string{},
			Traits:      []TraitObservation{{Note: m.note}},
		})
	}
	return record
}
