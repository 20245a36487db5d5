package backup

// Payload is the selective re-submission document handed to the Executor.
// The full client and service sequences are always transmitted so the
// persistence layer can remap identifiers for bookings that reference them;
// ImportFlags says which of those are actually authoritative for writing.
type Payload struct {
	Version     int            `json:"version"`
	ExportedAt  string         `json:"exportedAt,omitempty"`
	Data        SnapshotData   `json:"data"`
	Selection   map[Class]bool `json:"selection"`
	ImportFlags ImportFlags    `json:"importFlags"`
}

// ImportFlags names, per entity class, the snapshot-local indices that are
// authoritative for persistence. Anything transmitted but not flagged is
// used only for reference resolution.
type ImportFlags struct {
	Clients    []int `json:"clients"`
	Services   []int `json:"services"`
	Categories []int `json:"expenseCategories"`
	Expenses   []int `json:"expenses"`
	Bookings   []int `json:"bookings"`
	Payments   []int `json:"payments"`
	Settings   bool  `json:"settings"`
}

// Stats reports the per-class record counts written by a committed import.
type Stats struct {
	Written         map[Class]int `json:"written"`
	SettingsApplied bool          `json:"settingsApplied,omitempty"`
}

// Payload builds the minimal referentially-consistent document for the
// current selection. Payments are derived here: exactly those whose booking
// is selected, never more.
func (s *Session) Payload() *Payload {
	data := &s.snap.Data

	p := &Payload{
		Version:    s.snap.Version,
		ExportedAt: s.snap.ExportedAt,
		Data: SnapshotData{
			// Always send all clients and services for id remapping.
			Clients:  data.Clients,
			Services: data.Services,
		},
		Selection: make(map[Class]bool, len(Classes)),
	}

	catIdx := s.sel.Indices(ClassCategory)
	for _, i := range catIdx {
		p.Data.Categories = append(p.Data.Categories, data.Categories[i])
	}

	expIdx := s.sel.Indices(ClassExpense)
	for _, i := range expIdx {
		p.Data.Expenses = append(p.Data.Expenses, data.Expenses[i])
	}

	bookIdx := s.sel.Indices(ClassBooking)
	selectedBookingIDs := make(map[string]struct{}, len(bookIdx))

	for _, i := range bookIdx {
		p.Data.Bookings = append(p.Data.Bookings, data.Bookings[i])
		if id := data.Bookings[i].ID; id != "" {
			selectedBookingIDs[id] = struct{}{}
		}
	}

	var payIdx []int

	for i, pay := range data.Payments {
		if _, ok := selectedBookingIDs[pay.BookingID]; !ok {
			continue
		}

		p.Data.Payments = append(p.Data.Payments, pay)
		payIdx = append(payIdx, i)
	}

	if s.sel.includeSettings {
		p.Data.Settings = data.Settings
	}

	p.ImportFlags = ImportFlags{
		Clients:    s.sel.Indices(ClassClient),
		Services:   s.sel.Indices(ClassService),
		Categories: catIdx,
		Expenses:   expIdx,
		Bookings:   bookIdx,
		Payments:   payIdx,
		Settings:   s.sel.includeSettings,
	}

	p.Selection[ClassClient] = len(p.ImportFlags.Clients) > 0
	p.Selection[ClassService] = len(p.ImportFlags.Services) > 0
	p.Selection[ClassCategory] = len(catIdx) > 0
	p.Selection[ClassExpense] = len(expIdx) > 0
	p.Selection[ClassBooking] = len(bookIdx) > 0
	p.Selection[ClassPayment] = len(payIdx) > 0

	return p
}
