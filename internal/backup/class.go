package backup

// Class identifies one of the six importable entity classes. The values
// double as the sequence names inside a snapshot's data object.
type Class string

const (
	ClassClient   Class = "clients"
	ClassService  Class = "services"
	ClassCategory Class = "expenseCategories"
	ClassExpense  Class = "expenses"
	ClassBooking  Class = "bookings"
	ClassPayment  Class = "payments"
)

// Classes lists every importable class in dependency order: referenced
// classes come before the classes that reference them.
var Classes = []Class{
	ClassClient,
	ClassService,
	ClassCategory,
	ClassExpense,
	ClassBooking,
	ClassPayment,
}

// Selectable reports whether records of this class can be marked for import
// directly. Payments follow their booking and are never selected on their own.
func (c Class) Selectable() bool {
	return c != ClassPayment
}

// DisplayName returns the human-readable class name used in warnings and UI.
func (c Class) DisplayName() string {
	switch c {
	case ClassClient:
		return "Client"
	case ClassService:
		return "Service"
	case ClassCategory:
		return "Expense Category"
	case ClassExpense:
		return "Expense"
	case ClassBooking:
		return "Booking"
	case ClassPayment:
		return "Payment"
	}

	return string(c)
}

// RecordRef identifies a snapshot record by class and position within the
// snapshot's ordered sequence. Embedded ids are not stable across an
// export/import round-trip, so positional identity is used instead.
type RecordRef struct {
	Class Class `json:"class"`
	Index int   `json:"index"`
}
