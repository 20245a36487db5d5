// Package store is the Postgres implementation of the backup engine's
// external collaborators: it loads the live dataset and executes the final
// import as a single transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/jpcaldeira/reserva/internal/backup"
	"github.com/jpcaldeira/reserva/internal/model"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// LoadDataset reads the complete live dataset for reconciliation: the six
// entity sequences plus the settings singleton. Referenced names are
// denormalized through joins so the duplicate heuristics never need ids.
func (s *Store) LoadDataset(ctx context.Context) (*model.Dataset, error) {
	ds := &model.Dataset{}

	var err error

	if ds.Clients, err = s.loadClients(ctx); err != nil {
		return nil, err
	}

	if ds.Services, err = s.loadServices(ctx); err != nil {
		return nil, err
	}

	if ds.Categories, err = s.loadCategories(ctx); err != nil {
		return nil, err
	}

	if ds.Expenses, err = s.loadExpenses(ctx); err != nil {
		return nil, err
	}

	if ds.Bookings, err = s.loadBookings(ctx); err != nil {
		return nil, err
	}

	if ds.Payments, err = s.loadPayments(ctx); err != nil {
		return nil, err
	}

	if ds.Settings, err = s.loadSettings(ctx); err != nil {
		return nil, err
	}

	return ds, nil
}

func (s *Store) loadClients(ctx context.Context) ([]*model.Client, error) {
	query := `
		SELECT id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(notes, ''), created_at
		FROM clients
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	defer rows.Close()

	var out []*model.Client

	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning client: %w", err)
		}

		out = append(out, &c)
	}

	return out, rows.Err()
}

func (s *Store) loadServices(ctx context.Context) ([]*model.Service, error) {
	query := `
		SELECT id, name, price, COALESCE(duration, 0)
		FROM services
		ORDER BY name ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	defer rows.Close()

	var out []*model.Service

	for rows.Next() {
		var v model.Service
		if err := rows.Scan(&v.ID, &v.Name, &v.Price, &v.Duration); err != nil {
			return nil, fmt.Errorf("scanning service: %w", err)
		}

		out = append(out, &v)
	}

	return out, rows.Err()
}

func (s *Store) loadCategories(ctx context.Context) ([]*model.ExpenseCategory, error) {
	query := `SELECT id, name FROM expense_categories ORDER BY name ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing expense categories: %w", err)
	}
	defer rows.Close()

	var out []*model.ExpenseCategory

	for rows.Next() {
		var c model.ExpenseCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning expense category: %w", err)
		}

		out = append(out, &c)
	}

	return out, rows.Err()
}

func (s *Store) loadExpenses(ctx context.Context) ([]*model.Expense, error) {
	query := `
		SELECT e.id, e.date, e.amount, COALESCE(e.description, ''),
		       COALESCE(e.category_id, '00000000-0000-0000-0000-000000000000'::uuid),
		       COALESCE(c.name, '')
		FROM expenses e
		LEFT JOIN expense_categories c ON e.category_id = c.id
		ORDER BY e.date ASC, e.id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	defer rows.Close()

	var out []*model.Expense

	for rows.Next() {
		var e model.Expense
		if err := rows.Scan(&e.ID, &e.Date, &e.Amount, &e.Description, &e.CategoryID, &e.CategoryName); err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}

		out = append(out, &e)
	}

	return out, rows.Err()
}

func (s *Store) loadBookings(ctx context.Context) ([]*model.Booking, error) {
	query := `
		SELECT b.id, b.date, b.start_time,
		       COALESCE(b.client_id, '00000000-0000-0000-0000-000000000000'::uuid),
		       COALESCE(cl.name, ''),
		       COALESCE(b.service_id, '00000000-0000-0000-0000-000000000000'::uuid),
		       COALESCE(sv.name, ''),
		       b.status, b.total_price, COALESCE(b.notes, ''),
		       COALESCE(b.payment_status, ''), COALESCE(b.location, '')
		FROM bookings b
		LEFT JOIN clients cl ON b.client_id = cl.id
		LEFT JOIN services sv ON b.service_id = sv.id
		ORDER BY b.date ASC, b.start_time ASC, b.id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*model.Booking)

	var out []*model.Booking

	for rows.Next() {
		var b model.Booking

		var status string

		if err := rows.Scan(
			&b.ID, &b.Date, &b.StartTime,
			&b.ClientID, &b.ClientName,
			&b.ServiceID, &b.ServiceName,
			&status, &b.TotalPrice, &b.Notes,
			&b.PaymentStatus, &b.Location,
		); err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}

		b.Status = model.BookingStatus(status)
		byID[b.ID] = &b
		out = append(out, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bookings: %w", err)
	}

	if err := s.attachBookingItems(ctx, byID); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Store) attachBookingItems(ctx context.Context, bookings map[uuid.UUID]*model.Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	query := `
		SELECT i.booking_id, i.service_id, COALESCE(i.service_name, ''), i.quantity, i.unit_price
		FROM booking_items i
		ORDER BY i.booking_id ASC, i.position ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("listing booking items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookingID uuid.UUID

		var item model.BookingItem

		if err := rows.Scan(&bookingID, &item.ServiceID, &item.ServiceName, &item.Quantity, &item.UnitPrice); err != nil {
			return fmt.Errorf("scanning booking item: %w", err)
		}

		if b, ok := bookings[bookingID]; ok {
			b.Items = append(b.Items, item)
		}
	}

	return rows.Err()
}

func (s *Store) loadPayments(ctx context.Context) ([]*model.Payment, error) {
	query := `
		SELECT id, booking_id, amount, COALESCE(method, ''), paid_at
		FROM payments
		ORDER BY paid_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var out []*model.Payment

	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}

		out = append(out, &p)
	}

	return out, rows.Err()
}

func (s *Store) loadSettings(ctx context.Context) (*model.Settings, error) {
	query := `
		SELECT COALESCE(business_name, ''), COALESCE(currency, ''), COALESCE(timezone, ''), calendar_sync
		FROM settings
		LIMIT 1
	`

	var st model.Settings

	err := s.db.QueryRowContext(ctx, query).Scan(&st.BusinessName, &st.Currency, &st.Timezone, &st.CalendarSync)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("loading settings: %w", err)
	}

	return &st, nil
}

func importLockKey(p *backup.Payload) int64 {
	h := fnv.New64a()
	h.Write([]byte(p.ExportedAt))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", p.Version)

	return int64(h.Sum64())
}

// Import persists a selective re-submission payload inside one database
// transaction. Identifier remapping happens here: every embedded snapshot
// id is resolved to a live id (for records already present) or replaced by
// a freshly assigned one (for records flagged authoritative). Any failure
// rolls the whole operation back.
func (s *Store) Import(ctx context.Context, p *backup.Payload) (*backup.Stats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(p)); err != nil {
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	imp := &importer{tx: tx, payload: p, stats: &backup.Stats{Written: make(map[backup.Class]int)}}

	if err := imp.run(ctx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}

	return imp.stats, nil
}

// importer carries the id remapping tables for one import transaction.
// Keys are the ids embedded in the snapshot; values are live ids.
type importer struct {
	tx      *sql.Tx
	payload *backup.Payload
	stats   *backup.Stats

	clientIDs  map[string]uuid.UUID
	serviceIDs map[string]uuid.UUID
	bookingIDs map[string]uuid.UUID
}

func (im *importer) run(ctx context.Context) error {
	if err := im.importClients(ctx); err != nil {
		return err
	}

	if err := im.importServices(ctx); err != nil {
		return err
	}

	categoryIDs, err := im.importCategories(ctx)
	if err != nil {
		return err
	}

	if err := im.importExpenses(ctx, categoryIDs); err != nil {
		return err
	}

	if err := im.importBookings(ctx); err != nil {
		return err
	}

	if err := im.importPayments(ctx); err != nil {
		return err
	}

	return im.importSettings(ctx)
}

// importClients walks the full transmitted client sequence. Records flagged
// authoritative are inserted; the rest are only resolved against the live
// table so later bookings can remap their references.
func (im *importer) importClients(ctx context.Context) error {
	flagged := indexSet(im.payload.ImportFlags.Clients)
	im.clientIDs = make(map[string]uuid.UUID, len(im.payload.Data.Clients))

	for i, e := range im.payload.Data.Clients {
		if _, ok := flagged[i]; ok {
			var id uuid.UUID

			query := `
				INSERT INTO clients (name, phone, email, notes, created_at)
				VALUES ($1, $2, $3, $4, NOW())
				RETURNING id
			`
			if err := im.tx.QueryRowContext(ctx, query, e.Name, e.Phone, e.Email, e.Notes).Scan(&id); err != nil {
				return fmt.Errorf("inserting client %q: %w", e.Name, err)
			}

			if e.ID != "" {
				im.clientIDs[e.ID] = id
			}

			im.stats.Written[backup.ClassClient]++

			continue
		}

		id, err := im.resolveClient(ctx, e)
		if err != nil {
			return err
		}

		if id != uuid.Nil && e.ID != "" {
			im.clientIDs[e.ID] = id
		}
	}

	return nil
}

// resolveClient finds the live client a snapshot record corresponds to,
// using the same field heuristics as duplicate detection: name, digits-only
// phone or email.
func (im *importer) resolveClient(ctx context.Context, e backup.ClientEntry) (uuid.UUID, error) {
	query := `
		SELECT id FROM clients
		WHERE LOWER(TRIM(name)) = LOWER(TRIM($1))
		   OR ($2 <> '' AND regexp_replace(COALESCE(phone, ''), '\D', '', 'g') = $2)
		   OR ($3 <> '' AND LOWER(TRIM(email)) = LOWER(TRIM($3)))
		ORDER BY created_at ASC
		LIMIT 1
	`

	var id uuid.UUID

	err := im.tx.QueryRowContext(ctx, query, e.Name, digits(e.Phone), e.Email).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, nil
		}

		return uuid.Nil, fmt.Errorf("resolving client %q: %w", e.Name, err)
	}

	return id, nil
}

func (im *importer) importServices(ctx context.Context) error {
	flagged := indexSet(im.payload.ImportFlags.Services)
	im.serviceIDs = make(map[string]uuid.UUID, len(im.payload.Data.Services))

	for i, e := range im.payload.Data.Services {
		if _, ok := flagged[i]; ok {
			var id uuid.UUID

			query := `
				INSERT INTO services (name, price, duration)
				VALUES ($1, $2, $3)
				RETURNING id
			`
			if err := im.tx.QueryRowContext(ctx, query, e.Name, e.Price, e.Duration).Scan(&id); err != nil {
				return fmt.Errorf("inserting service %q: %w", e.Name, err)
			}

			if e.ID != "" {
				im.serviceIDs[e.ID] = id
			}

			im.stats.Written[backup.ClassService]++

			continue
		}

		id, err := im.resolveService(ctx, e.Name, e.Price)
		if err != nil {
			return err
		}

		if id != uuid.Nil && e.ID != "" {
			im.serviceIDs[e.ID] = id
		}
	}

	return nil
}

// resolveService prefers an exact name+price match, then falls back to the
// name alone.
func (im *importer) resolveService(ctx context.Context, name string, price int64) (uuid.UUID, error) {
	query := `
		SELECT id FROM services
		WHERE LOWER(TRIM(name)) = LOWER(TRIM($1))
		ORDER BY (price = $2) DESC, name ASC
		LIMIT 1
	`

	var id uuid.UUID

	err := im.tx.QueryRowContext(ctx, query, name, price).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, nil
		}

		return uuid.Nil, fmt.Errorf("resolving service %q: %w", name, err)
	}

	return id, nil
}

func (im *importer) importCategories(ctx context.Context) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(im.payload.Data.Categories))

	for _, e := range im.payload.Data.Categories {
		var id uuid.UUID

		query := `INSERT INTO expense_categories (name) VALUES ($1) RETURNING id`
		if err := im.tx.QueryRowContext(ctx, query, e.Name).Scan(&id); err != nil {
			return nil, fmt.Errorf("inserting expense category %q: %w", e.Name, err)
		}

		if e.ID != "" {
			ids[e.ID] = id
		}

		im.stats.Written[backup.ClassCategory]++
	}

	return ids, nil
}

func (im *importer) importExpenses(ctx context.Context, categoryIDs map[string]uuid.UUID) error {
	for _, e := range im.payload.Data.Expenses {
		categoryID, err := im.resolveCategory(ctx, e, categoryIDs)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO expenses (date, amount, description, category_id)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := im.tx.ExecContext(ctx, query, e.Date, e.Amount, e.Description, categoryID); err != nil {
			return fmt.Errorf("inserting expense %q: %w", e.Description, err)
		}

		im.stats.Written[backup.ClassExpense]++
	}

	return nil
}

func (im *importer) resolveCategory(ctx context.Context, e backup.ExpenseEntry, imported map[string]uuid.UUID) (*uuid.UUID, error) {
	if id, ok := imported[e.CategoryID]; ok {
		return &id, nil
	}

	if e.CategoryName == "" {
		return nil, nil
	}

	query := `SELECT id FROM expense_categories WHERE LOWER(TRIM(name)) = LOWER(TRIM($1)) LIMIT 1`

	var id uuid.UUID

	err := im.tx.QueryRowContext(ctx, query, e.CategoryName).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("resolving expense category %q: %w", e.CategoryName, err)
	}

	return &id, nil
}

func (im *importer) importBookings(ctx context.Context) error {
	im.bookingIDs = make(map[string]uuid.UUID, len(im.payload.Data.Bookings))

	for _, e := range im.payload.Data.Bookings {
		clientID, err := im.bookingClientID(ctx, e)
		if err != nil {
			return err
		}

		serviceID, err := im.bookingServiceID(ctx, e.ServiceID, e.ServiceName, e.TotalPrice)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO bookings (date, start_time, client_id, service_id, status, total_price, notes, payment_status, location)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''))
			RETURNING id
		`

		var id uuid.UUID

		err = im.tx.QueryRowContext(ctx, query,
			e.Date, e.StartTime, clientID, serviceID,
			e.Status, e.TotalPrice, e.Notes, e.PaymentStatus, e.Location,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("inserting booking for %q on %s: %w", e.ClientName, e.Date, err)
		}

		if e.ID != "" {
			im.bookingIDs[e.ID] = id
		}

		if err := im.importBookingItems(ctx, id, e.Items); err != nil {
			return err
		}

		im.stats.Written[backup.ClassBooking]++
	}

	return nil
}

func (im *importer) bookingClientID(ctx context.Context, e backup.BookingEntry) (*uuid.UUID, error) {
	if id, ok := im.clientIDs[e.ClientID]; ok {
		return &id, nil
	}

	if e.ClientName == "" {
		return nil, nil
	}

	query := `SELECT id FROM clients WHERE LOWER(TRIM(name)) = LOWER(TRIM($1)) LIMIT 1`

	var id uuid.UUID

	err := im.tx.QueryRowContext(ctx, query, e.ClientName).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("resolving booking client %q: %w", e.ClientName, err)
	}

	return &id, nil
}

func (im *importer) bookingServiceID(ctx context.Context, snapID, name string, price int64) (*uuid.UUID, error) {
	if id, ok := im.serviceIDs[snapID]; ok {
		return &id, nil
	}

	if name == "" {
		return nil, nil
	}

	id, err := im.resolveService(ctx, name, price)
	if err != nil {
		return nil, err
	}

	if id == uuid.Nil {
		return nil, nil
	}

	return &id, nil
}

func (im *importer) importBookingItems(ctx context.Context, bookingID uuid.UUID, items []backup.BookingItemEntry) error {
	for pos, it := range items {
		serviceID, err := im.bookingServiceID(ctx, it.ServiceID, it.ServiceName, it.UnitPrice)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO booking_items (booking_id, service_id, service_name, quantity, unit_price, position)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := im.tx.ExecContext(ctx, query, bookingID, serviceID, it.ServiceName, it.Quantity, it.UnitPrice, pos); err != nil {
			return fmt.Errorf("inserting booking item %q: %w", it.ServiceName, err)
		}
	}

	return nil
}

func (im *importer) importPayments(ctx context.Context) error {
	for _, e := range im.payload.Data.Payments {
		bookingID, ok := im.bookingIDs[e.BookingID]
		if !ok {
			// The payload only carries payments of selected bookings, so a
			// miss means the snapshot's internal reference was broken.
			continue
		}

		paidAt := e.PaidAt
		if paidAt == "" {
			paidAt = time.Now().UTC().Format(time.RFC3339)
		}

		query := `
			INSERT INTO payments (booking_id, amount, method, paid_at)
			VALUES ($1, $2, NULLIF($3, ''), $4)
		`
		if _, err := im.tx.ExecContext(ctx, query, bookingID, e.Amount, e.Method, paidAt); err != nil {
			return fmt.Errorf("inserting payment for booking %s: %w", e.BookingID, err)
		}

		im.stats.Written[backup.ClassPayment]++
	}

	return nil
}

func (im *importer) importSettings(ctx context.Context) error {
	if !im.payload.ImportFlags.Settings || im.payload.Data.Settings == nil {
		return nil
	}

	st := im.payload.Data.Settings

	query := `
		INSERT INTO settings (id, business_name, currency, timezone, calendar_sync)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			business_name = EXCLUDED.business_name,
			currency = EXCLUDED.currency,
			timezone = EXCLUDED.timezone,
			calendar_sync = EXCLUDED.calendar_sync
	`
	if _, err := im.tx.ExecContext(ctx, query, st.BusinessName, st.Currency, st.Timezone, st.CalendarSync); err != nil {
		return fmt.Errorf("upserting settings: %w", err)
	}

	im.stats.SettingsApplied = true

	return nil
}

func indexSet(indices []int) map[int]struct{} {
	set := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		set[i] = struct{}{}
	}

	return set
}

func digits(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}

	return string(out)
}
