package backup

import (
	"github.com/jpcaldeira/reserva/internal/model"
)

// The reference graph between entity classes. Each edge resolves the
// snapshot records a referencing record depends on. Adding a new
// referencing class means adding one edge here; selection and deselection
// traversal are generic over the edge list.
//
//	Booking -> Client
//	Booking -> Service (top-level reference and per line item)
//	Expense -> ExpenseCategory
//	Payment -> Booking (implicit; payments are never selected directly)

type edge struct {
	from Class
	to   Class

	// requires resolves the indices in the target class that record idx of
	// the source class depends on. Resolution tries the embedded reference
	// first and falls back to structural matching, because embedded ids
	// can be broken or absent in older snapshots.
	requires func(r *resolver, idx int) []int
}

var edges = []edge{
	{
		from: ClassBooking,
		to:   ClassClient,
		requires: func(r *resolver, idx int) []int {
			b := r.data.Bookings[idx]
			if i := r.clientIndex(b.ClientID, b.ClientName); i >= 0 {
				return []int{i}
			}

			return nil
		},
	},
	{
		from: ClassBooking,
		to:   ClassService,
		requires: func(r *resolver, idx int) []int {
			b := r.data.Bookings[idx]

			var out []int

			seen := make(map[int]struct{})

			add := func(i int) {
				if i < 0 {
					return
				}
				if _, ok := seen[i]; ok {
					return
				}
				seen[i] = struct{}{}
				out = append(out, i)
			}

			add(r.serviceIndex(b.ServiceID, b.ServiceName, 0, false))

			for _, it := range b.Items {
				add(r.serviceIndex(it.ServiceID, it.ServiceName, it.UnitPrice, true))
			}

			return out
		},
	},
	{
		from: ClassExpense,
		to:   ClassCategory,
		requires: func(r *resolver, idx int) []int {
			e := r.data.Expenses[idx]
			if i := r.categoryIndex(e.CategoryID, e.CategoryName); i >= 0 {
				return []int{i}
			}

			return nil
		},
	},
}

// resolver walks the reference graph for one loaded snapshot.
type resolver struct {
	data *SnapshotData
	live *model.Dataset
	mask Mask
}

func newResolver(data *SnapshotData, live *model.Dataset, mask Mask) *resolver {
	return &resolver{data: data, live: live, mask: mask}
}

// requirements returns the snapshot records that must accompany a selection
// of ref: every referenced record that is not itself a duplicate. Records
// with a live equivalent resolve against the live dataset at import time
// and need no selection.
func (r *resolver) requirements(ref RecordRef) []RecordRef {
	var out []RecordRef

	for _, e := range edges {
		if e.from != ref.Class {
			continue
		}

		for _, i := range e.requires(r, ref.Index) {
			req := RecordRef{Class: e.to, Index: i}
			if r.mask.Duplicate(req) {
				continue
			}

			out = append(out, req)
		}
	}

	return out
}

// blockers returns the currently selected records that reference ref.
// A non-empty result forbids deselecting ref.
func (r *resolver) blockers(ref RecordRef, sel *Selection) []RecordRef {
	var out []RecordRef

	for _, e := range edges {
		if e.to != ref.Class {
			continue
		}

		for _, idx := range sel.Indices(e.from) {
			for _, i := range e.requires(r, idx) {
				if i == ref.Index {
					out = append(out, RecordRef{Class: e.from, Index: idx})
					break
				}
			}
		}
	}

	return out
}

// clientIndex finds a snapshot client by embedded id, falling back to a
// folded name match.
func (r *resolver) clientIndex(id, name string) int {
	if id != "" {
		for i, c := range r.data.Clients {
			if c.ID == id {
				return i
			}
		}
	}

	if n := fold(name); n != "" {
		for i, c := range r.data.Clients {
			if fold(c.Name) == n {
				return i
			}
		}
	}

	return -1
}

// serviceIndex finds a snapshot service by embedded id, then by name+price
// when a price is known (line items carry their own unit price), then by
// name alone.
func (r *resolver) serviceIndex(id, name string, price int64, havePrice bool) int {
	if id != "" {
		for i, s := range r.data.Services {
			if s.ID == id {
				return i
			}
		}
	}

	n := fold(name)
	if n == "" {
		return -1
	}

	if havePrice {
		for i, s := range r.data.Services {
			if fold(s.Name) == n && s.Price == price {
				return i
			}
		}
	}

	for i, s := range r.data.Services {
		if fold(s.Name) == n {
			return i
		}
	}

	return -1
}

func (r *resolver) categoryIndex(id, name string) int {
	if id != "" {
		for i, c := range r.data.Categories {
			if c.ID == id {
				return i
			}
		}
	}

	if n := fold(name); n != "" {
		for i, c := range r.data.Categories {
			if fold(c.Name) == n {
				return i
			}
		}
	}

	return -1
}

// bookingIndexByID finds a snapshot booking by its embedded id. Intra-
// snapshot ids are internally consistent even though they are not stable
// across the import boundary.
func (d *SnapshotData) bookingIndexByID(id string) int {
	if id == "" {
		return -1
	}

	for i, b := range d.Bookings {
		if b.ID == id {
			return i
		}
	}

	return -1
}
