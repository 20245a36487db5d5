// Package model defines the persisted business entities of reserva.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Client is a person the business takes bookings from.
type Client struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	Email     string
	Notes     string
	CreatedAt time.Time
}

// Service is something the business offers at a fixed price.
type Service struct {
	ID       uuid.UUID
	Name     string
	Price    int64 // Price in cents
	Duration int   // Duration in minutes
}

// ExpenseCategory groups expenses for reporting.
type ExpenseCategory struct {
	ID   uuid.UUID
	Name string
}

// Expense is a cost booked against a category.
type Expense struct {
	ID           uuid.UUID
	Date         time.Time
	Amount       int64 // Amount in cents
	Description  string
	CategoryID   uuid.UUID
	CategoryName string
}

// BookingStatus represents the lifecycle state of a booking.
type BookingStatus string

const (
	BookingScheduled BookingStatus = "scheduled"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingNoShow    BookingStatus = "no_show"
)

// Booking is an appointment for a client on a given date and time.
// Items carries the individual service line items; ServiceID/ServiceName
// describe the primary service for single-item bookings.
type Booking struct {
	ID            uuid.UUID
	Date          time.Time
	StartTime     string // "15:04"
	ClientID      uuid.UUID
	ClientName    string
	ServiceID     uuid.UUID
	ServiceName   string
	Status        BookingStatus
	TotalPrice    int64 // Total in cents
	Notes         string
	Items         []BookingItem
	PaymentStatus string // optional, empty when unset
	Location      string // optional, empty when unset
}

// BookingItem is one service line inside a booking.
type BookingItem struct {
	ServiceID   *uuid.UUID
	ServiceName string
	Quantity    int
	UnitPrice   int64 // Unit price in cents
}

// Payment records money received for a booking.
type Payment struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	Amount    int64 // Amount in cents
	Method    string
	PaidAt    time.Time
}

// Settings is the singleton business configuration record.
type Settings struct {
	BusinessName string
	Currency     string
	Timezone     string
	CalendarSync bool
}

// Dataset is the complete live state for a business: the six entity
// sequences plus the settings singleton.
type Dataset struct {
	Clients    []*Client
	Services   []*Service
	Categories []*ExpenseCategory
	Expenses   []*Expense
	Bookings   []*Booking
	Payments   []*Payment
	Settings   *Settings
}
