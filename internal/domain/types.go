package domain

import (
	"time"

	"github.com/google/uuid"
)

type CourtType string

const (
	CourtIndoor  CourtType = "indoor"
	CourtOutdoor CourtType = "outdoor"
)

type EquipmentCategory string

const (
	CategoryRacket         EquipmentCategory = "racket"
	CategoryShoes          EquipmentCategory = "shoes"
	CategoryBall           EquipmentCategory = "ball"
	CategoryProtectiveGear EquipmentCategory = "protective_gear"
	CategoryOther          EquipmentCategory = "other"
)

type RuleType string

const (
	RulePeakHour      RuleType = "peak_hour"
	RuleWeekend       RuleType = "weekend"
	RuleIndoorPremium RuleType = "indoor_premium"
	RuleSeasonal      RuleType = "seasonal"
	RuleCustom        RuleType = "custom"
)

func (t RuleType) Valid() bool {
	switch t {
	case RulePeakHour, RuleWeekend, RuleIndoorPremium, RuleSeasonal, RuleCustom:
		return true
	}
	return false
}

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	// BookingPending is reserved for short-lived holds. Nothing creates it yet,
	// but it occupies resources like a confirmed booking.
	BookingPending   BookingStatus = "pending"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// OccupyingStatuses lists the statuses that block a resource for their interval.
var OccupyingStatuses = []BookingStatus{BookingConfirmed, BookingPending}

func (s BookingStatus) Occupies() bool {
	return s == BookingConfirmed || s == BookingPending
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Principal is the authenticated caller as issued by the auth collaborator.
type Principal struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

type Court struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Type             CourtType `json:"type"`
	Sport            string    `json:"sport"`
	BasePricePerHour float64   `json:"base_price_per_hour"`
	IsActive         bool      `json:"is_active"`
	Capacity         int       `json:"capacity"`
	Description      string    `json:"description"`
	Amenities        []string  `json:"amenities"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Equipment struct {
	ID                uuid.UUID         `json:"id"`
	Name              string            `json:"name"`
	Category          EquipmentCategory `json:"category"`
	PricePerHour      float64           `json:"price_per_hour"`
	TotalQuantity     int               `json:"total_quantity"`
	AvailableQuantity int               `json:"available_quantity"`
	IsActive          bool              `json:"is_active"`
	Description       string            `json:"description"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Window is one weekly availability slot of a coach, "HH:MM" local to the facility.
type Window struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type Coach struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	PricePerHour   float64   `json:"price_per_hour"`
	IsActive       bool      `json:"is_active"`
	Availability   []Window  `json:"availability"`
	Bio            string    `json:"bio"`
	Experience     int       `json:"experience"`
	Rating         float64   `json:"rating"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type TimeRange struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// DateRange bounds are calendar dates ("2006-01-02"), both inclusive.
type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// RuleConditions are facets of a pricing rule. An empty facet places no restriction.
type RuleConditions struct {
	CourtTypes []CourtType `json:"court_types"`
	DaysOfWeek []int       `json:"days_of_week"`
	TimeRanges []TimeRange `json:"time_ranges"`
	DateRanges []DateRange `json:"date_ranges"`
}

type PricingRule struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	RuleType    RuleType       `json:"rule_type"`
	Multiplier  float64        `json:"multiplier"`
	Conditions  RuleConditions `json:"applicable_conditions"`
	Priority    int            `json:"priority"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type EquipmentRequest struct {
	EquipmentID uuid.UUID `json:"equipment_id"`
	Quantity    int       `json:"quantity"`
}

// BookingEquipment is the equipment line stored on a booking, priced at booking time.
type BookingEquipment struct {
	EquipmentID  uuid.UUID `json:"equipment_id"`
	Quantity     int       `json:"quantity"`
	PricePerHour float64   `json:"price_per_hour"`
}

type BookingCoach struct {
	CoachID      *uuid.UUID `json:"coach_id"`
	PricePerHour float64    `json:"price_per_hour"`
}

type AppliedRule struct {
	Name        string  `json:"name"`
	Multiplier  float64 `json:"multiplier"`
	Description string  `json:"description"`
}

type Pricing struct {
	CourtBasePrice  float64       `json:"court_base_price"`
	CourtMultiplier float64       `json:"court_multiplier"`
	CourtPrice      float64       `json:"court_price"`
	EquipmentPrice  float64       `json:"equipment_price"`
	CoachPrice      float64       `json:"coach_price"`
	Subtotal        float64       `json:"subtotal"`
	Tax             float64       `json:"tax"`
	TotalPrice      float64       `json:"total_price"`
	AppliedRules    []AppliedRule `json:"applied_rules"`
}

type Booking struct {
	ID            uuid.UUID          `json:"id"`
	UserID        string             `json:"user_id"`
	CourtID       uuid.UUID          `json:"court_id"`
	StartTime     time.Time          `json:"start_time"`
	EndTime       time.Time          `json:"end_time"`
	Equipment     []BookingEquipment `json:"equipment"`
	Coach         BookingCoach       `json:"coach"`
	Pricing       Pricing            `json:"pricing"`
	Status        BookingStatus      `json:"status"`
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	CustomerPhone string             `json:"customer_phone"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

// QuantityOf returns how many units of the equipment item the booking holds.
func (b *Booking) QuantityOf(equipmentID uuid.UUID) int {
	n := 0
	for _, e := range b.Equipment {
		if e.EquipmentID == equipmentID {
			n += e.Quantity
		}
	}
	return n
}

func (b *Booking) UsesCoach(coachID uuid.UUID) bool {
	return b.Coach.CoachID != nil && *b.Coach.CoachID == coachID
}

// BookingDetails is a booking joined with the resources it references.
type BookingDetails struct {
	Booking
	Court          *Court      `json:"court"`
	EquipmentItems []Equipment `json:"equipment_items"`
	CoachInfo      *Coach      `json:"coach_info,omitempty"`
}

// BusySlot is an occupied interval on a court schedule.
type BusySlot struct {
	BookingID uuid.UUID     `json:"booking_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Status    BookingStatus `json:"status"`
}
