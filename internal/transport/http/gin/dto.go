package httpgin

import (
	"time"

	"github.com/google/uuid"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/availability"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/booking"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/pricing"
)

type EquipmentLineRequest struct {
	EquipmentID uuid.UUID `json:"equipment_id" binding:"required"`
	Quantity    int       `json:"quantity"`
}

// ResourcesRequest is the resource selection shared by availability checks,
// estimates and bookings.
type ResourcesRequest struct {
	CourtID   uuid.UUID              `json:"court_id" binding:"required"`
	StartTime time.Time              `json:"start_time" binding:"required"`
	EndTime   time.Time              `json:"end_time" binding:"required"`
	Equipment []EquipmentLineRequest `json:"equipment" binding:"omitempty,dive"`
	CoachID   *uuid.UUID             `json:"coach_id"`
}

func (r ResourcesRequest) equipment() []domain.EquipmentRequest {
	out := make([]domain.EquipmentRequest, 0, len(r.Equipment))
	for _, e := range r.Equipment {
		out = append(out, domain.EquipmentRequest{EquipmentID: e.EquipmentID, Quantity: e.Quantity})
	}
	return out
}

func (r ResourcesRequest) availabilityRequest() availability.Request {
	return availability.Request{
		CourtID:   r.CourtID,
		Start:     r.StartTime,
		End:       r.EndTime,
		Equipment: r.equipment(),
		CoachID:   r.CoachID,
	}
}

func (r ResourcesRequest) quoteRequest() pricing.Request {
	return pricing.Request{
		CourtID:   r.CourtID,
		Start:     r.StartTime,
		End:       r.EndTime,
		Equipment: r.equipment(),
		CoachID:   r.CoachID,
	}
}

type CreateBookingRequest struct {
	ResourcesRequest
	CustomerName  string `json:"customer_name" binding:"omitempty,max=200"`
	CustomerEmail string `json:"customer_email" binding:"omitempty,email"`
	CustomerPhone string `json:"customer_phone" binding:"omitempty,max=32"`
}

func (r CreateBookingRequest) input() booking.CreateInput {
	return booking.CreateInput{
		CourtID:       r.CourtID,
		Start:         r.StartTime,
		End:           r.EndTime,
		Equipment:     r.equipment(),
		CoachID:       r.CoachID,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		CustomerPhone: r.CustomerPhone,
	}
}

type TimeRangeRequest struct {
	StartTime string `json:"start_time" binding:"required,hhmm"`
	EndTime   string `json:"end_time" binding:"required,hhmm"`
}

type DateRangeRequest struct {
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"required,datetime=2006-01-02"`
}

type RuleConditionsRequest struct {
	CourtTypes []string           `json:"court_types" binding:"omitempty,dive,oneof=indoor outdoor"`
	DaysOfWeek []int              `json:"days_of_week" binding:"omitempty,dive,min=0,max=6"`
	TimeRanges []TimeRangeRequest `json:"time_ranges" binding:"omitempty,dive"`
	DateRanges []DateRangeRequest `json:"date_ranges" binding:"omitempty,dive"`
}

type PricingRuleRequest struct {
	Name        string                `json:"name" binding:"required,max=100"`
	Description string                `json:"description"`
	RuleType    string                `json:"rule_type" binding:"required,oneof=peak_hour weekend indoor_premium seasonal custom"`
	Conditions  RuleConditionsRequest `json:"applicable_conditions"`
	Priority    int                   `json:"priority"`
	// Multiplier defaults to 1 and IsActive to true when omitted.
	Multiplier *float64 `json:"multiplier" binding:"omitempty,gte=0"`
	IsActive   *bool    `json:"is_active"`
}

func (r PricingRuleRequest) rule() domain.PricingRule {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	multiplier := 1.0
	if r.Multiplier != nil {
		multiplier = *r.Multiplier
	}

	cond := domain.RuleConditions{DaysOfWeek: r.Conditions.DaysOfWeek}
	for _, ct := range r.Conditions.CourtTypes {
		cond.CourtTypes = append(cond.CourtTypes, domain.CourtType(ct))
	}
	for _, tr := range r.Conditions.TimeRanges {
		cond.TimeRanges = append(cond.TimeRanges, domain.TimeRange{StartTime: tr.StartTime, EndTime: tr.EndTime})
	}
	for _, dr := range r.Conditions.DateRanges {
		cond.DateRanges = append(cond.DateRanges, domain.DateRange{StartDate: dr.StartDate, EndDate: dr.EndDate})
	}

	return domain.PricingRule{
		Name:        r.Name,
		Description: r.Description,
		RuleType:    domain.RuleType(r.RuleType),
		Multiplier:  multiplier,
		Conditions:  cond,
		Priority:    r.Priority,
		IsActive:    active,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// UnavailableResponse is returned with 409 when a booking cannot be served.
type UnavailableResponse struct {
	Error        string               `json:"error"`
	Message      string               `json:"message"`
	Availability *availability.Result `json:"availability"`
}

type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func listOf[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}
