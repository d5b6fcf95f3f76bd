package memory

import (
	"github.com/google/uuid"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
)

// Fixed ids shared with the SQL seed migration.
var (
	CourtIndoor1  = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000c01")
	CourtIndoor2  = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000c02")
	CourtOutdoor1 = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000c03")
	CourtOutdoor2 = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000c04")

	EquipBadmintonRacket = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000e01")
	EquipTennisRacket    = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000e02")
	EquipSportsShoes     = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000e03")
	EquipBasketball      = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000e04")

	CoachJohn  = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000a01")
	CoachSarah = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000a02")
	CoachMike  = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000a03")

	RulePeakHours = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000f01")
	RuleWeekend   = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000f02")
	RuleIndoor    = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000f03")
	RuleEarlyBird = uuid.MustParse("0b5c2a4e-1d1f-4c61-9d3a-000000000f04")
)

type Fixtures struct {
	Courts    []domain.Court
	Equipment []domain.Equipment
	Coaches   []domain.Coach
	Rules     []domain.PricingRule
}

func weekdays(days []int, start, end string) []domain.Window {
	out := make([]domain.Window, 0, len(days))
	for _, d := range days {
		out = append(out, domain.Window{DayOfWeek: d, StartTime: start, EndTime: end})
	}
	return out
}

// Seed returns the facility's reference data. Coach windows are in facility
// local time.
func Seed() Fixtures {
	return Fixtures{
		Courts: []domain.Court{
			{
				ID: CourtIndoor1, Name: "Indoor Court 1", Type: domain.CourtIndoor, Sport: "Badminton",
				BasePricePerHour: 50, IsActive: true, Capacity: 4,
				Description: "Premium indoor badminton court with wooden flooring",
				Amenities:   []string{"Air Conditioning", "LED Lighting", "Spectator Seating"},
			},
			{
				ID: CourtIndoor2, Name: "Indoor Court 2", Type: domain.CourtIndoor, Sport: "Tennis",
				BasePricePerHour: 60, IsActive: true, Capacity: 4,
				Description: "Professional indoor tennis court",
				Amenities:   []string{"Air Conditioning", "High Ceiling", "Professional Net"},
			},
			{
				ID: CourtOutdoor1, Name: "Outdoor Court 1", Type: domain.CourtOutdoor, Sport: "Basketball",
				BasePricePerHour: 30, IsActive: true, Capacity: 10,
				Description: "Full-size outdoor basketball court",
				Amenities:   []string{"Floodlights", "Scoreboard"},
			},
			{
				ID: CourtOutdoor2, Name: "Outdoor Court 2", Type: domain.CourtOutdoor, Sport: "Tennis",
				BasePricePerHour: 35, IsActive: true, Capacity: 4,
				Description: "Outdoor tennis court with synthetic grass",
				Amenities:   []string{"Floodlights", "Seating Area"},
			},
		},
		Equipment: []domain.Equipment{
			{
				ID: EquipBadmintonRacket, Name: "Badminton Racket", Category: domain.CategoryRacket,
				PricePerHour: 5, TotalQuantity: 10, AvailableQuantity: 10, IsActive: true,
				Description: "Professional badminton racket",
			},
			{
				ID: EquipTennisRacket, Name: "Tennis Racket", Category: domain.CategoryRacket,
				PricePerHour: 8, TotalQuantity: 8, AvailableQuantity: 8, IsActive: true,
				Description: "Professional tennis racket",
			},
			{
				ID: EquipSportsShoes, Name: "Sports Shoes", Category: domain.CategoryShoes,
				PricePerHour: 10, TotalQuantity: 15, AvailableQuantity: 15, IsActive: true,
				Description: "Non-marking sports shoes (various sizes available)",
			},
			{
				ID: EquipBasketball, Name: "Basketball", Category: domain.CategoryBall,
				PricePerHour: 3, TotalQuantity: 5, AvailableQuantity: 5, IsActive: true,
				Description: "Official size basketball",
			},
		},
		Coaches: []domain.Coach{
			{
				ID: CoachJohn, Name: "Coach John Smith", Specialization: "Tennis", PricePerHour: 40, IsActive: true,
				Availability: weekdays([]int{1, 2, 3, 4, 5}, "09:00", "17:00"),
				Bio:          "Former professional tennis player with 15 years coaching experience",
				Experience:   15, Rating: 4.8,
			},
			{
				ID: CoachSarah, Name: "Coach Sarah Johnson", Specialization: "Badminton", PricePerHour: 35, IsActive: true,
				Availability: append(
					weekdays([]int{1, 2, 3, 5}, "10:00", "18:00"),
					domain.Window{DayOfWeek: 6, StartTime: "08:00", EndTime: "14:00"},
				),
				Bio:        "National badminton champion and certified coach",
				Experience: 10, Rating: 4.9,
			},
			{
				ID: CoachMike, Name: "Coach Mike Davis", Specialization: "Basketball", PricePerHour: 45, IsActive: true,
				Availability: append(
					weekdays([]int{2, 4}, "14:00", "20:00"),
					domain.Window{DayOfWeek: 6, StartTime: "09:00", EndTime: "17:00"},
					domain.Window{DayOfWeek: 0, StartTime: "09:00", EndTime: "15:00"},
				),
				Bio:        "College basketball coach with expertise in skill development",
				Experience: 12, Rating: 4.7,
			},
		},
		Rules: []domain.PricingRule{
			{
				ID: RulePeakHours, Name: "Peak Hours Premium", RuleType: domain.RulePeakHour, Multiplier: 1.5,
				Description: "50% increase during peak hours (6 PM - 9 PM)",
				Conditions:  domain.RuleConditions{TimeRanges: []domain.TimeRange{{StartTime: "18:00", EndTime: "21:00"}}},
				Priority:    10, IsActive: true,
			},
			{
				ID: RuleEarlyBird, Name: "Early Bird Discount", RuleType: domain.RuleCustom, Multiplier: 0.85,
				Description: "15% discount for early morning bookings",
				Conditions:  domain.RuleConditions{TimeRanges: []domain.TimeRange{{StartTime: "06:00", EndTime: "09:00"}}},
				Priority:    8, IsActive: true,
			},
			{
				ID: RuleWeekend, Name: "Weekend Surcharge", RuleType: domain.RuleWeekend, Multiplier: 1.3,
				Description: "30% increase on weekends",
				Conditions:  domain.RuleConditions{DaysOfWeek: []int{0, 6}},
				Priority:    5, IsActive: true,
			},
			{
				ID: RuleIndoor, Name: "Indoor Court Premium", RuleType: domain.RuleIndoorPremium, Multiplier: 1.2,
				Description: "20% premium for indoor courts",
				Conditions:  domain.RuleConditions{CourtTypes: []domain.CourtType{domain.CourtIndoor}},
				Priority:    3, IsActive: true,
			},
		},
	}
}
