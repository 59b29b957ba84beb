package model

// Status is the resolved happy-hour availability for a venue.
type Status string

const (
	StatusActive       Status = "active"
	StatusDiscontinued Status = "discontinued"
	StatusSeasonal     Status = "seasonal"
	StatusUnknown      Status = "unknown"
	StatusNone         Status = "no_happy_hour"
)

// ParseStatus maps a resolved field value onto the Status enum, falling back
// to unknown for anything unrecognized.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusActive, StatusDiscontinued, StatusSeasonal, StatusNone:
		return Status(s)
	}
	return StatusUnknown
}

// Day of the week, lowercase for stable field paths.
type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

// WeekDays lists the days in schedule order.
var WeekDays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// OfferCategory classifies a drink or food special.
type OfferCategory string

const (
	OfferBeer      OfferCategory = "beer"
	OfferWine      OfferCategory = "wine"
	OfferCocktail  OfferCategory = "cocktail"
	OfferSpirits   OfferCategory = "spirits"
	OfferAppetizer OfferCategory = "food_appetizer"
	OfferMain      OfferCategory = "food_main"
	OfferDessert   OfferCategory = "food_dessert"
	OfferOther     OfferCategory = "other"
)

// TimeWindow is one happy-hour time range within a day. Start and End stay
// as extracted strings ("15:00"); the engine does no time parsing.
type TimeWindow struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// DaySchedule is the happy-hour windows for one day.
type DaySchedule struct {
	Day     Day          `json:"day"`
	Windows []TimeWindow `json:"windows,omitempty"`
}

// HasHappyHour reports whether the day has any time window.
func (d DaySchedule) HasHappyHour() bool { return len(d.Windows) > 0 }

// Offer is one happy-hour special.
type Offer struct {
	Category       OfferCategory `json:"category,omitempty"`
	Item           string        `json:"item,omitempty"`
	RegularPrice   *float64      `json:"regular_price,omitempty"`
	HappyHourPrice *float64      `json:"happy_hour_price,omitempty"`
	DiscountPct    *int          `json:"discount_pct,omitempty"`
	Description    string        `json:"description,omitempty"`
	Restrictions   []string      `json:"restrictions,omitempty"`
}

// Schedule is the fully assembled happy-hour record for a venue, built from
// winning field values.
type Schedule struct {
	Status      Status        `json:"status"`
	Weekly      []DaySchedule `json:"weekly,omitempty"`
	DrinkOffers []Offer       `json:"drink_offers,omitempty"`
	FoodOffers  []Offer       `json:"food_offers,omitempty"`
	Areas       []string      `json:"areas,omitempty"`
	FinePrint   []string      `json:"fine_print,omitempty"`
	DineInOnly  bool          `json:"dine_in_only,omitempty"`
}

// ActiveDays returns the days with at least one happy-hour window.
func (s Schedule) ActiveDays() []Day {
	var days []Day
	for _, d := range s.Weekly {
		if d.HasHappyHour() {
			days = append(days, d.Day)
		}
	}
	return days
}
