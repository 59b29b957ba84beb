package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapline/happyhour-cli/internal/model"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []segment
	}{
		{"bare", "status", []segment{{name: "status", index: -1}}},
		{"dotted", "fine_print.blackouts", []segment{{name: "fine_print", index: -1}, {name: "blackouts", index: -1}}},
		{
			"indexed",
			"schedule.monday[0].start",
			[]segment{{name: "schedule", index: -1}, {name: "monday", index: 0}, {name: "start", index: -1}},
		},
		{
			"multi-digit index",
			"offers.drinks[12].item",
			[]segment{{name: "offers", index: -1}, {name: "drinks", index: 12}, {name: "item", index: -1}},
		},
		{"malformed bracket", "areas[x]", []segment{{name: "areas[x]", index: -1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parsePath(tc.in))
		})
	}
}

func winnerField(path string, v model.Value) model.FieldConfidence {
	return model.FieldConfidence{FieldPath: path, FieldValue: v, Confidence: 0.9}
}

func TestAssembleSchedule_Full(t *testing.T) {
	fields := []model.FieldConfidence{
		winnerField("status", model.StringValue("active")),
		winnerField("schedule.monday[0].start", model.StringValue("15:00")),
		winnerField("schedule.monday[0].end", model.StringValue("18:00")),
		winnerField("schedule.friday[0].start", model.StringValue("16:00")),
		winnerField("schedule.friday[0].end", model.StringValue("19:00")),
		winnerField("schedule.friday[1].start", model.StringValue("21:00")),
		winnerField("schedule.friday[1].end", model.StringValue("23:00")),
		winnerField("offers.drinks[0].item", model.StringValue("well cocktails")),
		winnerField("offers.drinks[0].category", model.StringValue("cocktail")),
		winnerField("offers.drinks[0].happy_hour_price", model.NumberValue(6)),
		winnerField("offers.drinks[0].regular_price", model.NumberValue(12)),
		winnerField("offers.food[0].item", model.StringValue("oysters")),
		winnerField("offers.food[0].discount_pct", model.NumberValue(50)),
		winnerField("areas[0]", model.StringValue("bar")),
		winnerField("areas[1]", model.StringValue("patio")),
		winnerField("dine_in_only", model.BoolValue(true)),
		winnerField("fine_print[0]", model.StringValue("not valid on game days")),
	}

	sched := assembleSchedule(fields)

	assert.Equal(t, model.StatusActive, sched.Status)

	// Weekly comes out in day order: monday then friday.
	require.Len(t, sched.Weekly, 2)
	assert.Equal(t, model.Monday, sched.Weekly[0].Day)
	assert.Equal(t, []model.TimeWindow{{Start: "15:00", End: "18:00"}}, sched.Weekly[0].Windows)
	assert.Equal(t, model.Friday, sched.Weekly[1].Day)
	require.Len(t, sched.Weekly[1].Windows, 2)
	assert.Equal(t, "21:00", sched.Weekly[1].Windows[1].Start)

	require.Len(t, sched.DrinkOffers, 1)
	assert.Equal(t, "well cocktails", sched.DrinkOffers[0].Item)
	assert.Equal(t, model.OfferCocktail, sched.DrinkOffers[0].Category)
	require.NotNil(t, sched.DrinkOffers[0].HappyHourPrice)
	assert.Equal(t, 6.0, *sched.DrinkOffers[0].HappyHourPrice)

	require.Len(t, sched.FoodOffers, 1)
	require.NotNil(t, sched.FoodOffers[0].DiscountPct)
	assert.Equal(t, 50, *sched.FoodOffers[0].DiscountPct)

	assert.Equal(t, []string{"bar", "patio"}, sched.Areas)
	assert.Equal(t, []string{"not valid on game days"}, sched.FinePrint)
	assert.True(t, sched.DineInOnly)
}

func TestAssembleSchedule_ListAreas(t *testing.T) {
	fields := []model.FieldConfidence{
		winnerField("areas_applicable", model.ListValue(
			model.StringValue("bar"), model.StringValue("patio"),
		)),
	}
	sched := assembleSchedule(fields)
	assert.Equal(t, []string{"bar", "patio"}, sched.Areas)
}

func TestAssembleSchedule_DineInOnlyString(t *testing.T) {
	fields := []model.FieldConfidence{
		winnerField("dine_in_only", model.StringValue("true")),
	}
	assert.True(t, assembleSchedule(fields).DineInOnly)
}

func TestAssembleSchedule_IgnoresUnknownPaths(t *testing.T) {
	fields := []model.FieldConfidence{
		winnerField("name", model.StringValue("The Waterfront")),
		winnerField("schedule.someday[0].start", model.StringValue("15:00")),
		winnerField("offers.desserts[0].item", model.StringValue("cake")),
	}
	sched := assembleSchedule(fields)
	assert.Equal(t, model.StatusUnknown, sched.Status)
	assert.Empty(t, sched.Weekly)
	assert.Empty(t, sched.DrinkOffers)
	assert.Empty(t, sched.FoodOffers)
}

func TestAssembleSchedule_DefaultsUnknownStatus(t *testing.T) {
	sched := assembleSchedule(nil)
	assert.Equal(t, model.StatusUnknown, sched.Status)
}
