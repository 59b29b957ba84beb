package consensus

import (
	"strconv"
	"strings"

	"github.com/tapline/happyhour-cli/internal/model"
)

// segment is one step of a field path: a name plus an optional list index,
// e.g. "monday[0]" parses to {name: "monday", index: 0}.
type segment struct {
	name  string
	index int // -1 when unindexed
}

// parsePath splits a dot/bracket field path into segments. Malformed
// brackets degrade to an unindexed segment rather than failing: a claim
// with an odd path still resolved, it just won't land in the schedule.
func parsePath(path string) []segment {
	parts := strings.Split(path, ".")
	segs := make([]segment, 0, len(parts))
	for _, part := range parts {
		seg := segment{name: part, index: -1}
		if open := strings.IndexByte(part, '['); open >= 0 && strings.HasSuffix(part, "]") {
			if idx, err := strconv.Atoi(part[open+1 : len(part)-1]); err == nil && idx >= 0 {
				seg.name = part[:open]
				seg.index = idx
			}
		}
		segs = append(segs, seg)
	}
	return segs
}

// assembleSchedule maps winning field values back onto the structured
// happy-hour record. Unknown paths are ignored; they still count toward
// field confidences, they just have no structured slot.
func assembleSchedule(fields []model.FieldConfidence) model.Schedule {
	sched := model.Schedule{Status: model.StatusUnknown}
	windows := make(map[model.Day][]model.TimeWindow)
	offers := map[string][]model.Offer{"drinks": nil, "food": nil}

	for _, fc := range fields {
		segs := parsePath(fc.FieldPath)
		switch segs[0].name {
		case "status":
			if s, ok := fc.FieldValue.AsString(); ok {
				sched.Status = model.ParseStatus(s)
			}
		case "schedule":
			applyScheduleField(windows, segs, fc.FieldValue)
		case "offers":
			applyOfferField(offers, segs, fc.FieldValue)
		case "areas", "areas_applicable":
			sched.Areas = appendStrings(sched.Areas, fc.FieldValue)
		case "fine_print":
			sched.FinePrint = appendStrings(sched.FinePrint, fc.FieldValue)
		case "dine_in_only":
			if b, ok := fc.FieldValue.AsBool(); ok {
				sched.DineInOnly = b
			} else if s, ok := fc.FieldValue.AsString(); ok {
				sched.DineInOnly = s == "true"
			}
		}
	}

	for _, day := range model.WeekDays {
		if w, ok := windows[day]; ok {
			sched.Weekly = append(sched.Weekly, model.DaySchedule{Day: day, Windows: w})
		}
	}
	sched.DrinkOffers = offers["drinks"]
	sched.FoodOffers = offers["food"]
	return sched
}

// applyScheduleField handles schedule.<day>[i].(start|end|notes) paths.
func applyScheduleField(windows map[model.Day][]model.TimeWindow, segs []segment, v model.Value) {
	if len(segs) < 3 {
		return
	}
	day := model.Day(segs[1].name)
	if !validDay(day) {
		return
	}
	idx := segs[1].index
	if idx < 0 {
		idx = 0
	}
	w := ensureWindows(windows[day], idx)

	s, ok := v.AsString()
	if !ok {
		return
	}
	switch segs[2].name {
	case "start":
		w[idx].Start = s
	case "end":
		w[idx].End = s
	case "notes":
		w[idx].Notes = s
	}
	windows[day] = w
}

// applyOfferField handles offers.(drinks|food)[i].<attr> paths.
func applyOfferField(offers map[string][]model.Offer, segs []segment, v model.Value) {
	if len(segs) < 3 {
		return
	}
	kind := segs[1].name
	if kind != "drinks" && kind != "food" {
		return
	}
	idx := segs[1].index
	if idx < 0 {
		idx = 0
	}
	list := ensureOffers(offers[kind], idx)

	switch segs[2].name {
	case "item", "item_name":
		if s, ok := v.AsString(); ok {
			list[idx].Item = s
		}
	case "category":
		if s, ok := v.AsString(); ok {
			list[idx].Category = model.OfferCategory(s)
		}
	case "happy_hour_price":
		if n, ok := v.AsNumber(); ok {
			list[idx].HappyHourPrice = &n
		}
	case "regular_price":
		if n, ok := v.AsNumber(); ok {
			list[idx].RegularPrice = &n
		}
	case "discount_pct":
		if n, ok := v.AsNumber(); ok {
			pct := int(n)
			list[idx].DiscountPct = &pct
		}
	case "description":
		if s, ok := v.AsString(); ok {
			list[idx].Description = s
		}
	case "restrictions":
		list[idx].Restrictions = appendStrings(list[idx].Restrictions, v)
	}
	offers[kind] = list
}

// appendStrings appends a string value, or every string element of a list
// value, to dst.
func appendStrings(dst []string, v model.Value) []string {
	if s, ok := v.AsString(); ok {
		return append(dst, s)
	}
	if list, ok := v.AsList(); ok {
		for _, item := range list {
			if s, ok := item.AsString(); ok {
				dst = append(dst, s)
			}
		}
	}
	return dst
}

func validDay(d model.Day) bool {
	for _, day := range model.WeekDays {
		if d == day {
			return true
		}
	}
	return false
}

func ensureWindows(w []model.TimeWindow, idx int) []model.TimeWindow {
	for len(w) <= idx {
		w = append(w, model.TimeWindow{})
	}
	return w
}

func ensureOffers(o []model.Offer, idx int) []model.Offer {
	for len(o) <= idx {
		o = append(o, model.Offer{})
	}
	return o
}
