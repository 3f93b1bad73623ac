package store

import (
	"time"

	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
)

const (
	slotHorizonDays = 7
	slotDateLayout  = "2006-01-02"
)

var slotTimes = []string{"9:00 AM", "10:00 AM", "11:00 AM", "2:00 PM", "3:00 PM", "4:00 PM"}

// GenerateSlots builds the bookable week after now. Sundays are closed and
// each open day alternates between the odd and even time columns.
func GenerateSlots(now time.Time) []contractx.Slot {
	slots := make([]contractx.Slot, 0, slotHorizonDays*len(slotTimes)/2)
	for offset := 1; offset <= slotHorizonDays; offset++ {
		day := now.AddDate(0, 0, offset)
		if day.Weekday() == time.Sunday {
			continue
		}
		for idx, t := range slotTimes {
			if idx%2 != offset%2 {
				continue
			}
			slots = append(slots, contractx.Slot{
				Date:      day.Format(slotDateLayout),
				DayName:   day.Weekday().String(),
				Time:      t,
				Available: true,
			})
		}
	}
	return slots
}
