package booking

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
)

const dateLayout = "2006-01-02"

// SlotOption is a slot rendered for the agent to read out.
type SlotOption struct {
	Date        string `json:"date"`
	DayName     string `json:"dayName"`
	Time        string `json:"time"`
	VoiceFormat string `json:"voiceFormat"`
}

type ServiceOption struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       contractx.Money `json:"price"`
	Duration    int             `json:"duration"`
	VoiceFormat string          `json:"voiceFormat"`
}

// SpeakSlot renders e.g. "Thursday, January 22nd at 10:00 AM". Dates that do
// not parse fall back to the raw date string.
func SpeakSlot(s contractx.Slot) string {
	day, err := time.Parse(dateLayout, s.Date)
	if err != nil {
		return fmt.Sprintf("%s, %s at %s", s.DayName, s.Date, s.Time)
	}
	name := s.DayName
	if name == "" {
		name = day.Weekday().String()
	}
	return fmt.Sprintf("%s, %s %s at %s", name, day.Month(), humanize.Ordinal(day.Day()), s.Time)
}

func SpeakService(s contractx.Service) string {
	return s.Name + " for " + s.Price.Spoken()
}

func slotOptions(slots []contractx.Slot) []SlotOption {
	out := make([]SlotOption, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotOption{
			Date:        s.Date,
			DayName:     s.DayName,
			Time:        s.Time,
			VoiceFormat: SpeakSlot(s),
		})
	}
	return out
}

func serviceOptions(services []contractx.Service) []ServiceOption {
	out := make([]ServiceOption, 0, len(services))
	for _, s := range services {
		out = append(out, ServiceOption{
			ID:          s.ID,
			Name:        s.Name,
			Price:       s.Price,
			Duration:    s.DurationMinutes,
			VoiceFormat: SpeakService(s),
		})
	}
	return out
}
