package plugins

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
)

// Isocalendar summarises the contribution calendar over a half or full
// year.
type Isocalendar struct {
	src source.Source
	now func() time.Time
}

type IsocalendarData struct {
	Duration      string   `json:"duration"`
	Weeks         [][]Day  `json:"weeks"`
	Total         int      `json:"total"`
	Max           int      `json:"max"`
	Average       float64  `json:"average"`
	Streak        int      `json:"streak"`
	CurrentStreak int      `json:"current_streak"`
	Levels        []string `json:"levels"`
}

// Day is one calendar cell. Color is picked from the level palette relative
// to the busiest day of the window.
type Day struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Color string `json:"color"`
}

var isocalendarLevels = []string{"#EBEDF0", "#9BE9A8", "#40C463", "#30A14E", "#216E39"}

func (i *Isocalendar) Name() string { return "isocalendar" }

func (i *Isocalendar) Gather(ctx context.Context, in render.Input) (any, error) {
	if err := requireUser("isocalendar", in); err != nil {
		return nil, err
	}
	duration := options.String(in.Options, "duration", "half-year")
	var days int
	switch duration {
	case "half-year":
		days = 180
	case "full-year":
		days = 365
	default:
		return nil, fmt.Errorf("plugins: isocalendar: unsupported duration %q", duration)
	}

	to := i.now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -days)
	// Weeks start on Sunday.
	from = from.AddDate(0, 0, -int(from.Weekday()))

	calendar, err := i.src.Calendar(ctx, in.User, from, to)
	if err != nil {
		return nil, fmt.Errorf("plugins: isocalendar: %w", err)
	}

	data := IsocalendarData{Duration: duration, Weeks: [][]Day{}, Levels: isocalendarLevels}
	for _, day := range calendar {
		data.Total += day.Count
		data.Max = max(data.Max, day.Count)
	}

	streak := 0
	var week []Day
	for _, day := range calendar {
		week = append(week, Day{
			Date:  day.Date.Format(time.DateOnly),
			Count: day.Count,
			Color: isocalendarLevels[level(day.Count, data.Max)],
		})
		if len(week) == 7 {
			data.Weeks = append(data.Weeks, week)
			week = nil
		}
		if day.Count > 0 {
			streak++
			data.Streak = max(data.Streak, streak)
		} else {
			streak = 0
		}
	}
	if len(week) > 0 {
		data.Weeks = append(data.Weeks, week)
	}
	data.CurrentStreak = streak
	if len(calendar) > 0 {
		data.Average = float64(data.Total) / float64(len(calendar))
	}
	return data, nil
}

func level(count, busiest int) int {
	if count <= 0 || busiest <= 0 {
		return 0
	}
	top := len(isocalendarLevels) - 1
	return min(top, (count*top+busiest-1)/busiest)
}
