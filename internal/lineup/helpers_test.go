package lineup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/friendsincode/grimnir_lineup/internal/day"
	"github.com/friendsincode/grimnir_lineup/internal/rotation"
)

// atTimes resolves Params["At"] ("15:04") on the planned date in UTC.
type atTimes struct{}

func (atTimes) Validate(s Schedule) error {
	if s.Param("At") == "" {
		return errors.New("missing At")
	}
	return nil
}

func (atTimes) Calculate(_ context.Context, date string, s Schedule) (time.Time, error) {
	if s.Param("Fail") != "" {
		return time.Time{}, errors.New("oracle unavailable")
	}
	d, err := day.Parse(date)
	if err != nil {
		return time.Time{}, err
	}
	tod, err := time.Parse("15:04", s.Param("At"))
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(tod.Hour())*time.Hour + time.Duration(tod.Minute())*time.Minute), nil
}

// firstRotation always picks index offset mod size.
type firstRotation struct{}

func (firstRotation) Next(_ context.Context, _ string, _ rotation.Policy, size int, _ string, offset int) (int, error) {
	return offset % size, nil
}

type planMap map[string]*LineupPlan

func (m planMap) GetLineupPlan(_ context.Context, date string) (*LineupPlan, error) {
	return m[date], nil
}

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2024-05-01 "+s)
	if err != nil {
		panic(err)
	}
	return t
}

func media(name string, minutes float64) Media {
	return Media{Path: "/media/" + name + ".mp3", Duration: Seconds(minutes * 60)}
}

func static(hhmm string) Schedule {
	return Schedule{Method: "Static", Params: map[string]string{"At": hhmm}}
}

// boxPlan builds a plan box whose single program plays the given clip lengths.
func boxPlan(id string, start string, floating bool, clipMinutes ...float64) BoxPlan {
	show := &ShowPlan{}
	for i, m := range clipMinutes {
		show.Clips = append(show.Clips, ClipPlan{Media: media(fmt.Sprintf("%s-%d", id, i), m)})
	}
	priority := PriorityNormal
	if floating {
		priority = PriorityHigh
	}
	return BoxPlan{
		BoxID:      id,
		IsFloating: floating,
		StartTime:  at(start),
		ProgramPlans: []ProgramPlan{{
			ProgramID: id + "-program",
			Priority:  priority,
			Show:      show,
		}},
	}
}
