package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_lineup/internal/lineup"
	"github.com/friendsincode/grimnir_lineup/internal/rotation"
	"github.com/friendsincode/grimnir_lineup/internal/runlock"
	"github.com/friendsincode/grimnir_lineup/internal/scheduler"
	"github.com/friendsincode/grimnir_lineup/internal/starttime"
)

type planMap map[string]*lineup.LineupPlan

func (m planMap) GetLineupPlan(_ context.Context, date string) (*lineup.LineupPlan, error) {
	return m[date], nil
}

func (m planMap) SaveLineupPlan(_ context.Context, p *lineup.LineupPlan) error {
	m[p.LineupID] = p
	return nil
}

type fakeScheduler struct {
	scheduled []*lineup.Lineup
	nextRuns  int
	err       error
}

func (f *fakeScheduler) Schedule(_ context.Context, l *lineup.Lineup) (scheduler.Report, error) {
	if f.err != nil {
		return scheduler.Report{}, f.err
	}
	f.scheduled = append(f.scheduled, l)
	return scheduler.Report{Registered: len(l.Boxes)}, nil
}

func (f *fakeScheduler) ScheduleNextRun(context.Context) (bool, error) {
	f.nextRuns++
	return true, nil
}

type busyLock struct{}

func (busyLock) Acquire(context.Context, string) (*runlock.Lock, error) {
	return nil, runlock.ErrLocked
}

func static(at string) lineup.Schedule {
	return lineup.Schedule{Method: "Static", Params: map[string]string{"At": at}}
}

// sampleTemplate: a 30 minute morning news box interrupted at 09:10 by a
// 2 minute floating box, and an evening replay of yesterday's news.
func sampleTemplate() *lineup.LineupTemplate {
	return &lineup.LineupTemplate{
		Version: lineup.FormatVersion,
		MediaGroups: []lineup.MediaGroup{
			{Name: "news", Media: []lineup.Media{{Path: "/m/news-1.mp3", Duration: 1800}, {Path: "/m/news-2.mp3", Duration: 1800}}},
			{Name: "adhan", Media: []lineup.Media{{Path: "/m/adhan.mp3", Duration: 120}}},
		},
		BoxTemplates: []lineup.BoxTemplate{
			{
				BoxID:    "Morning",
				Schedule: static("09:00"),
				ProgramTemplates: []lineup.ProgramTemplate{{
					ProgramID: "News", Title: "News",
					Show: &lineup.ShowTemplate{Clips: []lineup.ClipTemplate{{MediaGroup: "news"}}},
				}},
			},
			{
				BoxID:      "Noon",
				Schedule:   static("09:10"),
				IsFloating: true,
				ProgramTemplates: []lineup.ProgramTemplate{{
					ProgramID: "Adhan", Title: "Adhan",
					Show: &lineup.ShowTemplate{Clips: []lineup.ClipTemplate{{MediaGroup: "adhan"}}},
				}},
			},
			{
				BoxID:    "Evening",
				Schedule: static("20:00"),
				ProgramTemplates: []lineup.ProgramTemplate{{
					Type: lineup.ProgramReplay, ProgramID: "News",
					OriginalAiringOffset: 1, OriginalBoxID: "Morning",
				}},
			},
		},
	}
}

func newTestGenerator(plans planMap, rot rotation.Store, sched LiveScheduler, lock Locker) *Generator {
	times := starttime.NewRegistry()
	times.Register("Static", starttime.NewStatic(time.UTC))
	now := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)
	return New(Deps{
		StationID:         "raa1",
		LoadTemplate:      func() (*lineup.LineupTemplate, error) { return sampleTemplate(), nil },
		Times:             times,
		Plans:             plans,
		Rotation:          rot,
		Scheduler:         sched,
		Lock:              lock,
		ReferenceLocation: time.UTC,
		Now:               func() time.Time { return now },
	}, zerolog.Nop())
}

func noLock(t *testing.T) Locker {
	t.Helper()
	l, err := runlock.New(context.Background(), runlock.Config{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestRunPlansAheadCompilesAndSchedules(t *testing.T) {
	plans := planMap{}
	sched := &fakeScheduler{}
	g := newTestGenerator(plans, rotation.NewMemoryStore(nil), sched, noLock(t))

	report, err := g.Run(context.Background(), Options{PlanAheadDays: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.TargetDate != "2024-05-01" {
		t.Fatalf("target = %s", report.TargetDate)
	}
	for _, d := range []string{"2024-05-01", "2024-05-02", "2024-05-03"} {
		if plans[d] == nil {
			t.Fatalf("plan %s not stored", d)
		}
	}

	// Tomorrow's evening replays today's news.
	evening, ok := plans["2024-05-02"].Box("Evening")
	if !ok || len(evening.ProgramPlans) != 1 || !evening.ProgramPlans[0].IsReplay {
		t.Fatalf("evening plan = %+v", evening)
	}
	morning, _ := plans["2024-05-01"].Box("Morning")
	if got, want := evening.ProgramPlans[0].Show.Clips[0].Media.Path, morning.ProgramPlans[0].Show.Clips[0].Media.Path; got != want {
		t.Fatalf("replayed media = %s, want %s", got, want)
	}

	if len(report.Resolutions) != 1 || report.Resolutions[0].Action != lineup.ActionWrap {
		t.Fatalf("resolutions = %+v", report.Resolutions)
	}
	if len(sched.scheduled) != 1 || sched.scheduled[0] != report.Lineup {
		t.Fatal("compiled lineup was not scheduled")
	}
	if sched.nextRuns != 1 || !report.NextRunRegistered {
		t.Fatal("next run not registered")
	}
}

func TestRunTestModePersistsNothing(t *testing.T) {
	plans := planMap{}
	rot := rotation.NewMemoryStore(nil)
	sched := &fakeScheduler{}
	g := newTestGenerator(plans, rot, sched, noLock(t))

	report, err := g.Run(context.Background(), Options{PlanAheadDays: 3, Test: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Lineup == nil || len(report.Planned) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(plans) != 0 {
		t.Fatalf("test run stored %d plans", len(plans))
	}
	if _, found, _ := rot.LoadCounter(context.Background(), rotation.Key("Morning", "News", "ShowTemplate", 0)); found {
		t.Fatal("test run advanced rotation")
	}
	if len(sched.scheduled) != 0 || sched.nextRuns != 0 {
		t.Fatal("test run scheduled jobs")
	}
}

func TestRunNoPlanningNeedsStoredPlan(t *testing.T) {
	g := newTestGenerator(planMap{}, rotation.NewMemoryStore(nil), &fakeScheduler{}, noLock(t))
	if _, err := g.Run(context.Background(), Options{NoPlanning: true, TargetDate: "2024-05-01"}); err == nil {
		t.Fatal("expected error without stored plan")
	}
}

func TestRunStopsWhenLocked(t *testing.T) {
	plans := planMap{}
	g := newTestGenerator(plans, rotation.NewMemoryStore(nil), &fakeScheduler{}, busyLock{})
	if _, err := g.Run(context.Background(), Options{}); !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
	if len(plans) != 0 {
		t.Fatal("locked run planned")
	}
}

func TestRunRejectsInvalidTemplate(t *testing.T) {
	g := newTestGenerator(planMap{}, rotation.NewMemoryStore(nil), &fakeScheduler{}, noLock(t))
	g.deps.LoadTemplate = func() (*lineup.LineupTemplate, error) {
		tmpl := sampleTemplate()
		tmpl.BoxTemplates[0].Schedule = lineup.Schedule{Method: "Static"}
		return tmpl, nil
	}
	if _, err := g.Run(context.Background(), Options{}); !errors.Is(err, lineup.ErrInvalidTemplate) {
		t.Fatalf("err = %v, want ErrInvalidTemplate", err)
	}
}

func TestRunSurfacesScheduleFailure(t *testing.T) {
	g := newTestGenerator(planMap{}, rotation.NewMemoryStore(nil), &fakeScheduler{err: errors.New("db down")}, noLock(t))
	if _, err := g.Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected schedule error")
	}
}
