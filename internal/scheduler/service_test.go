package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_lineup/internal/lineup"
)

type fakeJobs struct {
	next      int
	scheduled map[string]Job
	cancelled []string
	failFor   string // canonical id whose registration fails
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{scheduled: make(map[string]Job)}
}

func (f *fakeJobs) Schedule(_ context.Context, _ time.Time, job Job) (string, error) {
	for i, a := range job.Args {
		if a == "--id" && job.Args[i+1] == f.failFor {
			return "", errors.New("at: cannot open lockfile")
		}
	}
	f.next++
	h := fmt.Sprint(f.next)
	f.scheduled[h] = job
	return h, nil
}

func (f *fakeJobs) Cancel(_ context.Context, handle string) error {
	f.cancelled = append(f.cancelled, handle)
	return nil
}

type memLineups map[string]*lineup.Lineup

func (m memLineups) GetScheduledLineup(_ context.Context, date string) (*lineup.Lineup, error) {
	return m[date], nil
}

func (m memLineups) SaveScheduledLineup(_ context.Context, l *lineup.Lineup) error {
	m[l.LineupID] = l
	return nil
}

var base = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func hm(h, m int) time.Time { return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func program(id string, priority lineup.Priority, start time.Time, preshow bool) lineup.Program {
	p := lineup.Program{ProgramID: id, Priority: priority}
	cursor := start
	if preshow {
		p.PreShow = &lineup.Show{StartTime: cursor, Clips: []lineup.Clip{{Media: lineup.Media{Path: "/m/" + id + "-pre.mp3"}, StartTime: cursor, Length: 5 * time.Minute}}}
		cursor = cursor.Add(5 * time.Minute)
	}
	p.Show = &lineup.Show{StartTime: cursor, Clips: []lineup.Clip{{Media: lineup.Media{Path: "/m/" + id + ".mp3"}, StartTime: cursor, Length: 20 * time.Minute}}}
	cursor = cursor.Add(20 * time.Minute)
	p.Metadata = lineup.ProgramMetadata{StartTime: start, EndTime: cursor, Duration: cursor.Sub(start)}
	return p
}

// sampleLineup: Morning at 06:00 with a normal program, Noon at 12:00 with an
// interrupting program that has a pre-show, Early at 01:00.
func sampleLineup(noon time.Time) *lineup.Lineup {
	morning := program("News", lineup.PriorityNormal, hm(6, 0), false)
	prayer := program("Prayer", lineup.PriorityHigh, noon, true)
	early := program("Night", lineup.PriorityNormal, hm(1, 0), false)
	return &lineup.Lineup{
		LineupID: "2024-05-01",
		Boxes: []lineup.Box{
			{BoxID: "Early", StartTime: hm(1, 0), EndTime: hm(1, 20), Programs: []lineup.Program{early}},
			{BoxID: "Morning", StartTime: hm(6, 0), EndTime: hm(6, 20), Programs: []lineup.Program{morning}},
			{BoxID: "Noon", StartTime: noon, EndTime: prayer.Metadata.EndTime, Programs: []lineup.Program{prayer}},
		},
	}
}

func newService(jobs JobScheduler, store LineupStore, dir string) *Service {
	return New(jobs, store, dir, time.UTC, zerolog.Nop(), WithClock(func() time.Time { return hm(3, 0) }))
}

func TestScheduleRegistersJobs(t *testing.T) {
	jobs := newFakeJobs()
	store := memLineups{}
	svc := newService(jobs, store, t.TempDir())

	l := sampleLineup(hm(12, 0))
	report, err := svc.Schedule(context.Background(), l)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	// Morning box, Noon preshow, Noon show. Early already passed; Noon has no
	// normal program so no box job.
	if report.Registered != 3 || report.Skipped != 1 {
		t.Fatalf("report = %+v, want 3 registered, 1 skipped", report)
	}
	if _, ok := l.Boxes[2].SchedulerMeta.Job(ActionBox); ok {
		t.Fatal("interrupting-only box got a box job")
	}
	pre, ok := l.Boxes[2].Programs[0].SchedulerMeta.Job(ActionPreShow)
	if !ok || !pre.At.Equal(hm(12, 0)) {
		t.Fatalf("preshow job = %+v, %v", pre, ok)
	}
	show, ok := l.Boxes[2].Programs[0].SchedulerMeta.Job(ActionShow)
	if !ok || !show.At.Equal(hm(12, 5)) {
		t.Fatalf("show job = %+v, %v", show, ok)
	}
	args := strings.Join(jobs.scheduled[show.Handle].Args, " ")
	if args != "play show --lineup 2024-05-01 --id 2024-05-01/Noon/Prayer --at 2024-05-01T12:05:00Z" {
		t.Fatalf("show args = %q", args)
	}
	if store["2024-05-01"] != l {
		t.Fatal("scheduled lineup not saved")
	}
}

func TestRescheduleUnchangedLineupCarriesEverything(t *testing.T) {
	jobs := newFakeJobs()
	svc := newService(jobs, memLineups{}, t.TempDir())
	ctx := context.Background()

	if _, err := svc.Schedule(ctx, sampleLineup(hm(12, 0))); err != nil {
		t.Fatalf("first schedule: %v", err)
	}
	registered := len(jobs.scheduled)

	again := sampleLineup(hm(12, 0))
	report, err := svc.Schedule(ctx, again)
	if err != nil {
		t.Fatalf("second schedule: %v", err)
	}
	if report.Registered != 0 || report.Cancelled != 0 || report.Carried != 3 {
		t.Fatalf("report = %+v, want only carried jobs", report)
	}
	if len(jobs.scheduled) != registered || len(jobs.cancelled) != 0 {
		t.Fatalf("scheduler saw %d registrations and %d cancellations", len(jobs.scheduled)-registered, len(jobs.cancelled))
	}
	if _, ok := again.Boxes[1].SchedulerMeta.Job(ActionBox); !ok {
		t.Fatal("carried job missing from new lineup")
	}
}

func TestRescheduleMovedProgramReplacesJobs(t *testing.T) {
	jobs := newFakeJobs()
	svc := newService(jobs, memLineups{}, t.TempDir())
	ctx := context.Background()

	first := sampleLineup(hm(12, 0))
	if _, err := svc.Schedule(ctx, first); err != nil {
		t.Fatalf("first schedule: %v", err)
	}
	oldPre, _ := first.Boxes[2].Programs[0].SchedulerMeta.Job(ActionPreShow)
	oldShow, _ := first.Boxes[2].Programs[0].SchedulerMeta.Job(ActionShow)

	report, err := svc.Schedule(ctx, sampleLineup(hm(12, 30)))
	if err != nil {
		t.Fatalf("second schedule: %v", err)
	}
	if report.Registered != 2 || report.Cancelled != 2 || report.Carried != 1 {
		t.Fatalf("report = %+v", report)
	}
	cancelled := strings.Join(jobs.cancelled, ",")
	if !strings.Contains(cancelled, oldPre.Handle) || !strings.Contains(cancelled, oldShow.Handle) {
		t.Fatalf("cancelled %v, want %s and %s", jobs.cancelled, oldPre.Handle, oldShow.Handle)
	}
}

func TestScheduleIsolatesFailures(t *testing.T) {
	jobs := newFakeJobs()
	jobs.failFor = "2024-05-01/Morning"
	svc := newService(jobs, memLineups{}, t.TempDir())

	report, err := svc.Schedule(context.Background(), sampleLineup(hm(12, 0)))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(report.Failed) != 1 || report.Failed[0] != "2024-05-01/Morning" {
		t.Fatalf("failed = %v", report.Failed)
	}
	if report.Registered != 2 {
		t.Fatalf("registered = %d, want 2", report.Registered)
	}
}

func TestScheduleNextRunOnce(t *testing.T) {
	jobs := newFakeJobs()
	dir := t.TempDir()
	svc := newService(jobs, memLineups{}, dir)
	ctx := context.Background()

	ok, err := svc.ScheduleNextRun(ctx)
	if err != nil || !ok {
		t.Fatalf("first next run = %v, %v", ok, err)
	}
	ok, err = svc.ScheduleNextRun(ctx)
	if err != nil || ok {
		t.Fatalf("second next run = %v, %v; want false, nil", ok, err)
	}
	if len(jobs.scheduled) != 1 {
		t.Fatalf("registered %d jobs, want 1", len(jobs.scheduled))
	}
	data, err := os.ReadFile(filepath.Join(dir, NextJobLockFile))
	if err != nil {
		t.Fatalf("read lock: %v", err)
	}
	if strings.TrimSpace(string(data)) != "2024-05-02" {
		t.Fatalf("lock = %q, want 2024-05-02", data)
	}
}
