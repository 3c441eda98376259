package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseAtHandle(t *testing.T) {
	cases := []struct {
		out     string
		want    string
		wantErr bool
	}{
		{"job 12 at Wed May  1 06:00:00 2024\n", "12", false},
		{"warning: commands will be executed using /bin/sh\njob 7 at Thu May  2 00:00:00 2024\n", "7", false},
		{"Can't open /var/run/atd.pid to signal atd. No atd running?\n", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := parseAtHandle(tc.out)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("parseAtHandle(%q) = %q, %v; want %q, err %v", tc.out, got, err, tc.want, tc.wantErr)
		}
	}
}

func TestAtSchedulerInvokesAt(t *testing.T) {
	type call struct {
		stdin string
		argv  []string
	}
	var calls []call
	runner := func(_ context.Context, stdin, name string, args ...string) (string, error) {
		calls = append(calls, call{stdin: stdin, argv: append([]string{name}, args...)})
		if name == "at" {
			return "warning: commands will be executed using /bin/sh\njob 42 at Wed May  1 06:00:00 2024\n", nil
		}
		return "", nil
	}
	s := NewAtScheduler(zerolog.Nop(), WithRunner(runner), WithBinary("/usr/local/bin/grimnirlineup"))

	at := time.Date(2024, 5, 1, 6, 0, 30, 0, time.Local)
	handle, err := s.Schedule(context.Background(), at, PlayJob(ActionBox, "2024-05-01", "2024-05-01/Rob's Box", at))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if handle != "42" {
		t.Fatalf("handle = %q, want 42", handle)
	}
	if got := strings.Join(calls[0].argv, " "); got != "at -t 202405010600.30" {
		t.Fatalf("argv = %q", got)
	}
	if !strings.Contains(calls[0].stdin, `'2024-05-01/Rob'\''s Box'`) {
		t.Fatalf("script did not quote id: %q", calls[0].stdin)
	}

	if err := s.Cancel(context.Background(), handle); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := strings.Join(calls[1].argv, " "); got != "atrm 42" {
		t.Fatalf("argv = %q", got)
	}
}

func TestAtSchedulerReportsFailure(t *testing.T) {
	runner := func(context.Context, string, string, ...string) (string, error) {
		return "at: cannot open lockfile", errors.New("exit status 1")
	}
	s := NewAtScheduler(zerolog.Nop(), WithRunner(runner), WithBinary("/bin/true"))
	if _, err := s.Schedule(context.Background(), time.Now(), Job{Action: ActionGenerate, Args: []string{"generate"}}); err == nil {
		t.Fatal("expected error")
	}
}

func TestAtSchedulerGlobalArgsPrecedeJob(t *testing.T) {
	var script string
	runner := func(_ context.Context, stdin, _ string, _ ...string) (string, error) {
		script = stdin
		return "job 3 at Thu May  2 00:00:00 2024\n", nil
	}
	s := NewAtScheduler(zerolog.Nop(), WithRunner(runner), WithBinary("/opt/gl"), WithGlobalArgs("--env-file", "/etc/gl.env"))
	if _, err := s.Schedule(context.Background(), time.Now(), Job{Action: ActionGenerate, Args: []string{"generate"}}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if want := "'/opt/gl' '--env-file' '/etc/gl.env' 'generate'\n"; script != want {
		t.Fatalf("script = %q, want %q", script, want)
	}
}

func TestLogScheduler(t *testing.T) {
	s := NewLogScheduler(zerolog.Nop())
	h, err := s.Schedule(context.Background(), time.Now(), Job{Action: ActionGenerate})
	if err != nil || h == "" {
		t.Fatalf("schedule = %q, %v", h, err)
	}
	if err := s.Cancel(context.Background(), h); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(s.Jobs) != 0 {
		t.Fatalf("jobs = %v, want none", s.Jobs)
	}
}
