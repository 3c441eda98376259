package lineup

import (
	"errors"
	"testing"
	"time"
)

func compileBoxes(t *testing.T, boxes ...BoxPlan) *Lineup {
	t.Helper()
	l, err := Compile(&LineupPlan{LineupID: "2024-05-01", Version: FormatVersion, BoxPlans: boxes})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return l
}

func TestWrapSplitsInterruptedProgram(t *testing.T) {
	l := compileBoxes(t,
		boxPlan("A", "09:00", false, 15, 15),
		boxPlan("F", "09:10", true, 2),
	)

	if len(l.Boxes) != 1 {
		t.Fatalf("top-level boxes = %d, want 1 (floating box absorbed)", len(l.Boxes))
	}
	a := l.Boxes[0]
	if !a.EndTime.Equal(at("09:32")) {
		t.Fatalf("A ends %s, want 09:32", a.EndTime.Format("15:04"))
	}
	if len(a.Programs) != 3 {
		t.Fatalf("A programs = %d, want 3", len(a.Programs))
	}

	want := []struct {
		id         string
		start, end string
	}{
		{"A-program", "09:00", "09:10"},
		{"F-program", "09:10", "09:12"},
		{"A-program" + ResumedIDSuffix, "09:12", "09:32"},
	}
	for i, w := range want {
		p := a.Programs[i]
		if p.ProgramID != w.id {
			t.Fatalf("program %d id = %s, want %s", i, p.ProgramID, w.id)
		}
		if !p.Metadata.StartTime.Equal(at(w.start)) || !p.Metadata.EndTime.Equal(at(w.end)) {
			t.Fatalf("program %s = %s-%s, want %s-%s", p.ProgramID,
				p.Metadata.StartTime.Format("15:04"), p.Metadata.EndTime.Format("15:04"), w.start, w.end)
		}
	}

	before := a.Programs[0].Show.Clips
	if len(before) != 1 || before[0].Length != 10*time.Minute {
		t.Fatalf("before segment clips = %+v, want one 10m clip", before)
	}
	after := a.Programs[2].Show.Clips
	if len(after) != 2 {
		t.Fatalf("after segment clips = %d, want 2", len(after))
	}
	if after[0].CueIn != 10*time.Minute || after[0].Length != 5*time.Minute || !after[0].StartTime.Equal(at("09:12")) {
		t.Fatalf("resumed clip = cue %s len %s at %s", after[0].CueIn, after[0].Length, after[0].StartTime.Format("15:04"))
	}
	if !after[1].StartTime.Equal(at("09:17")) {
		t.Fatalf("second clip starts %s, want 09:17", after[1].StartTime.Format("15:04"))
	}
}

func TestWrapBranchFollowsStartComparison(t *testing.T) {
	l, res, err := CompileWithResolutions(&LineupPlan{
		LineupID: "2024-05-01",
		Version:  FormatVersion,
		BoxPlans: []BoxPlan{
			boxPlan("A", "09:00", false, 15),
			boxPlan("B", "09:15", false, 30),
			boxPlan("F", "09:20", true, 5),
		},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(res) != 1 || res[0].Action != ActionWrap || res[0].NeighborBoxID != "B" {
		t.Fatalf("resolutions = %+v, want one wrap into B", res)
	}
	if len(l.Boxes) != 2 {
		t.Fatalf("boxes = %d, want 2", len(l.Boxes))
	}
	b := l.Boxes[1]
	if !b.StartTime.Equal(at("09:15")) || !b.EndTime.Equal(at("09:50")) {
		t.Fatalf("B = %s-%s, want 09:15-09:50", b.StartTime.Format("15:04"), b.EndTime.Format("15:04"))
	}
	if a := l.Boxes[0]; !a.EndTime.Equal(at("09:15")) {
		t.Fatalf("A moved to end %s", a.EndTime.Format("15:04"))
	}
}

func TestShiftDisplacesNeighborAndLaterBoxes(t *testing.T) {
	l, res, err := CompileWithResolutions(&LineupPlan{
		LineupID: "2024-05-01",
		Version:  FormatVersion,
		BoxPlans: []BoxPlan{
			boxPlan("F", "08:55", true, 10),
			boxPlan("A", "09:00", false, 30),
			boxPlan("B", "10:00", false, 30),
		},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(res) != 1 || res[0].Action != ActionShift || res[0].Amount != 5*time.Minute {
		t.Fatalf("resolutions = %+v, want one 5m shift", res)
	}
	if len(l.Boxes) != 3 {
		t.Fatalf("boxes = %d, want 3", len(l.Boxes))
	}
	wants := map[string][2]string{
		"F": {"08:55", "09:05"},
		"A": {"09:05", "09:35"},
		"B": {"10:05", "10:35"},
	}
	for _, b := range l.Boxes {
		w := wants[b.BoxID]
		if !b.StartTime.Equal(at(w[0])) || !b.EndTime.Equal(at(w[1])) {
			t.Fatalf("%s = %s-%s, want %s-%s", b.BoxID, b.StartTime.Format("15:04"), b.EndTime.Format("15:04"), w[0], w[1])
		}
	}
	if got := l.Boxes[1].Programs[0].Show.Clips[0].StartTime; !got.Equal(at("09:05")) {
		t.Fatalf("shifted clip starts %s, want 09:05", got.Format("15:04"))
	}
}

func TestFloatingAtNeighborStartShiftsNeighbor(t *testing.T) {
	l, res, err := CompileWithResolutions(&LineupPlan{
		LineupID: "2024-05-01",
		Version:  FormatVersion,
		BoxPlans: []BoxPlan{
			boxPlan("F", "09:00", true, 10),
			boxPlan("A", "09:00", false, 30),
		},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(res) != 1 || res[0].Action != ActionShift || res[0].NeighborBoxID != "A" || res[0].Amount != 10*time.Minute {
		t.Fatalf("resolutions = %+v, want one 10m shift of A", res)
	}
	if len(l.Boxes) != 2 || l.Boxes[0].BoxID != "F" {
		t.Fatalf("boxes = %+v", l.Boxes)
	}
	if a := l.Boxes[1]; !a.StartTime.Equal(at("09:10")) || !a.EndTime.Equal(at("09:40")) {
		t.Fatalf("A = %s-%s, want 09:10-09:40", a.StartTime.Format("15:04"), a.EndTime.Format("15:04"))
	}
}

func TestWrapPushesFollowingBox(t *testing.T) {
	l := compileBoxes(t,
		boxPlan("A", "09:00", false, 30),
		boxPlan("F", "09:25", true, 10),
		boxPlan("B", "09:30", false, 30),
	)
	if len(l.Boxes) != 2 {
		t.Fatalf("boxes = %d, want 2", len(l.Boxes))
	}
	a, b := l.Boxes[0], l.Boxes[1]
	if !a.EndTime.Equal(at("09:40")) {
		t.Fatalf("A ends %s, want 09:40", a.EndTime.Format("15:04"))
	}
	if !b.StartTime.Equal(at("09:40")) || !b.EndTime.Equal(at("10:10")) {
		t.Fatalf("B = %s-%s, want 09:40-10:10", b.StartTime.Format("15:04"), b.EndTime.Format("15:04"))
	}
}

func TestInterruptAtProgramBoundaryDoesNotSplit(t *testing.T) {
	a := boxPlan("A", "09:00", false, 10)
	a.ProgramPlans = append(a.ProgramPlans, ProgramPlan{
		ProgramID: "second",
		Show:      &ShowPlan{Clips: []ClipPlan{{Media: media("second", 10)}}},
	})
	l := compileBoxes(t, a, boxPlan("F", "09:10", true, 3))

	progs := l.Boxes[0].Programs
	ids := []string{progs[0].ProgramID, progs[1].ProgramID, progs[2].ProgramID}
	if len(progs) != 3 || ids[0] != "A-program" || ids[1] != "F-program" || ids[2] != "second" {
		t.Fatalf("programs = %v", ids)
	}
	if !progs[2].Metadata.StartTime.Equal(at("09:13")) {
		t.Fatalf("second starts %s, want 09:13", progs[2].Metadata.StartTime.Format("15:04"))
	}
}

func TestFloatingWithoutOverlapStaysTopLevel(t *testing.T) {
	l := compileBoxes(t,
		boxPlan("A", "09:00", false, 30),
		boxPlan("F", "12:00", true, 5),
	)
	if len(l.Boxes) != 2 || !l.Boxes[1].IsFloating {
		t.Fatalf("floating box should remain top-level, got %+v", l.Boxes)
	}
}

func TestCompileRejectsOverlappingFixedBoxes(t *testing.T) {
	_, err := Compile(&LineupPlan{
		LineupID: "2024-05-01",
		Version:  FormatVersion,
		BoxPlans: []BoxPlan{
			boxPlan("A", "09:00", false, 30),
			boxPlan("B", "09:15", false, 30),
		},
	})
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("err = %v, want ErrInvariant", err)
	}
}
