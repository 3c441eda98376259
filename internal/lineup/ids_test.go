package lineup

import (
	"errors"
	"testing"
)

func TestCanonicalIDs(t *testing.T) {
	id, err := ParseCanonicalID("2024-05-01/morning/news")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.LineupID != "2024-05-01" || id.BoxID != "morning" || id.ProgramID != "news" {
		t.Fatalf("parsed = %+v", id)
	}
	if id.String() != "2024-05-01/morning/news" {
		t.Fatalf("String = %s", id.String())
	}

	for _, bad := range []string{"", "2024-05-01", "a//b", "a/b/c/d"} {
		if _, err := ParseCanonicalID(bad); !errors.Is(err, ErrCanonicalID) {
			t.Fatalf("ParseCanonicalID(%q) err = %v", bad, err)
		}
	}
}

func TestResolve(t *testing.T) {
	l := compileBoxes(t, boxPlan("A", "09:00", false, 10))

	box, prog, err := l.Resolve(CanonicalID{LineupID: "2024-05-01", BoxID: "A", ProgramID: "A-program"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if box.BoxID != "A" || prog.ProgramID != "A-program" {
		t.Fatalf("resolved %s/%s", box.BoxID, prog.ProgramID)
	}
	if l.ProgramID(0, 0) != "2024-05-01/A/A-program" {
		t.Fatalf("ProgramID = %s", l.ProgramID(0, 0))
	}
	if _, _, err := l.Resolve(CanonicalID{LineupID: "2024-05-02", BoxID: "A"}); err == nil {
		t.Fatal("expected error for another date")
	}
}
