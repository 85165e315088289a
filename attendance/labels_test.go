package attendance

import (
	"reflect"
	"testing"
)

func TestNormalizeLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"Jordan (Ricky)", "JORDAN"},
		{"JORDAN", "JORDAN"},
		{"A.B. Smith", "AB SMITH"},
		{"  spaced   out  ", "SPACED OUT"},
		{"plain", "PLAIN"},
		{"keep (middle) part (end)", "KEEP (MIDDLE) PART"},
		{"", ""},
		{"   ", ""},
		{"(whole)", ""},
	}
	for _, c := range cases {
		if got := NormalizeLabel(c.in); got != c.want {
			t.Fatalf("NormalizeLabel(%q)=%q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeLabel_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"Jordan (Ricky)", "A.B. Smith", "  x  y ", "ALREADY UPPER", "", "mr. t (a-team)"}
	for _, in := range inputs {
		once := NormalizeLabel(in)
		if twice := NormalizeLabel(once); twice != once {
			t.Fatalf("NormalizeLabel not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestSplitRoster(t *testing.T) {
	t.Parallel()

	got := SplitRoster("Alice, bob (Robert) ,  C. D. ")
	want := []string{"ALICE", "BOB", "C D"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitRoster=%v, want %v", got, want)
	}

	if got := SplitRoster(""); got != nil {
		t.Fatalf("SplitRoster(\"\")=%v, want nil", got)
	}
	if got := SplitRoster(" , ,"); got != nil {
		t.Fatalf("SplitRoster of blanks=%v, want nil", got)
	}
}
