package dice

import (
	"math/rand/v2"
	"sync"
	"testing"
)

func newTestRoller() *Roller {
	return NewRollerWithSource(rand.NewPCG(1, 2))
}

func TestRollBounds(t *testing.T) {
	r := newTestRoller()

	tests := []struct {
		n, x, m int
	}{
		{1, 10, 0},
		{3, 10, 2},
		{1, 100, -40},
		{5, 6, 0},
		{10, 1, 3},
		{2, 20, -10},
	}

	for _, tt := range tests {
		s := Setup{Count: tt.n, Faces: tt.x, Modifier: tt.m}
		for i := 0; i < 1000; i++ {
			got := r.Roll(tt.n, tt.x, tt.m)
			if got < s.Min() || got > s.Max() {
				t.Fatalf("Roll(%d, %d, %d) = %d, want in [%d, %d]", tt.n, tt.x, tt.m, got, s.Min(), s.Max())
			}
		}
	}
}

func TestRollZeroDiceReturnsModifier(t *testing.T) {
	r := newTestRoller()

	for _, m := range []int{-40, -2, 0, 2, 40} {
		if got := r.Roll(0, 10, m); got != m {
			t.Errorf("Roll(0, 10, %d) = %d, want %d", m, got, m)
		}
		if got := r.Roll(-3, 10, m); got != m {
			t.Errorf("Roll(-3, 10, %d) = %d, want %d", m, got, m)
		}
	}
}

func TestRollFacelessDie(t *testing.T) {
	r := newTestRoller()

	if got := r.Roll(3, 0, 5); got != 5 {
		t.Errorf("Roll(3, 0, 5) = %d, want 5", got)
	}
	if got := r.Roll(3, -6, 0); got != 0 {
		t.Errorf("Roll(3, -6, 0) = %d, want 0", got)
	}
}

func TestRollCoversAllFaces(t *testing.T) {
	r := newTestRoller()
	seen := make(map[int]bool)

	for i := 0; i < 2000; i++ {
		seen[r.Roll(1, 10, 0)] = true
	}

	for face := 1; face <= 10; face++ {
		if !seen[face] {
			t.Errorf("face %d never rolled", face)
		}
	}
}

func TestRollDeterministicWithSource(t *testing.T) {
	a := NewRollerWithSource(rand.NewPCG(42, 7))
	b := NewRollerWithSource(rand.NewPCG(42, 7))

	for i := 0; i < 20; i++ {
		if x, y := a.Roll(3, 10, 2), b.Roll(3, 10, 2); x != y {
			t.Fatalf("roll %d differs: %d != %d", i, x, y)
		}
	}
}

func TestRollConcurrent(t *testing.T) {
	r := NewRoller()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := r.Roll(2, 10, 0); got < 2 || got > 20 {
					t.Errorf("Roll(2, 10, 0) = %d out of range", got)
				}
			}
		}()
	}
	wg.Wait()
}

func TestLabel(t *testing.T) {
	tests := []struct {
		n, x, m int
		want    string
	}{
		{3, 10, 2, "3d10+2"},
		{1, 100, 0, "1d100"},
		{2, 10, -10, "2d10-10"},
		{0, 10, 40, "0d10+40"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Label(tt.n, tt.x, tt.m); got != tt.want {
				t.Errorf("Label(%d, %d, %d) = %q, want %q", tt.n, tt.x, tt.m, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Setup
		wantErr bool
	}{
		{input: "3d10+2", want: Setup{3, 10, 2}},
		{input: "1d100", want: Setup{1, 100, 0}},
		{input: "2D6 - 1", want: Setup{2, 6, -1}},
		{input: " 4d20+10 ", want: Setup{4, 20, 10}},
		{input: "d20", wantErr: true},
		{input: "3d", wantErr: true},
		{input: "three dice", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Parse(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseLabelRoundTrip(t *testing.T) {
	for _, label := range []string{"3d10+2", "1d100", "2d10-10"} {
		s, err := Parse(label)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", label, err)
		}
		if s.String() != label {
			t.Errorf("Parse(%q).String() = %q", label, s.String())
		}
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"3", 3},
		{"+2", 2},
		{"-40", -40},
		{"  7", 7},
		{"3x", 3},
		{"abc", 0},
		{"", 0},
		{"-", 0},
		{"1.9", 1},
		{"99999999999999999999999", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Coerce(tt.input); got != tt.want {
				t.Errorf("Coerce(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
