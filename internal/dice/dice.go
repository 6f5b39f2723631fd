// Package dice computes "NdX+M" rolls: the sum of N independent uniform
// draws over 1..X plus a signed modifier.
package dice

import (
	"errors"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrInvalidSetup is returned by Parse for strings that are not "NdX[+-M]"
var ErrInvalidSetup = errors.New("invalid dice setup")

// Setup describes a roll: Count dice of Faces faces plus Modifier
type Setup struct {
	Count    int
	Faces    int
	Modifier int
}

// String renders the setup label, see Label
func (s Setup) String() string {
	return Label(s.Count, s.Faces, s.Modifier)
}

// Min is the lowest result of rolling s when Faces >= 1 and Count >= 0
func (s Setup) Min() int { return s.Modifier + max(s.Count, 0) }

// Max is the highest result of rolling s when Faces >= 1 and Count >= 0
func (s Setup) Max() int { return s.Modifier + max(s.Count, 0)*s.Faces }

var setupPattern = regexp.MustCompile(`^\s*(\d+)\s*[dD]\s*(\d+)\s*(?:([+-])\s*(\d+))?\s*$`)

// Parse reads a label such as "3d10+2" or "1d100"
func Parse(label string) (Setup, error) {
	m := setupPattern.FindStringSubmatch(label)
	if m == nil {
		return Setup{}, ErrInvalidSetup
	}

	s := Setup{Count: Coerce(m[1]), Faces: Coerce(m[2])}
	if m[3] != "" {
		s.Modifier = Coerce(m[3] + m[4])
	}
	return s, nil
}

// Roller draws dice from a non-cryptographic random source.
// It is safe for concurrent use.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller returns a Roller seeded from the current time
func NewRoller() *Roller {
	seed := uint64(time.Now().UnixNano())
	return NewRollerWithSource(rand.NewPCG(seed, seed>>1|1))
}

// NewRollerWithSource returns a Roller drawing from src
func NewRollerWithSource(src rand.Source) *Roller {
	return &Roller{rng: rand.New(src)}
}

// Roll returns m plus the sum of n draws of a die with x faces.
// n <= 0 rolls nothing. A die with fewer than one face contributes zero.
func (r *Roller) Roll(n, x, m int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := m
	for ; n > 0; n-- {
		result += r.draw(x)
	}
	return result
}

// RollSetup rolls s, see Roll
func (r *Roller) RollSetup(s Setup) int {
	return r.Roll(s.Count, s.Faces, s.Modifier)
}

func (r *Roller) draw(faces int) int {
	if faces < 1 {
		return 0
	}
	return r.rng.IntN(faces) + 1
}

// Label renders the setup of a roll, e.g. "3d10+2", "2d10-10" or "1d100"
func Label(n, x, m int) string {
	label := strconv.Itoa(n) + "d" + strconv.Itoa(x)
	if m > 0 {
		label += "+" + strconv.Itoa(m)
	} else if m < 0 {
		label += strconv.Itoa(m)
	}
	return label
}

// Coerce converts a form value to an int: optional leading whitespace and
// sign followed by digits. Anything unparsable yields 0, trailing garbage
// is ignored ("3x" is 3).
func Coerce(s string) int {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}

	v, err := strconv.Atoi(s[:end])
	if err != nil {
		// out of range for int
		return 0
	}
	if neg {
		return -v
	}
	return v
}
