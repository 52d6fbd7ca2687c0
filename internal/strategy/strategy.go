// Package strategy assigns running styles to a field of horses and picks the
// pace plan each style follows over a given distance.
//
// Horses are compared against the field, not on an absolute scale: every stat
// is divided by the field average before scoring, so cards on any scale mix.
package strategy

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/andresmejia3/stable/internal/types"
)

// Strategy is a running style.
type Strategy string

const (
	FrontRunner Strategy = "FRONT_RUNNER"
	Presser     Strategy = "PRESSER"
	Stalker     Strategy = "STALKER"
	Closer      Strategy = "CLOSER"
)

// All lists the styles in assignment order.
var All = []Strategy{FrontRunner, Presser, Stalker, Closer}

// ErrEmptyField is returned when there is nobody to assign.
var ErrEmptyField = errors.New("field has no horses")

// Distance classifies a course.
type Distance int

const (
	Short Distance = iota
	Middle
	Long
)

// Course length thresholds in track units. DefaultLength is the standard course.
const (
	ShortBelow    = 5000
	LongAbove     = 8000
	DefaultLength = 4450
)

func (d Distance) String() string {
	switch d {
	case Short:
		return "short"
	case Middle:
		return "middle"
	case Long:
		return "long"
	default:
		return fmt.Sprintf("Distance(%d)", int(d))
	}
}

// MarshalText renders the distance by name.
func (d Distance) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ForLength classifies a course of the given length.
func ForLength(units float64) Distance {
	switch {
	case units < ShortBelow:
		return Short
	case units > LongAbove:
		return Long
	default:
		return Middle
	}
}

// ParseDistance accepts "short", "middle", "long" or a positive course length.
// An empty string means the standard course.
func ParseDistance(s string) (Distance, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return ForLength(DefaultLength), nil
	case "short":
		return Short, nil
	case "middle", "mid":
		return Middle, nil
	case "long":
		return Long, nil
	}
	units, err := strconv.ParseFloat(s, 64)
	if err != nil || !(units > 0) {
		return Short, fmt.Errorf("distance %q: want short, middle, long or a positive length", s)
	}
	return ForLength(units), nil
}

// Runner is a horse entered in the field. Sprint is the finishing burst;
// for stat cards that is the jump stat.
type Runner struct {
	Name    string
	Speed   float64
	Stamina float64
	Sprint  float64
}

// FromCard enters a stat card.
func FromCard(c types.StatCard) Runner {
	return Runner{
		Name:    c.Name,
		Speed:   float64(c.Speed),
		Stamina: float64(c.Stamina),
		Sprint:  float64(c.Jump),
	}
}

// FromCards enters every card in order.
func FromCards(cs []types.StatCard) []Runner {
	field := make([]Runner, len(cs))
	for i, c := range cs {
		field[i] = FromCard(c)
	}
	return field
}

// Params is the pace plan of a style. Paces multiply the horse's speed in the
// early, middle and late phases; KickPhase is the fraction of the race where
// the late phase starts. The surge fields apply to pressers only.
type Params struct {
	EarlyPace   float64 `json:"early_pace"`
	MidPace     float64 `json:"mid_pace"`
	LatePace    float64 `json:"late_pace"`
	EnergyDrain float64 `json:"energy_drain"`
	KickPhase   float64 `json:"kick_phase"`
	KickMult    float64 `json:"kick_mult,omitempty"`
	SurgeWindow float64 `json:"surge_window,omitempty"`
	GapTrigger  float64 `json:"gap_trigger,omitempty"`
}

// ParamsFor returns the pace plan for s over d.
func ParamsFor(s Strategy, d Distance) Params {
	short, long := d == Short, d == Long
	pick := func(ifLong, ifShort, otherwise float64) float64 {
		switch {
		case long:
			return ifLong
		case short:
			return ifShort
		default:
			return otherwise
		}
	}

	switch s {
	case FrontRunner:
		return Params{
			EarlyPace:   pick(0.98, 0.98, 0.93),
			MidPace:     pick(0.90, 0.93, 0.88),
			LatePace:    pick(0.65, 0.90, 0.82),
			EnergyDrain: pick(1.25, 1.15, 1.15),
			KickPhase:   pick(0.90, 0.85, 0.85),
		}
	case Presser:
		return Params{
			EarlyPace:   pick(0.85, 0.90, 0.93),
			MidPace:     pick(0.90, 0.90, 0.95),
			LatePace:    pick(1.00, 1.02, 1.02),
			EnergyDrain: 1.1,
			KickPhase:   0.72,
			KickMult:    1.08,
			SurgeWindow: 0.15,
			GapTrigger:  0.8,
		}
	case Stalker:
		return Params{
			EarlyPace:   0.80,
			MidPace:     pick(0.92, 0.88, 0.88),
			LatePace:    pick(1.12, 1.08, 1.08),
			EnergyDrain: 0.93,
			KickPhase:   0.72,
		}
	case Closer:
		return Params{
			EarlyPace:   pick(0.68, 0.78, 0.68),
			MidPace:     pick(0.80, 0.76, 0.76),
			LatePace:    pick(1.35, 1.22, 1.22),
			EnergyDrain: 0.70,
			KickPhase:   pick(0.80, 0.75, 0.80),
		}
	}
	return Params{}
}

// Assignment is the style chosen for one runner.
type Assignment struct {
	Name     string               `json:"name"`
	Strategy Strategy             `json:"strategy"`
	Params   Params               `json:"params"`
	Scores   map[Strategy]float64 `json:"scores"`
}

// Suitability scores a runner for every style from its stats relative to the
// field averages (speed, stamina, sprint ratios).
func Suitability(speed, stamina, sprint float64) map[Strategy]float64 {
	abs := func(v float64) float64 {
		if v < 0 {
			return -v
		}
		return v
	}
	return map[Strategy]float64{
		FrontRunner: speed*1.5 + stamina*0.8 - sprint*0.3,
		Presser:     speed*1.1 + stamina*1.0 + sprint*0.8,
		Stalker:     3 - (abs(speed-1) + abs(stamina-1) + abs(sprint-1)),
		Closer:      sprint*1.6 + stamina*1.1 - speed*0.4,
	}
}

// Assign picks a style for every runner and returns the assignments in field order.
//
// Fields of up to four get one horse per style, filled in All order with the
// best remaining horse for each. Larger fields get an even split; the
// remainder goes to the styles whose best candidate scores highest. Ties go
// to the horse listed first.
func Assign(field []Runner, d Distance) ([]Assignment, error) {
	n := len(field)
	if n == 0 {
		return nil, ErrEmptyField
	}

	var avgSpeed, avgStamina, avgSprint float64
	for _, r := range field {
		avgSpeed += r.Speed
		avgStamina += r.Stamina
		avgSprint += r.Sprint
	}
	avgSpeed /= float64(n)
	avgStamina /= float64(n)
	avgSprint /= float64(n)
	for name, avg := range map[string]float64{"speed": avgSpeed, "stamina": avgStamina, "sprint": avgSprint} {
		if !(avg > 0) {
			return nil, fmt.Errorf("field average %s must be positive, got %v", name, avg)
		}
	}

	scores := make([]map[Strategy]float64, n)
	for i, r := range field {
		scores[i] = Suitability(r.Speed/avgSpeed, r.Stamina/avgStamina, r.Sprint/avgSprint)
	}

	chosen := make([]Strategy, n)
	bestFor := func(s Strategy) int {
		best := -1
		for i := range field {
			if chosen[i] != "" {
				continue
			}
			if best < 0 || scores[i][s] > scores[best][s] {
				best = i
			}
		}
		return best
	}

	if n <= len(All) {
		for _, s := range All[:n] {
			if i := bestFor(s); i >= 0 {
				chosen[i] = s
			}
		}
	} else {
		targets := make(map[Strategy]int, len(All))
		for _, s := range All {
			targets[s] = n / len(All)
		}

		type strength struct {
			s   Strategy
			top float64
		}
		ranked := make([]strength, len(All))
		for k, s := range All {
			ranked[k] = strength{s: s, top: scores[0][s]}
			for i := 1; i < n; i++ {
				if scores[i][s] > ranked[k].top {
					ranked[k].top = scores[i][s]
				}
			}
		}
		sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].top > ranked[b].top })
		for k := 0; k < n%len(All); k++ {
			targets[ranked[k].s]++
		}

		for _, s := range All {
			for filled := 0; filled < targets[s]; filled++ {
				i := bestFor(s)
				if i < 0 {
					break
				}
				chosen[i] = s
			}
		}
	}

	out := make([]Assignment, n)
	for i, r := range field {
		s := chosen[i]
		if s == "" {
			s = personalBest(scores[i])
		}
		out[i] = Assignment{
			Name:     r.Name,
			Strategy: s,
			Params:   ParamsFor(s, d),
			Scores:   scores[i],
		}
	}
	return out, nil
}

// personalBest is the style a runner scores highest on, first in All order on ties.
func personalBest(scores map[Strategy]float64) Strategy {
	best := All[0]
	for _, s := range All[1:] {
		if scores[s] > scores[best] {
			best = s
		}
	}
	return best
}

// Mix counts how many runners got each style.
func Mix(as []Assignment) map[Strategy]int {
	mix := make(map[Strategy]int, len(All))
	for _, a := range as {
		mix[a.Strategy]++
	}
	return mix
}
