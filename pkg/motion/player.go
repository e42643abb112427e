package motion

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/marionette/pkg/formats"
)

// State is the part of a model a player reads and writes. *model.Model
// satisfies it.
type State interface {
	ResolveParameter(name string) ([]int, bool)
	ResolvePart(name string) ([]int, bool)

	ParameterValueAt(i int) float32
	SetParameterValueAt(i int, v float32)
	ParameterDefaultAt(i int) float32

	PartOpacityAt(i int) float32
	SetPartOpacityAt(i int, v float32)
	PartDefaultAt(i int) float32
}

// Event is a user-data marker crossed during a tick.
type Event struct {
	Time  float32
	Value string
}

// Player plays one motion against a State.
type Player struct {
	duration float32
	fps      float32
	loop     bool
	policy   BezierPolicy

	curves  []*Curve
	events  []Event
	fadeIn  float32
	fadeOut float32
	fade    bool

	state    State
	bindings [][]int

	time    float32
	elapsed float32
	fresh   bool
	playing bool

	log *zap.Logger
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithLogger sets the player's logger.
func WithLogger(log *zap.Logger) PlayerOption {
	return func(p *Player) {
		if log != nil {
			p.log = log
		}
	}
}

// WithPolicy overrides the Bezier policy derived from the motion meta.
func WithPolicy(policy BezierPolicy) PlayerOption {
	return func(p *Player) {
		p.policy = policy
	}
}

// WithFade enables fade-in and fade-out weighting.
func WithFade(enabled bool) PlayerOption {
	return func(p *Player) {
		p.fade = enabled
	}
}

// WithFadeTimes sets the motion-level fade times, replacing those of the
// motion meta. Curve-level fade times still take precedence.
func WithFadeTimes(in, out float32) PlayerOption {
	return func(p *Player) {
		p.fadeIn = in
		p.fadeOut = out
	}
}

// NewPlayer decodes every curve of a motion. A curve that fails to decode
// fails the whole motion.
func NewPlayer(src *formats.Motion3, opts ...PlayerOption) (*Player, error) {
	p := &Player{
		duration: src.Meta.Duration,
		fps:      src.Meta.Fps,
		loop:     src.Meta.Loop,
		policy:   PolicyFor(src.Meta.AreBeziersRestricted),
		log:      zap.NewNop(),
	}
	if src.Meta.FadeInTime != nil {
		p.fadeIn = *src.Meta.FadeInTime
	}
	if src.Meta.FadeOutTime != nil {
		p.fadeOut = *src.Meta.FadeOutTime
	}

	for i, cd := range src.Curves {
		c, err := NewCurve(cd)
		if err != nil {
			return nil, fmt.Errorf("curve %d: %w", i, err)
		}
		p.curves = append(p.curves, c)
	}

	for _, ud := range src.UserData {
		p.events = append(p.events, Event{Time: ud.Time, Value: ud.Value})
	}
	sort.SliceStable(p.events, func(a, b int) bool {
		return p.events[a].Time < p.events[b].Time
	})

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Bind resolves every curve id against s. Curves that do not resolve, or
// whose target is unrecognized, are skipped during playback; their ids are
// returned.
func (p *Player) Bind(s State) []string {
	p.state = s
	p.bindings = make([][]int, len(p.curves))

	var unresolved []string
	for i, c := range p.curves {
		var ids []int
		var ok bool
		switch c.Target {
		case TargetModel, TargetParameter:
			ids, ok = s.ResolveParameter(c.ID)
		case TargetPartOpacity:
			ids, ok = s.ResolvePart(c.ID)
		}
		if !ok {
			unresolved = append(unresolved, c.ID)
			p.log.Debug("curve target not found",
				zap.String("id", c.ID), zap.Stringer("target", c.Target))
			continue
		}
		p.bindings[i] = ids
	}
	return unresolved
}

// Start begins playback from time zero.
func (p *Player) Start() {
	p.time = 0
	p.elapsed = 0
	p.fresh = true
	p.playing = true
}

// Stop halts playback and rewinds. With resetToDefault every bound
// parameter and part gets its default value back.
func (p *Player) Stop(resetToDefault bool) {
	p.playing = false
	p.time = 0
	p.elapsed = 0

	if !resetToDefault || p.state == nil {
		return
	}
	for i, c := range p.curves {
		for _, idx := range p.bindings[i] {
			if c.Target == TargetPartOpacity {
				p.state.SetPartOpacityAt(idx, p.state.PartDefaultAt(idx))
			} else {
				p.state.SetParameterValueAt(idx, p.state.ParameterDefaultAt(idx))
			}
		}
	}
}

// Tick advances playback by dt seconds, writes every curve's value into
// the bound state in declaration order and returns the user-data events
// crossed. A looping player that lands on the duration applies the last
// frame and rewinds to 0; past the duration it wraps modulo the duration.
// Any other player clamps at the duration and stops after applying that
// frame.
func (p *Player) Tick(dt float32) []Event {
	if !p.playing || p.state == nil {
		return nil
	}

	prev := p.time
	next := prev + dt
	wrapped := false
	if p.loop && p.duration > 0 && next == p.duration {
		// Landing exactly on the end applies the final keyframe, then rewinds.
		p.elapsed += dt
		p.apply(p.duration)
		crossed := p.eventsBetween(prev, p.duration, p.fresh)
		p.time = 0
		p.fresh = true
		return crossed
	}
	if next >= p.duration {
		if p.loop && p.duration > 0 {
			next = float32(math.Mod(float64(next), float64(p.duration)))
			wrapped = true
		} else {
			next = p.duration
		}
	}
	p.time = next
	p.elapsed += dt

	p.apply(next)

	var crossed []Event
	switch {
	case wrapped:
		crossed = p.eventsBetween(prev, p.duration, p.fresh)
		crossed = append(crossed, p.eventsBetween(0, next, true)...)
	default:
		crossed = p.eventsBetween(prev, next, p.fresh)
	}
	p.fresh = false

	if !p.loop && next >= p.duration {
		p.playing = false
	}
	return crossed
}

func (p *Player) apply(t float32) {
	for i, c := range p.curves {
		ids := p.bindings[i]
		if len(ids) == 0 {
			continue
		}
		v := c.EvaluateAt(t, p.policy)
		w := p.weight(c, t)

		for _, idx := range ids {
			if c.Target == TargetPartOpacity {
				p.state.SetPartOpacityAt(idx, blendTo(p.state.PartOpacityAt(idx), v, w))
			} else {
				p.state.SetParameterValueAt(idx, blendTo(p.state.ParameterValueAt(idx), v, w))
			}
		}
	}
}

// blendTo moves cur toward v by weight w; full weight writes v as is.
func blendTo(cur, v, w float32) float32 {
	if w >= 1 {
		return v
	}
	return cur + (v-cur)*w
}

// eventsBetween returns events with from < time <= to, or from <= time
// when inclusive is set.
func (p *Player) eventsBetween(from, to float32, inclusive bool) []Event {
	var out []Event
	for _, e := range p.events {
		after := e.Time > from || (inclusive && e.Time == from)
		if after && e.Time <= to {
			out = append(out, e)
		}
	}
	return out
}

// Seek moves the clock without applying curves or firing events.
func (p *Player) Seek(t float32) {
	if t < 0 {
		t = 0
	}
	if t > p.duration {
		t = p.duration
	}
	p.time = t
	p.fresh = false
}

// Time returns the current playback time.
func (p *Player) Time() float32 { return p.time }

// Duration returns the motion length in seconds.
func (p *Player) Duration() float32 { return p.duration }

// FPS returns the authoring frame rate.
func (p *Player) FPS() float32 { return p.fps }

// Loop reports whether the player wraps at the end.
func (p *Player) Loop() bool { return p.loop }

// SetLoop overrides the loop flag.
func (p *Player) SetLoop(loop bool) { p.loop = loop }

// Policy returns the Bezier policy in use.
func (p *Player) Policy() BezierPolicy { return p.policy }

// SetPolicy changes the Bezier policy for subsequent ticks.
func (p *Player) SetPolicy(policy BezierPolicy) { p.policy = policy }

// SetFade toggles fade weighting.
func (p *Player) SetFade(enabled bool) { p.fade = enabled }

// Playing reports whether Tick advances the clock.
func (p *Player) Playing() bool { return p.playing }

// Curves returns the decoded curves in declaration order.
func (p *Player) Curves() []*Curve { return p.curves }

// Events returns the user-data events sorted by time.
func (p *Player) Events() []Event { return p.events }
