package motion

import (
	"github.com/tanema/gween/ease"
)

// fadeEasing shapes fade-in and fade-out weights.
var fadeEasing ease.TweenFunc = ease.InOutSine

// fadeWeight eases from 0 to 1 over duration. Non-positive durations
// disable the fade.
func fadeWeight(t, duration float32) float32 {
	if duration <= 0 || t >= duration {
		return 1
	}
	if t <= 0 {
		return 0
	}
	return fadeEasing(t, 0, 1, duration)
}

// weight returns the blend factor of curve c at time t: the product of its
// fade-in weight (measured from Start) and, for non-looping motions, its
// fade-out weight (measured back from the end).
func (p *Player) weight(c *Curve, t float32) float32 {
	if !p.fade {
		return 1
	}

	in := p.fadeIn
	if c.FadeInTime != nil {
		in = *c.FadeInTime
	}
	out := p.fadeOut
	if c.FadeOutTime != nil {
		out = *c.FadeOutTime
	}

	w := fadeWeight(p.elapsed, in)
	if !p.loop {
		w *= fadeWeight(p.duration-t, out)
	}
	return w
}
