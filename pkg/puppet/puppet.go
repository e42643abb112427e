// Package puppet loads a complete model3 bundle and drives it one frame
// at a time: motion, then physics, then drawables, then compositing.
package puppet

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/marionette/pkg/compositing"
	"github.com/Faultbox/marionette/pkg/formats"
	"github.com/Faultbox/marionette/pkg/moc"
	"github.com/Faultbox/marionette/pkg/model"
	"github.com/Faultbox/marionette/pkg/motion"
	"github.com/Faultbox/marionette/pkg/physics"
)

// Playback errors.
var (
	ErrUnknownMotionGroup = errors.New("puppet: unknown motion group")
	ErrMotionIndex        = errors.New("puppet: motion index out of range")
)

// Frame is the outcome of one Tick.
type Frame struct {
	Events   []motion.Event
	Batches  []compositing.Batch
	Stats    compositing.Stats
	Changed  bool
	Revision uint64
}

// Motion is one loaded motion file.
type Motion struct {
	Group  string
	Index  int
	Path   string
	Sound  string
	Player *motion.Player

	policy motion.BezierPolicy
}

// Driver writes parameters every tick after the motion and before
// physics, so physics sees its values.
type Driver interface {
	Drive(m *model.Model, dt float32)
}

// DriverFunc adapts a function to Driver.
type DriverFunc func(m *model.Model, dt float32)

// Drive calls f.
func (f DriverFunc) Drive(m *model.Model, dt float32) { f(m, dt) }

type driverSlot struct{ d Driver }

// Puppet is a loaded model with its motions and physics. Like the model it
// wraps, it is driven from a single goroutine.
type Puppet struct {
	desc     *formats.Model3
	model    *model.Model
	physics  *physics.Engine
	motions  map[string][]*Motion
	textures []string

	active   *Motion
	drivers  []*driverSlot
	pipeline *compositing.Pipeline
	ticking  bool

	physicsEnabled bool
	policy         *motion.BezierPolicy
	fade           bool

	cfg options
	log *zap.Logger
}

type options struct {
	log          *zap.Logger
	physics      bool
	fade         bool
	policy       *motion.BezierPolicy
	honorInvMask bool
	angleChannel bool
}

// Option configures Load.
type Option func(*options)

// WithLogger sets the logger for the puppet and everything it loads.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithPhysics enables or disables the physics step. Enabled by default
// when the bundle references a physics file.
func WithPhysics(enabled bool) Option {
	return func(o *options) { o.physics = enabled }
}

// WithFade enables motion fade weighting.
func WithFade(enabled bool) Option {
	return func(o *options) { o.fade = enabled }
}

// WithPolicy forces a Bezier policy on every motion.
func WithPolicy(policy motion.BezierPolicy) Option {
	return func(o *options) { o.policy = &policy }
}

// WithInvertedMaskFlag passes through to model.WithInvertedMaskFlag.
func WithInvertedMaskFlag(honor bool) Option {
	return func(o *options) { o.honorInvMask = honor }
}

// WithAngleChannel passes through to physics.WithAngleChannel.
func WithAngleChannel(enabled bool) Option {
	return func(o *options) { o.angleChannel = enabled }
}

// Load reads model3Path and everything it references. Any failure aborts
// the load and releases what was loaded so far.
func Load(core moc.Core, model3Path string, opts ...Option) (*Puppet, error) {
	cfg := options{log: zap.NewNop(), physics: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.log

	desc, err := formats.ParseModel3File(model3Path)
	if err != nil {
		log.Error("couldn't load model3", zap.String("path", model3Path), zap.Error(err))
		return nil, err
	}
	if desc.FileReferences.Moc == "" {
		return nil, fmt.Errorf("%w: %s", formats.ErrMissingMocReference, model3Path)
	}

	m, err := model.Load(core, desc.Resolve(desc.FileReferences.Moc),
		model.WithLogger(log.Named("model")),
		model.WithGroups(desc.Groups),
		model.WithInvertedMaskFlag(cfg.honorInvMask),
	)
	if err != nil {
		return nil, err
	}

	p := &Puppet{
		desc:           desc,
		model:          m,
		motions:        make(map[string][]*Motion),
		pipeline:       compositing.NewPipeline(log.Named("compositing")),
		ticking:        true,
		physicsEnabled: cfg.physics,
		policy:         cfg.policy,
		fade:           cfg.fade,
		cfg:            cfg,
		log:            log,
	}

	for _, tex := range desc.FileReferences.Textures {
		p.textures = append(p.textures, desc.Resolve(tex))
	}

	if ref := desc.FileReferences.Physics; ref != "" {
		if err := p.loadPhysics(desc.Resolve(ref)); err != nil {
			m.Release()
			return nil, err
		}
	}

	for _, group := range desc.MotionGroups() {
		for i, entry := range desc.FileReferences.Motions[group] {
			if err := p.loadMotion(group, i, entry); err != nil {
				m.Release()
				return nil, err
			}
		}
	}

	log.Info("puppet loaded",
		zap.String("path", model3Path),
		zap.Int("textures", len(p.textures)),
		zap.Int("motion_groups", len(p.motions)),
		zap.Bool("physics", p.physics != nil))
	return p, nil
}

func (p *Puppet) loadPhysics(path string) error {
	src, err := formats.ParsePhysics3File(path)
	if err != nil {
		p.log.Error("couldn't load physics3", zap.String("path", path), zap.Error(err))
		return err
	}
	engine, err := physics.New(src,
		physics.WithLogger(p.log.Named("physics")),
		physics.WithAngleChannel(p.cfg.angleChannel))
	if err != nil {
		p.log.Error("invalid physics3", zap.String("path", path), zap.Error(err))
		return err
	}
	if missing := engine.Bind(p.model); len(missing) > 0 {
		p.log.Warn("physics parameters not found", zap.Strings("ids", missing))
	}
	p.physics = engine
	return nil
}

func (p *Puppet) loadMotion(group string, index int, entry formats.Model3Motion) error {
	path := p.desc.Resolve(entry.File)
	src, err := formats.ParseMotion3File(path)
	if err != nil {
		p.log.Error("couldn't load motion3", zap.String("path", path), zap.Error(err))
		return err
	}

	opts := []motion.PlayerOption{
		motion.WithLogger(p.log.Named("motion")),
		motion.WithFade(p.fade),
	}
	if entry.FadeInTime != nil || entry.FadeOutTime != nil {
		in, out := fadeOr(entry.FadeInTime, src.Meta.FadeInTime), fadeOr(entry.FadeOutTime, src.Meta.FadeOutTime)
		opts = append(opts, motion.WithFadeTimes(in, out))
	}
	if p.policy != nil {
		opts = append(opts, motion.WithPolicy(*p.policy))
	}

	player, err := motion.NewPlayer(src, opts...)
	if err != nil {
		p.log.Error("invalid motion3", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s: %w", path, err)
	}
	if missing := player.Bind(p.model); len(missing) > 0 {
		p.log.Debug("motion curves not bound", zap.String("path", path), zap.Strings("ids", missing))
	}

	p.motions[group] = append(p.motions[group], &Motion{
		Group:  group,
		Index:  index,
		Path:   path,
		Sound:  entry.Sound,
		Player: player,
		policy: motion.PolicyFor(src.Meta.AreBeziersRestricted),
	})
	return nil
}

func fadeOr(v, fallback *float32) float32 {
	if v != nil {
		return *v
	}
	if fallback != nil {
		return *fallback
	}
	return 0
}

// Tick advances the puppet by dt seconds and returns the resulting frame.
// When ticking is stopped it returns an empty frame.
func (p *Puppet) Tick(dt float32) Frame {
	if !p.ticking {
		return Frame{}
	}

	var frame Frame
	if p.active != nil {
		frame.Events = p.active.Player.Tick(dt)
		if !p.active.Player.Playing() {
			p.log.Debug("motion finished", zap.String("group", p.active.Group), zap.Int("index", p.active.Index))
			p.active = nil
		}
	}

	for _, slot := range p.drivers {
		slot.d.Drive(p.model, dt)
	}

	if p.physics != nil && p.physicsEnabled {
		p.physics.Evaluate(dt)
	}

	frame.Changed = p.model.UpdateDrawables()
	frame.Revision = p.model.Revision()
	frame.Batches = p.pipeline.Build(p.model)
	frame.Stats = p.pipeline.Stats()
	return frame
}

// AddDriver registers d to run on every tick, after any earlier drivers.
func (p *Puppet) AddDriver(d Driver) (remove func()) {
	slot := &driverSlot{d: d}
	p.drivers = append(p.drivers, slot)
	return func() {
		for i, have := range p.drivers {
			if have == slot {
				p.drivers = append(p.drivers[:i], p.drivers[i+1:]...)
				return
			}
		}
	}
}

// StartMotion starts motion index of group, replacing the active one.
func (p *Puppet) StartMotion(group string, index int) error {
	list, ok := p.motions[group]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMotionGroup, group)
	}
	if index < 0 || index >= len(list) {
		return fmt.Errorf("%w: %q has %d motions, got %d", ErrMotionIndex, group, len(list), index)
	}
	if p.active != nil {
		p.active.Player.Stop(false)
	}
	p.active = list[index]
	p.active.Player.Start()
	p.log.Debug("motion started", zap.String("group", group), zap.Int("index", index))
	return nil
}

// StopMotion stops the active motion, if any.
func (p *Puppet) StopMotion(resetToDefault bool) {
	if p.active == nil {
		return
	}
	p.active.Player.Stop(resetToDefault)
	p.active = nil
}

// ActiveMotion returns the playing motion or nil.
func (p *Puppet) ActiveMotion() *Motion { return p.active }

// StartTicking resumes Tick.
func (p *Puppet) StartTicking() { p.ticking = true }

// StopTicking makes Tick a no-op until StartTicking.
func (p *Puppet) StopTicking() { p.ticking = false }

// Ticking reports whether Tick advances the puppet.
func (p *Puppet) Ticking() bool { return p.ticking }

// MotionGroups returns the motion group names, sorted.
func (p *Puppet) MotionGroups() []string {
	return p.desc.MotionGroups()
}

// Motions returns the motions of a group in declaration order.
func (p *Puppet) Motions(group string) []*Motion {
	return p.motions[group]
}

// SetPolicyOverride forces a Bezier policy on every motion. A nil policy
// restores each motion's own.
func (p *Puppet) SetPolicyOverride(policy *motion.BezierPolicy) {
	p.policy = policy
	for _, list := range p.motions {
		for _, m := range list {
			if policy != nil {
				m.Player.SetPolicy(*policy)
				continue
			}
			m.Player.SetPolicy(m.policy)
		}
	}
}

// SetFade toggles fade weighting on every motion.
func (p *Puppet) SetFade(enabled bool) {
	p.fade = enabled
	for _, list := range p.motions {
		for _, m := range list {
			m.Player.SetFade(enabled)
		}
	}
}

// EnablePhysics toggles the physics step. Re-enabling resets the chains.
func (p *Puppet) EnablePhysics(enabled bool) {
	if enabled && !p.physicsEnabled && p.physics != nil {
		p.physics.Reset()
	}
	p.physicsEnabled = enabled
}

// PhysicsEnabled reports whether the physics step runs.
func (p *Puppet) PhysicsEnabled() bool { return p.physicsEnabled && p.physics != nil }

// Model returns the underlying model.
func (p *Puppet) Model() *model.Model { return p.model }

// Physics returns the physics engine, or nil when the bundle has none.
func (p *Puppet) Physics() *physics.Engine { return p.physics }

// Textures returns resolved texture paths by texture index.
func (p *Puppet) Textures() []string { return p.textures }

// Descriptor returns the parsed model3 descriptor.
func (p *Puppet) Descriptor() *formats.Model3 { return p.desc }

// Release frees the model.
func (p *Puppet) Release() {
	p.model.Release()
}
