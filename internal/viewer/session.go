// Package viewer holds the backend-independent state of the puppet
// viewer: the loaded puppet, keyboard actions, pointer follow and pose
// presets. Render backends feed it input and draw the frames it returns.
package viewer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/marionette/internal/config"
	"github.com/Faultbox/marionette/pkg/moc"
	"github.com/Faultbox/marionette/pkg/motion"
	"github.com/Faultbox/marionette/pkg/puppet"
)

// quickPose is the preset slot used by the save and load keys.
const quickPose = "quick"

// Action is a viewer command, usually bound to a key.
type Action int

// Actions.
const (
	ActionNone Action = iota
	ActionToggleMotion
	ActionNextMotion
	ActionResetPose
	ActionTogglePhysics
	ActionToggleFollow
	ActionSavePose
	ActionLoadPose
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionToggleMotion:
		return "toggle-motion"
	case ActionNextMotion:
		return "next-motion"
	case ActionResetPose:
		return "reset-pose"
	case ActionTogglePhysics:
		return "toggle-physics"
	case ActionToggleFollow:
		return "toggle-follow"
	case ActionSavePose:
		return "save-pose"
	case ActionLoadPose:
		return "load-pose"
	case ActionQuit:
		return "quit"
	default:
		return "none"
	}
}

// Backend draws a session until it quits.
type Backend interface {
	Run(s *Session) error
	Close()
}

// Session is one loaded puppet and the viewer state around it.
type Session struct {
	cfg    *config.Config
	puppet *puppet.Puppet
	follow *Follow
	poses  *PoseStore
	log    *zap.Logger

	group string
	index int
	quit  bool
}

// Option configures NewSession.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithPoseStore replaces the store opened from the presets config.
func WithPoseStore(store *PoseStore) Option {
	return func(s *Session) { s.poses = store }
}

// NewSession loads the configured model and starts the configured motion.
func NewSession(cfg *config.Config, opts ...Option) (*Session, error) {
	s := &Session{cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Model.Path == "" {
		return nil, errors.New("viewer: no model path configured")
	}
	core, err := moc.Lookup(cfg.Model.Runtime)
	if err != nil {
		return nil, err
	}

	popts := []puppet.Option{
		puppet.WithLogger(s.log),
		puppet.WithPhysics(cfg.Playback.Physics),
		puppet.WithFade(cfg.Playback.Fade),
		puppet.WithInvertedMaskFlag(cfg.Model.HonorInvertedMaskFlag),
		puppet.WithAngleChannel(cfg.Model.AngleInputChannel),
	}
	switch cfg.Playback.Policy {
	case config.PolicyRestricted:
		popts = append(popts, puppet.WithPolicy(motion.BezierRestricted))
	case config.PolicyExact:
		popts = append(popts, puppet.WithPolicy(motion.BezierExact))
	}

	p, err := puppet.Load(core, cfg.Model.Path, popts...)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfg.Model.Path, err)
	}
	s.puppet = p

	if cfg.Playback.Loop != config.LoopAuto {
		loop := cfg.Playback.Loop == config.LoopOn
		for _, group := range p.MotionGroups() {
			for _, m := range p.Motions(group) {
				m.Player.SetLoop(loop)
			}
		}
	}

	s.follow = NewFollow(p.Model(), cfg.Follow.Frequency, cfg.Follow.Damping)
	s.follow.SetEnabled(cfg.Follow.Enabled)
	p.AddDriver(s.follow)

	if s.poses == nil {
		s.poses = OpenPoseStore(cfg.Presets.AppName, s.log.Named("poses"))
	}

	s.group, s.index = cfg.Playback.MotionGroup, cfg.Playback.MotionIndex
	if s.group != "" {
		if err := p.StartMotion(s.group, s.index); err != nil {
			s.log.Warn("autoplay motion unavailable", zap.String("group", s.group), zap.Int("index", s.index), zap.Error(err))
		}
	}

	s.log.Info("session ready",
		zap.String("model", cfg.Model.Path),
		zap.String("runtime", cfg.Model.Runtime),
		zap.Strings("groups", p.MotionGroups()),
		zap.Int("follow_params", s.follow.Bound()),
		zap.Bool("persistent_poses", s.poses.Persistent()),
	)
	return s, nil
}

// Puppet returns the loaded puppet.
func (s *Session) Puppet() *puppet.Puppet { return s.puppet }

// Follow returns the pointer follow driver.
func (s *Session) Follow() *Follow { return s.follow }

// Config returns the session config.
func (s *Session) Config() *config.Config { return s.cfg }

// Quit reports whether ActionQuit was handled.
func (s *Session) Quit() bool { return s.quit }

// CurrentMotion returns the group and index the motion keys act on.
func (s *Session) CurrentMotion() (string, int) { return s.group, s.index }

// Pointer sets the follow target from window pixel coordinates.
func (s *Session) Pointer(px, py, width, height int) {
	s.follow.SetTarget(NormalizePointer(px, py, width, height))
}

// Update advances the puppet by dt seconds.
func (s *Session) Update(dt float32) puppet.Frame {
	frame := s.puppet.Tick(dt)
	for _, ev := range frame.Events {
		s.log.Debug("motion event", zap.Float32("time", ev.Time), zap.String("value", ev.Value))
	}
	return frame
}

// Handle performs an action. Errors are logged and reported; the session
// stays usable.
func (s *Session) Handle(a Action) error {
	s.log.Debug("action", zap.Stringer("action", a))
	switch a {
	case ActionToggleMotion:
		if s.puppet.ActiveMotion() != nil {
			s.puppet.StopMotion(false)
			return nil
		}
		return s.start()
	case ActionNextMotion:
		s.advance()
		return s.start()
	case ActionResetPose:
		s.puppet.StopMotion(true)
		s.puppet.Model().ResetParameters()
		s.puppet.Model().ResetParts()
		if ph := s.puppet.Physics(); ph != nil {
			ph.Reset()
		}
	case ActionTogglePhysics:
		s.puppet.EnablePhysics(!s.puppet.PhysicsEnabled())
	case ActionToggleFollow:
		s.follow.SetEnabled(!s.follow.Enabled())
	case ActionSavePose:
		if err := s.poses.Save(quickPose, CapturePose(s.puppet.Model())); err != nil {
			s.log.Error("couldn't save pose", zap.Error(err))
			return err
		}
	case ActionLoadPose:
		pose, err := s.poses.Load(quickPose)
		if err != nil {
			s.log.Warn("couldn't load pose", zap.Error(err))
			return err
		}
		s.puppet.StopMotion(false)
		if unknown := pose.Apply(s.puppet.Model()); len(unknown) > 0 {
			s.log.Warn("pose has ids the model lacks", zap.Strings("ids", unknown))
		}
	case ActionQuit:
		s.quit = true
	}
	return nil
}

func (s *Session) start() error {
	if err := s.puppet.StartMotion(s.group, s.index); err != nil {
		s.log.Warn("couldn't start motion", zap.String("group", s.group), zap.Int("index", s.index), zap.Error(err))
		return err
	}
	return nil
}

// advance moves to the next motion, rolling over into the next group.
func (s *Session) advance() {
	groups := s.puppet.MotionGroups()
	if len(groups) == 0 {
		return
	}
	if s.index+1 < len(s.puppet.Motions(s.group)) {
		s.index++
		return
	}
	next := 0
	for i, g := range groups {
		if g == s.group {
			next = (i + 1) % len(groups)
			break
		}
	}
	s.group, s.index = groups[next], 0
}

// Close releases the puppet.
func (s *Session) Close() {
	if s.puppet != nil {
		s.puppet.Release()
	}
}
