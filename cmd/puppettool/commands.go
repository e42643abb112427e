package main

import (
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"

	_ "github.com/Faultbox/marionette/internal/cubism"
	"github.com/Faultbox/marionette/pkg/compositing"
	"github.com/Faultbox/marionette/pkg/formats"
	"github.com/Faultbox/marionette/pkg/moc"
	"github.com/Faultbox/marionette/pkg/motion"
	"github.com/Faultbox/marionette/pkg/puppet"
)

var errUsage = errors.New("invalid arguments, see puppettool help")

func cmdHeader(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: puppettool header <file.moc3>")
		return errUsage
	}

	h, err := formats.ParseMocHeaderFile(args[0])
	if err != nil {
		return err
	}

	order := "little-endian"
	if h.BigEndian {
		order = "big-endian"
	}
	fmt.Println(header("MOC3 " + args[0]))
	fmt.Println(field("Version", h.Version))
	fmt.Println(field("Byte order", order))
	if err := formats.CheckMocVersion(h.Version, formats.LatestMocVersion); err != nil {
		fmt.Println(warnStyle.Render(err.Error()))
	} else {
		fmt.Println(field("Supported", "yes"))
	}
	return nil
}

func loadPuppet(runtime, path string, opts ...puppet.Option) (*puppet.Puppet, error) {
	core, err := moc.Lookup(runtime)
	if err != nil {
		return nil, err
	}
	return puppet.Load(core, path, opts...)
}

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	runtime := fs.String("runtime", moc.FixtureCoreName, "Model runtime core")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: puppettool info [-runtime r] <model.model3.json>")
		return errUsage
	}

	p, err := loadPuppet(*runtime, fs.Arg(0))
	if err != nil {
		return err
	}
	defer p.Release()

	m := p.Model()
	desc := p.Descriptor()
	canvas := m.Canvas()

	fmt.Println(header("Model " + fs.Arg(0)))
	fmt.Println(field("Moc", desc.FileReferences.Moc))
	fmt.Println(field("Canvas", fmt.Sprintf("%.0fx%.0f px, %.1f px/unit", canvas.Size.X, canvas.Size.Y, canvas.PixelsPerUnit)))
	fmt.Println(field("Textures", len(p.Textures())))
	fmt.Println(field("Physics", physicsSummary(p)))

	fmt.Println(header(fmt.Sprintf("Parameters (%d)", m.ParameterCount())))
	rows := make([][]string, 0, m.ParameterCount())
	for i, id := range m.ParameterIDs() {
		rows = append(rows, []string{
			id,
			num(m.ParameterMinimumAt(i)),
			num(m.ParameterMaximumAt(i)),
			num(m.ParameterDefaultAt(i)),
		})
	}
	fmt.Println(table([]string{"ID", "MIN", "MAX", "DEFAULT"}, rows))

	fmt.Println(header(fmt.Sprintf("Parts (%d)", m.PartCount())))
	rows = rows[:0]
	for i, id := range m.PartIDs() {
		rows = append(rows, []string{id, num(m.PartOpacityAt(i))})
	}
	fmt.Println(table([]string{"ID", "OPACITY"}, rows))

	fmt.Println(header(fmt.Sprintf("Drawables (%d, render order)", m.DrawableCount())))
	rows = rows[:0]
	for _, d := range m.Drawables() {
		masks := make([]string, 0, len(d.Masks))
		for _, mi := range d.Masks {
			if md := m.Drawable(int(mi)); md != nil {
				masks = append(masks, md.ID)
			}
		}
		rows = append(rows, []string{
			d.ID,
			fmt.Sprint(d.TextureIndex),
			d.Blend.String(),
			fmt.Sprint(d.DrawOrder),
			strings.Join(masks, ","),
		})
	}
	fmt.Println(table([]string{"ID", "TEX", "BLEND", "ORDER", "MASKS"}, rows))

	if len(desc.Groups) > 0 {
		fmt.Println(header("Groups"))
		rows = rows[:0]
		for _, g := range desc.Groups {
			rows = append(rows, []string{g.Name, g.Target, strings.Join(g.Ids, ",")})
		}
		fmt.Println(table([]string{"NAME", "TARGET", "IDS"}, rows))
	}

	fmt.Println(header("Motions"))
	rows = rows[:0]
	for _, group := range p.MotionGroups() {
		for _, mo := range p.Motions(group) {
			rows = append(rows, []string{
				fmt.Sprintf("%s[%d]", group, mo.Index),
				mo.Path,
				num(mo.Player.Duration()) + "s",
				fmt.Sprint(mo.Player.Loop()),
			})
		}
	}
	fmt.Println(table([]string{"MOTION", "FILE", "DURATION", "LOOP"}, rows))
	return nil
}

func physicsSummary(p *puppet.Puppet) string {
	ph := p.Physics()
	if ph == nil {
		return "none"
	}
	particles := 0
	for _, r := range ph.Rigs() {
		particles += len(r.Particles)
	}
	return fmt.Sprintf("%d rigs, %d particles", len(ph.Rigs()), particles)
}

func cmdMotion(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: puppettool motion <file.motion3.json>")
		return errUsage
	}

	src, err := formats.ParseMotion3File(args[0])
	if err != nil {
		return err
	}
	player, err := motion.NewPlayer(src)
	if err != nil {
		return err
	}

	fmt.Println(header("Motion " + args[0]))
	fmt.Println(field("Duration", num(src.Meta.Duration)+"s"))
	fmt.Println(field("FPS", num(src.Meta.Fps)))
	fmt.Println(field("Loop", src.Meta.Loop))
	fmt.Println(field("Bezier policy", player.Policy()))

	fmt.Println(header(fmt.Sprintf("Curves (%d)", len(player.Curves()))))
	rows := make([][]string, 0, len(player.Curves()))
	for _, c := range player.Curves() {
		kinds := map[motion.SegmentKind]int{}
		for _, s := range c.Segments {
			kinds[s.Kind]++
		}
		rows = append(rows, []string{
			c.Target.String(),
			c.ID,
			fmt.Sprint(len(c.Segments)),
			segmentMix(kinds),
			num(c.Points[0].Value) + " .. " + num(c.Points[len(c.Points)-1].Value),
		})
	}
	fmt.Println(table([]string{"TARGET", "ID", "SEGMENTS", "KINDS", "VALUES"}, rows))

	if events := player.Events(); len(events) > 0 {
		fmt.Println(header(fmt.Sprintf("Events (%d)", len(events))))
		rows = rows[:0]
		for _, ev := range events {
			rows = append(rows, []string{num(ev.Time) + "s", ev.Value})
		}
		fmt.Println(table([]string{"TIME", "VALUE"}, rows))
	}
	return nil
}

func segmentMix(kinds map[motion.SegmentKind]int) string {
	keys := make([]motion.SegmentKind, 0, len(kinds))
	for k := range kinds {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%d", k, kinds[k])
	}
	return strings.Join(parts, " ")
}

func cmdPlot(args []string) error {
	fs := flag.NewFlagSet("plot", flag.ExitOnError)
	samples := fs.Int("samples", 72, "Number of samples across the duration")
	height := fs.Int("height", 12, "Graph height in rows")
	policy := fs.String("policy", "auto", "Bezier policy: auto, restricted or exact")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Println("Usage: puppettool plot [-samples n] [-height h] [-policy p] <file.motion3.json> <curve-id>")
		return errUsage
	}

	src, err := formats.ParseMotion3File(fs.Arg(0))
	if err != nil {
		return err
	}
	curve, err := findCurve(src, fs.Arg(1))
	if err != nil {
		return err
	}

	pol := motion.PolicyFor(src.Meta.AreBeziersRestricted)
	switch *policy {
	case "restricted":
		pol = motion.BezierRestricted
	case "exact":
		pol = motion.BezierExact
	}

	data := sampleCurve(curve, src.Meta.Duration, *samples, pol)
	graph := asciigraph.Plot(data,
		asciigraph.Height(*height),
		asciigraph.Caption(fmt.Sprintf("%s over %ss (%s)", curve.ID, num(src.Meta.Duration), pol)),
	)
	fmt.Println(graphStyle.Render(graph))
	return nil
}

func findCurve(src *formats.Motion3, id string) (*motion.Curve, error) {
	for _, c := range src.Curves {
		if c.ID == id {
			return motion.NewCurve(c)
		}
	}
	return nil, fmt.Errorf("no curve %q in motion", id)
}

// sampleCurve evaluates c at n evenly spaced times covering [0, duration].
func sampleCurve(c *motion.Curve, duration float32, n int, policy motion.BezierPolicy) []float64 {
	if n < 2 {
		n = 2
	}
	out := make([]float64, n)
	for i := range out {
		t := duration * float32(i) / float32(n-1)
		out[i] = float64(c.EvaluateAt(t, policy))
	}
	return out
}

func cmdSimulate(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	runtime := fs.String("runtime", moc.FixtureCoreName, "Model runtime core")
	seconds := fs.Float64("seconds", 3, "Simulated time")
	rate := fs.Int("rate", 60, "Ticks per second")
	group := fs.String("motion", "", "Motion group to play")
	index := fs.Int("index", 0, "Motion index within the group")
	param := fs.String("param", "", "Parameter to graph")
	fs.Parse(args)

	if fs.NArg() < 1 || *rate <= 0 {
		fmt.Println("Usage: puppettool simulate [-runtime r] [-seconds s] [-rate hz] [-motion group] [-index i] [-param id] <model.model3.json>")
		return errUsage
	}

	p, err := loadPuppet(*runtime, fs.Arg(0))
	if err != nil {
		return err
	}
	defer p.Release()

	if *group != "" {
		if err := p.StartMotion(*group, *index); err != nil {
			return err
		}
	}

	steps := simulate(p, float32(*seconds), *rate, *param)

	fmt.Println(header(fmt.Sprintf("Simulation %s, %ss at %d Hz", fs.Arg(0), num(float32(*seconds)), *rate)))
	rows := make([][]string, 0, len(steps))
	for _, s := range steps {
		if !s.second {
			continue
		}
		rows = append(rows, []string{
			num(s.time) + "s",
			fmt.Sprint(s.stats.Direct),
			fmt.Sprint(s.stats.Mask),
			fmt.Sprint(s.stats.MaskedContent),
			fmt.Sprint(s.stats.Triangles),
			fmt.Sprint(s.events),
			num(s.value),
		})
	}
	fmt.Println(table([]string{"TIME", "DIRECT", "MASK", "MASKED", "TRIS", "EVENTS", strings.ToUpper(orDash(*param))}, rows))

	if *param != "" {
		data := make([]float64, len(steps))
		for i, s := range steps {
			data[i] = float64(s.value)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(72),
			asciigraph.Caption(*param),
		)
		fmt.Println(graphStyle.Render(graph))
	}
	return nil
}

type simStep struct {
	time   float32
	second bool
	stats  compositing.Stats
	events int
	value  float32
}

// simulate ticks p for seconds at rate Hz and records every tick. Steps
// that end a whole second are flagged.
func simulate(p *puppet.Puppet, seconds float32, rate int, param string) []simStep {
	dt := 1 / float32(rate)
	n := int(seconds*float32(rate) + 0.5)
	out := make([]simStep, 0, n)
	for i := 1; i <= n; i++ {
		frame := p.Tick(dt)
		s := simStep{
			time:   float32(i) * dt,
			second: i%rate == 0 || i == n,
			stats:  frame.Stats,
			events: len(frame.Events),
		}
		if param != "" {
			s.value = p.Model().GetParameterValue(param)
		}
		out = append(out, s)
	}
	return out
}

func num(v float32) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
