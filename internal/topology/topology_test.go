package topology

import (
	"log/slog"
	"os"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/piwi3910/HydroSize/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testTables() *model.Tables {
	lvMin := 0.5
	return &model.Tables{
		Fixtures: []model.FixtureRow{
			{Name: "Pia", Sigla: "pt", Weight: 0.4},
			{Name: "Lavatório", Sigla: "lv", Weight: 0.3, MinPressure: &lvMin},
		},
	}
}

func pt(x, y, z float64) model.Point3 { return model.Point3{X: x, Y: y, Z: z} }

func line(a, b model.Point3) model.RawSegment { return model.RawSegment{Start: a, End: b} }

func text(s string, p model.Point3) model.RawLabel { return model.RawLabel{Text: s, Position: p} }

// teeDrawing is a reservoir drop (1), a level run (2) and a tee feeding a
// straight run (3, fixture pt1) and a side branch (4, fixture lv1).
func teeDrawing() model.Drawing {
	r, a, b, c, d := pt(0, 0, 10), pt(0, 0, 5), pt(4, 0, 5), pt(8, 0, 5), pt(4, 3, 5)
	return model.Drawing{
		Segments: []model.RawSegment{line(r, a), line(a, b), line(b, c), line(b, d)},
		Labels: []model.RawLabel{
			text("res", r),
			text("1", a), text("2", b), text("3", c), text("4", d),
			text("pt1", c), text("lv1", d),
		},
	}
}

func key(net *model.Network, id int) model.SegmentKey {
	for _, s := range net.Segments {
		if s.ID != nil && *s.ID == id {
			return s.Key()
		}
	}
	return model.SegmentKey{}
}

func TestBuildTeeNetwork(t *testing.T) {
	net := Build(teeDrawing(), testTables(), model.DefaultSettings(), testLogger())

	require.Len(t, net.Segments, 4)
	assert.Empty(t, net.Anomalies)
	for i, s := range net.Segments {
		require.NotNil(t, s.ID, "segment %d should have an id", i+1)
		assert.Equal(t, i+1, *s.ID)
	}
	assert.Equal(t, []string{"res"}, net.Segments[0].Labels)
	assert.Equal(t, []string{"pt1"}, net.Segments[2].Labels)

	require.Len(t, net.Tees, 1)
	assert.Equal(t, pt(4, 0, 5), net.Tees[0].At)
	assert.Equal(t, [3]model.SegmentKey{key(net, 3), key(net, 4), key(net, 2)}, net.Tees[0].Members)

	require.Len(t, net.Paths, 2)
	lv, pt1 := net.Paths[0], net.Paths[1]
	assert.Equal(t, "lv1", lv.Label)
	assert.Equal(t, "pt1", pt1.Label)
	assert.True(t, pt1.ReachesReservoir)
	require.Len(t, pt1.Steps, 3)
	assert.Equal(t, key(net, 3), pt1.Steps[0].Key)
	assert.Equal(t, key(net, 1), pt1.Steps[2].Key)
	assert.Equal(t, []model.SegmentKey{key(net, 3), key(net, 2)}, pt1.TeeKeys)

	assert.InDelta(t, 0.7, net.ByKey[key(net, 1)].WeightTotal, 1e-12)
	assert.InDelta(t, 0.7, net.ByKey[key(net, 2)].WeightTotal, 1e-12)
	assert.InDelta(t, 0.4, net.ByKey[key(net, 3)].WeightTotal, 1e-12)
	assert.InDelta(t, 0.3, net.ByKey[key(net, 4)].WeightTotal, 1e-12)

	assert.Equal(t, model.FittingNone, net.ByKey[key(net, 1)].Fitting)
	assert.Equal(t, model.FittingElbow90, net.ByKey[key(net, 2)].Fitting, "vertical drop into a level run")
	assert.Equal(t, model.FittingTeeThrough, net.ByKey[key(net, 3)].Fitting)
	assert.Equal(t, model.FittingTeeBranch, net.ByKey[key(net, 4)].Fitting)

	assert.Equal(t, 5.0, pt1.StaticPressure)
	assert.Equal(t, 4.0, pt1.MaxHeadLoss, "default minimum pressure is 1.0")
	assert.Equal(t, 4.5, lv.MaxHeadLoss, "table minimum pressure overrides the default")
	assert.Empty(t, pt1.Warning)
}

func TestBuildTruncatedPath(t *testing.T) {
	d := model.Drawing{
		Segments: []model.RawSegment{line(pt(0, 0, 0), pt(1, 0, 0)), line(pt(5, 0, 0), pt(6, 0, 0))},
		Labels:   []model.RawLabel{text("res", pt(5, 0, 0)), text("pt1", pt(1, 0, 0))},
	}
	net := Build(d, testTables(), model.DefaultSettings(), testLogger())

	require.Len(t, net.Paths, 1)
	assert.False(t, net.Paths[0].ReachesReservoir)
	assert.Len(t, net.Paths[0].Steps, 1)
	assertAnomaly(t, net, model.AnomalyTruncatedPath)
	assertAnomaly(t, net, model.AnomalyMultipleSources)
}

func TestBuildAmbiguousIDLastLabelWins(t *testing.T) {
	d := model.Drawing{
		Segments: []model.RawSegment{line(pt(0, 0, 0), pt(1, 0, 0))},
		Labels:   []model.RawLabel{text("7", pt(1, 0, 0)), text("9", pt(1, 0, 0))},
	}
	net := Build(d, testTables(), model.DefaultSettings(), testLogger())

	require.NotNil(t, net.Segments[0].ID)
	assert.Equal(t, 9, *net.Segments[0].ID)
	assertAnomaly(t, net, model.AnomalyAmbiguousID)
}

func TestBuildLabelPrefersStartPoint(t *testing.T) {
	p := pt(1, 0, 0)
	d := model.Drawing{
		Segments: []model.RawSegment{line(pt(0, 0, 0), p), line(p, pt(2, 0, 0))},
		Labels:   []model.RawLabel{text("rg", p), text("xx", pt(9, 9, 9))},
	}
	net := Build(d, testTables(), model.DefaultSettings(), testLogger())

	assert.Empty(t, net.Segments[0].Labels)
	assert.Equal(t, []string{"rg"}, net.Segments[1].Labels)
	assertAnomaly(t, net, model.AnomalyUnmatchedLabel)
}

func TestBuildDuplicateFixtureLabelKeepsFirstPath(t *testing.T) {
	r := pt(0, 0, 3)
	d := model.Drawing{
		Segments: []model.RawSegment{line(r, pt(1, 0, 3)), line(r, pt(0, 1, 3))},
		Labels:   []model.RawLabel{text("res", r), text("pt1", pt(1, 0, 3)), text("pt1", pt(0, 1, 3))},
	}
	net := Build(d, testTables(), model.DefaultSettings(), testLogger())

	require.Len(t, net.Paths, 1)
	assert.Equal(t, net.Segments[0].Key(), net.Paths[0].Steps[0].Key)
	assertAnomaly(t, net, model.AnomalyDuplicatePath)
}

func TestBuildOverPressureWarning(t *testing.T) {
	r, a := pt(0, 0, 50), pt(0, 0, 2)
	d := model.Drawing{
		Segments: []model.RawSegment{line(r, a), line(a, pt(1, 0, 2))},
		Labels:   []model.RawLabel{text("res", r), text("pt1", pt(1, 0, 2))},
	}
	net := Build(d, testTables(), model.DefaultSettings(), testLogger())
	require.Len(t, net.Paths, 1)
	assert.Equal(t, 48.0, net.Paths[0].StaticPressure)
	assert.Contains(t, net.Paths[0].Warning, "40")

	d.Labels[1].Text = "PT1"
	net = Build(d, testTables(), model.DefaultSettings(), testLogger())
	require.Len(t, net.Paths, 1)
	assert.Equal(t, "PT1", net.Paths[0].Label)
	assert.Equal(t, 48.0, net.Paths[0].StaticPressure)
}

func TestBuildCycleIsReported(t *testing.T) {
	a, b, c := pt(0, 0, 0), pt(1, 0, 0), pt(1, 1, 0)
	d := model.Drawing{
		Segments: []model.RawSegment{line(a, b), line(b, c), line(c, a)},
		Labels:   []model.RawLabel{text("pt1", c)},
	}
	net := Build(d, testTables(), model.DefaultSettings(), testLogger())

	require.Len(t, net.Paths, 1)
	assert.False(t, net.Paths[0].ReachesReservoir)
	assert.Len(t, net.Paths[0].Steps, 3, "revisit guard stops after one lap")
	assertAnomaly(t, net, model.AnomalyCycle)
}

func TestStaticHead(t *testing.T) {
	cases := []struct {
		zRes, zFix, want float64
	}{
		{10, 4, 6},
		{-2, -5, 3},
		{3, -1, 4},
		{0, 2, 2},
		{-1, 2, 3},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StaticHead(c.zRes, c.zFix), "zRes=%v zFix=%v", c.zRes, c.zFix)
	}
}

func TestElbowBetween(t *testing.T) {
	level := model.NewSegment(1, pt(0, 0, 0), pt(1, 0, 0))
	sloped := model.NewSegment(2, pt(0, 0, 1), pt(1, 1, 0))
	vertical := model.NewSegment(3, pt(0, 0, 1), pt(0, 0, 0))

	cases := []struct {
		name   string
		seg    *model.Segment
		up     *model.Segment
		a1, a2 int
		want   model.Fitting
	}{
		{"straight level run", level, level, 0, 0, model.FittingNone},
		{"vertical drop", level, vertical, 0, 0, model.FittingElbow90},
		{"same non-zero bearing", level, level, 90, 90, model.FittingNone},
		{"right angle", level, level, 0, 90, model.FittingElbow90},
		{"two diagonals", level, level, 45, 135, model.FittingElbow90},
		{"square to diagonal", level, level, 90, 45, model.FittingElbow45},
		{"diagonal to level square", level, level, 45, 90, model.FittingElbow45},
		{"diagonal to sloped square", level, sloped, 45, 90, model.FittingElbow90},
		{"odd angle", level, level, 30, 90, model.FittingNone},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, elbowBetween(c.seg, c.up, c.a1, c.a2))
		})
	}
}

func TestFittingNeverOverwritten(t *testing.T) {
	net := Build(teeDrawing(), testTables(), model.DefaultSettings(), testLogger())
	s := net.ByKey[key(net, 3)]
	require.Equal(t, model.FittingTeeThrough, s.Fitting)

	// a second pass of the fitting rules keeps the tee flag
	b := NewBuilder(testTables(), model.DefaultSettings(), testLogger())
	b.markElbows(net)
	b.markTees(net)
	assert.Equal(t, model.FittingTeeThrough, s.Fitting)
}

// chain builds a drawing from the reservoir down to a fixture following moves.
// Every move strictly increases 2x+y-z so no coordinate is visited twice.
func chain(moves []int) model.Drawing {
	steps := []model.Point3{{X: 1}, {Y: 1}, {X: 1, Y: 1}, {Z: -1}, {X: 1, Y: -1}}
	cur := pt(0, 0, 20)
	d := model.Drawing{Labels: []model.RawLabel{text("res", cur)}}
	for _, m := range moves {
		s := steps[m]
		next := pt(cur.X+s.X, cur.Y+s.Y, cur.Z+s.Z)
		d.Segments = append(d.Segments, line(cur, next))
		cur = next
	}
	d.Labels = append(d.Labels, text("pt1", cur))
	return d
}

func TestPathProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("fixture path ends at the reservoir and covers the chain", prop.ForAll(
		func(moves []int) bool {
			moves = append([]int{0}, moves...)
			net := Build(chain(moves), testTables(), model.DefaultSettings(), nil)
			if len(net.Paths) != 1 {
				return false
			}
			p := net.Paths[0]
			if !p.ReachesReservoir || len(p.Steps) != len(moves) {
				return false
			}
			last := net.ByKey[p.Steps[len(p.Steps)-1].Key]
			return last != nil && last.HasLabel("res")
		},
		gen.SliceOf(gen.IntRange(0, 4)),
	))

	properties.Property("every segment on a single path carries the fixture weight", prop.ForAll(
		func(moves []int) bool {
			moves = append([]int{0}, moves...)
			net := Build(chain(moves), testTables(), model.DefaultSettings(), nil)
			for _, s := range net.Segments {
				if s.WeightTotal != 0.4 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 4)),
	))

	properties.TestingRun(t)
}

func assertAnomaly(t *testing.T, net *model.Network, kind model.AnomalyKind) {
	t.Helper()
	for _, a := range net.Anomalies {
		if a.Kind == kind {
			return
		}
	}
	t.Errorf("expected a %s anomaly, got %+v", kind, net.Anomalies)
}
