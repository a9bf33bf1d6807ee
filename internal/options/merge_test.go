package options

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

// keyPaths flattens a tree into sorted dotted key paths.
func keyPaths(t Tree) []string {
	var out []string
	var walk func(prefix string, t Tree)
	walk = func(prefix string, t Tree) {
		for k, v := range t {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			if rec, ok := asRecord(v); ok {
				walk(p, rec)
				continue
			}
			out = append(out, p)
		}
	}
	walk("", t)
	sort.Strings(out)
	return out
}

func TestMerge_OverwritesMatchingKinds(t *testing.T) {
	target := Tree{"a": 1, "b": "x", "c": Tree{"d": true, "e": 0.5}}

	Merge(target, Tree{"a": 2, "b": "y", "c": Tree{"d": false, "e": 0.75}})

	assert.Equal(t, 2, target["a"])
	assert.Equal(t, "y", target["b"])
	assert.Equal(t, false, target["c"].(Tree)["d"])
	assert.Equal(t, 0.75, target["c"].(Tree)["e"])
}

func TestMerge_NeverAddsKeys(t *testing.T) {
	target := ToTree(domain.DefaultOptions())
	before := keyPaths(target)

	Merge(target, Tree{
		"extra": 1,
		"canvas": Tree{
			"width":   640,
			"unknown": "value",
			"interp":  Tree{"tension": 0.5},
		},
	})

	assert.Equal(t, before, keyPaths(target))
	assert.Equal(t, 640, target["canvas"].(Tree)["width"])
}

func TestMerge_DropsKindMismatch(t *testing.T) {
	target := Tree{
		"n":   10,
		"s":   "keep",
		"b":   true,
		"rec": Tree{"x": 1},
	}

	Merge(target, Tree{
		"n":   "ten",
		"s":   5,
		"b":   "yes",
		"rec": 3,
	})

	assert.Equal(t, 10, target["n"])
	assert.Equal(t, "keep", target["s"])
	assert.Equal(t, true, target["b"])
	assert.Equal(t, Tree{"x": 1}, target["rec"])

	// A record never replaces a leaf either.
	Merge(target, Tree{"n": Tree{"x": 2}})
	assert.Equal(t, 10, target["n"])
}

func TestMerge_NumericCoercion(t *testing.T) {
	target := Tree{"i": 1024, "f": 0.25}

	Merge(target, Tree{"i": 512.0, "f": 1})
	assert.Equal(t, 512, target["i"])
	assert.Equal(t, 1.0, target["f"])

	// Fractional values cannot land in an integer slot.
	Merge(target, Tree{"i": 0.5})
	assert.Equal(t, 512, target["i"])
}

func TestMerge_DropsIntegersOutOfRange(t *testing.T) {
	target := Tree{"i": 1024, "f": 0.25}

	Merge(target, Tree{"i": uint64(math.MaxUint64)})
	assert.Equal(t, 1024, target["i"])

	Merge(target, Tree{"i": 1e300})
	assert.Equal(t, 1024, target["i"])

	Merge(target, Tree{"i": math.Inf(-1)})
	assert.Equal(t, 1024, target["i"])

	Merge(target, Tree{"i": uint8(7), "f": uint64(math.MaxUint64)})
	assert.Equal(t, 7, target["i"])
	assert.Equal(t, float64(math.MaxUint64), target["f"], "a float slot takes any integer")
}

func TestMerge_Idempotent(t *testing.T) {
	source := Tree{
		"analyserNode": Tree{"fftSize": 4096.0, "bogus": 1},
		"canvas": Tree{
			"gapPercent": 0.5,
			"interp":     Tree{"type": "cubic", "t": 1},
		},
	}

	once := ToTree(domain.DefaultOptions())
	Merge(once, source)

	twice := Clone(once)
	Merge(twice, source)

	assert.Equal(t, once, twice)
}

func TestMerge_NilInputs(t *testing.T) {
	assert.NotPanics(t, func() {
		Merge(nil, Tree{"a": 1})
		Merge(Tree{"a": 1}, nil)
	})
}

func TestMerge_DoesNotAliasSourceLists(t *testing.T) {
	target := Tree{"l": []any{1}}
	src := []any{2, 3}

	Merge(target, Tree{"l": src})
	src[0] = 99

	assert.Equal(t, []any{2, 3}, target["l"])
}

func TestToTree_MatchesYAMLSchema(t *testing.T) {
	data, err := yaml.Marshal(domain.DefaultOptions())
	require.NoError(t, err)

	fromYAML, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, keyPaths(fromYAML), keyPaths(ToTree(domain.DefaultOptions())))
}

func TestToTree_KeepsFloatKinds(t *testing.T) {
	tree := ToTree(domain.DefaultOptions())
	analyser := tree["analyserNode"].(Tree)

	assert.IsType(t, float64(0), analyser["minDecibels"], "-100 stays a float")
	assert.IsType(t, 0, analyser["fftSize"])
	assert.IsType(t, "", tree["canvas"].(Tree)["interp"].(Tree)["type"])

	opts := domain.DefaultOptions()
	require.NoError(t, Apply(&opts, Tree{"analyserNode": Tree{"minDecibels": -90.5}}))
	assert.Equal(t, -90.5, opts.Analysis.MinDecibels)
}

func TestMerged_KeepsBaseWhereTreeIsSilent(t *testing.T) {
	base := domain.DefaultOptions()
	base.Canvas.Width = 333

	merged, err := Merged(base, Tree{"canvas": Tree{"height": 99}})
	require.NoError(t, err)
	assert.Equal(t, 333, merged.Canvas.Width)
	assert.Equal(t, 99, merged.Canvas.Height)
	assert.Equal(t, base.Canvas.Interp, merged.Canvas.Interp)
}

func TestApply_PartialYAML(t *testing.T) {
	src, err := Parse([]byte(`
analyserNode:
  minDecibels: -90
  fftSize: 128
canvas:
  width: 1280
  subpixelRendering: true
  gapPercent: 0.5
  interp:
    type: cosine
    t: 0.25
    adjacentPointRatio: 0.2
  nonsense: 7
`))
	require.NoError(t, err)

	opts := domain.DefaultOptions()
	require.NoError(t, Apply(&opts, src))

	assert.Equal(t, -90.0, opts.Analysis.MinDecibels)
	assert.Equal(t, -10.0, opts.Analysis.MaxDecibels)
	assert.Equal(t, 128, opts.Analysis.FFTSize)
	assert.Equal(t, 1280, opts.Canvas.Width)
	assert.Equal(t, 600, opts.Canvas.Height)
	assert.True(t, opts.Canvas.SubpixelRendering)
	assert.Equal(t, 0.5, opts.Canvas.GapPercent)
	assert.Equal(t, domain.InterpCosine, opts.Canvas.Interp.Type)
	assert.Equal(t, 0.25, opts.Canvas.Interp.T)
	assert.Equal(t, 0.2, opts.Canvas.Interp.AdjacentPointRatio)
}

func TestApply_InvalidResultLeavesTargetUntouched(t *testing.T) {
	opts := domain.DefaultOptions()

	err := Apply(&opts, Tree{"canvas": Tree{"interp": Tree{"adjacentPointRatio": 0.0}}})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "canvas.interp.adjacentPointRatio", verr.Field)
	assert.Equal(t, domain.DefaultOptions(), opts)
}

func TestApply_UnknownInterpolationRejected(t *testing.T) {
	opts := domain.DefaultOptions()
	err := Apply(&opts, Tree{"canvas": Tree{"interp": Tree{"type": "bezier"}}})
	assert.Error(t, err)
	assert.Equal(t, domain.InterpLinear, opts.Canvas.Interp.Type)
}

func TestDiff_RoundTrip(t *testing.T) {
	base := domain.DefaultOptions()
	current := base
	current.Canvas.Width = 1024
	current.Canvas.MotionBlur = true
	current.Canvas.Interp.Type = domain.InterpCubic

	diff := Diff(base, current)
	assert.Equal(t, []string{"canvas.interp.type", "canvas.motionBlur", "canvas.width"}, keyPaths(diff))

	data, err := Encode(diff)
	require.NoError(t, err)
	parsed, err := Parse(data)
	require.NoError(t, err)

	restored := base
	require.NoError(t, Apply(&restored, parsed))
	assert.Equal(t, current, restored)
}

func TestParse_Empty(t *testing.T) {
	tree, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, tree)

	_, err = Parse([]byte("canvas: [unclosed"))
	assert.Error(t, err)
}
