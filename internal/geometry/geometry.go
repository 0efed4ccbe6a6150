// Package geometry derives ball size and goal geometry from the stadium disc snapshot
// the host provides at match start.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/pable/go-hax-metrics/internal/model"
)

var (
	ErrNoBall     = errors.New("no ball disc in stadium")
	ErrGoalPosts  = errors.New("goal posts unresolved")
	errDegenerate = errors.New("goal posts coincide")
)

// Flags are the collision-group bits that identify the ball and goal sentinels.
type Flags struct {
	Ball   uint32
	RedKO  uint32
	BlueKO uint32
}

// Options carries the constants used by Resolve.
type Options struct {
	Flags             Flags
	PlayerRadius      float64
	TouchMargin       float64
	DefaultBallRadius float64
	GoalAreaFactor    float64
	GoalpostEpsilon   float64
}

// DefaultOptions matches the host's stock stadium units and collision bits.
func DefaultOptions() Options {
	return Options{
		Flags:             Flags{Ball: 1, RedKO: 8, BlueKO: 16},
		PlayerRadius:      15,
		TouchMargin:       0.01,
		DefaultBallRadius: 5.8,
		GoalAreaFactor:    1.5,
		GoalpostEpsilon:   0.1,
	}
}

// Resolve scans discs once and returns the match geometry. The result is always usable:
// a missing ball falls back to DefaultBallRadius and unresolvable posts leave both goals
// nil. The returned error lists what fell back and is not fatal.
func Resolve(discs []model.Disc, opts Options) (model.StadiumGeometry, error) {
	var errs []error

	radius, ok := ballRadius(discs, opts.Flags.Ball)
	if !ok {
		radius = opts.DefaultBallRadius
		errs = append(errs, fmt.Errorf("%w: using default radius %.1f", ErrNoBall, radius))
	}
	g := model.StadiumGeometry{
		BallRadius:     radius,
		TouchThreshold: radius + opts.PlayerRadius + opts.TouchMargin,
	}

	red, blue, err := goals(discs, opts)
	if err != nil {
		errs = append(errs, err)
	} else {
		g.Red, g.Blue = red, blue
	}
	return g, errors.Join(errs...)
}

func ballRadius(discs []model.Disc, flag uint32) (float64, bool) {
	for _, d := range discs {
		if d.CollisionGroup&flag != 0 {
			return d.Radius, true
		}
	}
	return 0, false
}

// goals splits goal markers by side: the markers at the smallest x are Red.
func goals(discs []model.Disc, opts Options) (*model.GoalGeometry, *model.GoalGeometry, error) {
	var posts []model.Vec2
	minX := math.Inf(1)
	mask := opts.Flags.RedKO | opts.Flags.BlueKO
	for _, d := range discs {
		if d.CollisionGroup&mask != 0 {
			posts = append(posts, d.Position)
			minX = math.Min(minX, d.Position.X)
		}
	}

	var red, blue []model.Vec2
	for _, p := range posts {
		if math.Abs(p.X-minX) < opts.GoalpostEpsilon {
			red = append(red, p)
		} else {
			blue = append(blue, p)
		}
	}
	if len(red) != 2 || len(blue) != 2 {
		return nil, nil, fmt.Errorf("%w: found %d red and %d blue markers", ErrGoalPosts, len(red), len(blue))
	}

	rg, err := goal(red, opts.GoalAreaFactor)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: red: %w", ErrGoalPosts, err)
	}
	bg, err := goal(blue, opts.GoalAreaFactor)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: blue: %w", ErrGoalPosts, err)
	}
	return rg, bg, nil
}

func goal(posts []model.Vec2, areaFactor float64) (*model.GoalGeometry, error) {
	size := math.Abs(posts[1].Y - posts[0].Y)
	if size == 0 {
		return nil, errDegenerate
	}
	return &model.GoalGeometry{
		Posts: [2]model.Vec2{posts[0], posts[1]},
		Size:  size,
		Mid: model.Vec2{
			X: posts[0].X,
			Y: math.Min(posts[0].Y, posts[1].Y) + size/2,
		},
		AreaRadius: areaFactor * size / 2,
	}, nil
}
