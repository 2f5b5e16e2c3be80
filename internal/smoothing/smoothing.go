package smoothing

import (
	"errors"
	"fmt"
	"math"

	"github.com/virtualmission/vlm/internal/geo"
	"github.com/virtualmission/vlm/pkg/core"
)

// Config holds the smoothing parameters. It is fixed for the life of an Engine.
type Config struct {
	// MinCurve is the curve radius (m) below which a waypoint is a sharp corner.
	MinCurve float64
	// BezierPoints is the number of samples taken along each waypoint's curve.
	BezierPoints int
	// InfillDistance is the largest gap (m, 3D) allowed between consecutive points.
	InfillDistance float64
}

// DefaultConfig returns the stock smoothing parameters.
func DefaultConfig() Config {
	return Config{
		MinCurve:       5,
		BezierPoints:   5,
		InfillDistance: 1000,
	}
}

var (
	// ErrInvalidConfig is returned by NewEngine for unusable parameters.
	ErrInvalidConfig = errors.New("invalid smoothing config")
	// ErrPathTooLong is returned when a path would exceed MaxPathPoints.
	ErrPathTooLong = errors.New("smoothed path too long")
)

// MaxPathPoints bounds the length of one smoothed path.
const MaxPathPoints = 200_000

// Validate reports the first unusable parameter.
func (c Config) Validate() error {
	if c.BezierPoints < 1 {
		return fmt.Errorf("bezierPoints must be at least 1, got %d: %w", c.BezierPoints, ErrInvalidConfig)
	}
	if !(c.InfillDistance > 0) {
		return fmt.Errorf("infillDistance must be positive, got %v: %w", c.InfillDistance, ErrInvalidConfig)
	}
	if c.MinCurve < 0 {
		return fmt.Errorf("minCurve must not be negative, got %v: %w", c.MinCurve, ErrInvalidConfig)
	}
	return nil
}

// Engine turns a waypoint sequence into a dense, curved flight path.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and creates an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine parameters.
func (e *Engine) Config() Config {
	return e.cfg
}

// Smooth returns the smoothed path through waypoints. Waypoints must carry the
// leg Distance computed at ingestion and corrected altitudes. The input slice
// is not modified. Paths that would need more than MaxPathPoints points fail
// with ErrPathTooLong.
func (e *Engine) Smooth(waypoints []core.Waypoint) ([]core.Waypoint, error) {
	if len(waypoints) == 0 {
		return nil, nil
	}

	first := waypoints[0].Copy(true)
	first.LegTime = 0
	path := []core.Waypoint{first}

	var err error
	for i := 1; i < len(waypoints)-1; i++ {
		pp, wp, np := waypoints[i-1], waypoints[i], waypoints[i+1]
		if wp.CurveRadius < e.cfg.MinCurve || wp.Distance == 0 || np.Distance == 0 {
			path, err = e.fillTo(path, wp.Copy(true))
		} else {
			path, err = e.curve(path, pp, wp, np)
		}
		if err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", wp.Num, err)
		}
	}

	if len(waypoints) > 1 {
		last := waypoints[len(waypoints)-1]
		if path, err = e.fillTo(path, last.Copy(true)); err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", last.Num, err)
		}
	}
	return path, nil
}

// bezier evaluates a quadratic Bezier with control values a at t.
func bezier(a [3]float64, t float64) float64 {
	return (a[0]-2*a[1]+a[2])*t*t + 2*(a[1]-a[0])*t + a[0]
}

// controls builds the per-axis control values around wp, pulled in from the
// neighbours by the curve radius.
func controls(pp, wp, np core.Waypoint, get func(core.Waypoint) float64) [3]float64 {
	r := wp.CurveRadius
	return [3]float64{
		get(wp) - (r/wp.Distance)*(get(wp)-get(pp)),
		get(wp),
		get(wp) + (r/np.Distance)*(get(np)-get(wp)),
	}
}

func lat(w core.Waypoint) float64 { return w.Latitude }
func lon(w core.Waypoint) float64 { return w.Longitude }
func alt(w core.Waypoint) float64 { return w.Altitude }

// curve samples the Bezier around wp. The waypoint itself takes the place of
// the t=0.5 sample when N is odd and follows sample (N-1)/2 when N is even.
func (e *Engine) curve(path []core.Waypoint, pp, wp, np core.Waypoint) ([]core.Waypoint, error) {
	bzLat := controls(pp, wp, np, lat)
	bzLon := controls(pp, wp, np, lon)
	bzAlt := controls(pp, wp, np, alt)

	n := e.cfg.BezierPoints
	var err error
	for k := 0; k < n; k++ {
		if 2*k != n-1 {
			t := float64(k) / float64(n-1)
			sp := wp.Copy(false)
			sp.Latitude = bezier(bzLat, t)
			sp.Longitude = bezier(bzLon, t)
			sp.Altitude = bezier(bzAlt, t)
			if path, err = e.fillTo(path, sp); err != nil {
				return nil, err
			}
		}
		if k == (n-1)/2 {
			if path, err = e.fillTo(path, wp.Copy(true)); err != nil {
				return nil, err
			}
		}
	}
	return path, nil
}

// fillTo appends wp, first inserting evenly spaced thin copies of the last
// point so that no gap exceeds the infill distance.
func (e *Engine) fillTo(path []core.Waypoint, wp core.Waypoint) ([]core.Waypoint, error) {
	pp := path[len(path)-1]
	dist := geo.Distance3D(pp.GeoPoint, wp.GeoPoint)
	d := math.Ceil(dist / e.cfg.InfillDistance)
	if math.IsNaN(d) || d > float64(MaxPathPoints-len(path)) {
		return nil, fmt.Errorf("leg of %.0f m at %v m spacing: %w", dist, e.cfg.InfillDistance, ErrPathTooLong)
	}
	for j := 1; j < int(d); j++ {
		f := float64(j) / d
		sp := pp.Copy(false)
		sp.Latitude = pp.Latitude + f*(wp.Latitude-pp.Latitude)
		sp.Longitude = pp.Longitude + f*(wp.Longitude-pp.Longitude)
		sp.Altitude = pp.Altitude + f*(wp.Altitude-pp.Altitude)
		path = appendPoint(path, sp)
	}
	return appendPoint(path, wp), nil
}

// appendPoint records the leg from the current last point and appends p.
func appendPoint(path []core.Waypoint, p core.Waypoint) []core.Waypoint {
	prev := path[len(path)-1]
	p.Distance = geo.Distance3D(prev.GeoPoint, p.GeoPoint)
	p.Bearing = geo.Bearing(prev.GeoPoint, p.GeoPoint)
	p.LegTime = 0
	if prev.Speed > 0 {
		p.LegTime = p.Distance / prev.Speed
	}
	return append(path, p)
}
