// Package mapping converts French projected coordinates to WGS84 and builds
// the GeoJSON layers shown on the establishment map.
package mapping

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// GRS80 ellipsoid.
const (
	grs80A    = 6378137.0
	grs80InvF = 298.257222101
)

const (
	maxLatIterations = 15
	latTolerance     = 1e-12
)

// LatLng is a geographic position as [latitude, longitude] in degrees.
type LatLng [2]float64

// Lat returns the latitude.
func (p LatLng) Lat() float64 { return p[0] }

// Lng returns the longitude.
func (p LatLng) Lng() float64 { return p[1] }

// Projection is a Lambert conformal conic projection with two standard
// parallels. Only the inverse (projected to geographic) is implemented.
type Projection struct {
	Name string

	a    float64 // semi-major axis
	e    float64 // eccentricity
	lon0 float64 // radians
	x0   float64
	y0   float64

	n    float64
	f    float64
	rho0 float64

	err error
}

// Lambert93 is RGF93 / Lambert-93 (EPSG:2154), used by current SIRENE data.
var Lambert93 = NewLambertConic("lambert93", 44, 49, 46.5, 3, 700000, 6600000)

// LambertIIExtended is the Lambert II étendu grid found in older extracts.
var LambertIIExtended = NewLambertConic("lambert2e", 45.898918, 47.696014, 46.8, 2.337229167, 600000, 2200000)

// ByName returns one of the built-in projections.
func ByName(name string) (*Projection, error) {
	switch name {
	case "lambert93", "":
		return Lambert93, nil
	case "lambert2e":
		return LambertIIExtended, nil
	default:
		return nil, eris.Errorf("mapping: unknown projection %q", name)
	}
}

// NewLambertConic builds a projection on the GRS80 ellipsoid. Angles are in
// degrees. An invalid definition is not rejected here: it is recorded and
// every conversion through it logs and returns nil.
func NewLambertConic(name string, lat1, lat2, lat0, lon0, x0, y0 float64) *Projection {
	return newLambertConic(name, grs80A, 1/grs80InvF, lat1, lat2, lat0, lon0, x0, y0)
}

func newLambertConic(name string, a, flattening, lat1, lat2, lat0, lon0, x0, y0 float64) *Projection {
	p := &Projection{Name: name, a: a, lon0: radians(lon0), x0: x0, y0: y0}

	if !(a > 0) || flattening < 0 || flattening >= 1 {
		p.err = eris.Errorf("mapping: %s: invalid ellipsoid", name)
		return p
	}
	for _, lat := range []float64{lat1, lat2, lat0} {
		if math.IsNaN(lat) || math.Abs(lat) >= 90 {
			p.err = eris.Errorf("mapping: %s: latitude %v out of range", name, lat)
			return p
		}
	}

	p.e = math.Sqrt(flattening * (2 - flattening))
	phi1, phi2, phi0 := radians(lat1), radians(lat2), radians(lat0)

	m1, m2 := p.m(phi1), p.m(phi2)
	t1, t2, t0 := p.t(phi1), p.t(phi2), p.t(phi0)

	if math.Abs(phi1-phi2) < 1e-10 {
		p.n = math.Sin(phi1)
	} else {
		p.n = (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	}
	if math.Abs(p.n) < 1e-10 || math.IsNaN(p.n) {
		p.err = eris.Errorf("mapping: %s: degenerate cone", name)
		return p
	}

	p.f = m1 / (p.n * math.Pow(t1, p.n))
	p.rho0 = a * p.f * math.Pow(t0, p.n)
	return p
}

// Err reports a definition problem, if any.
func (p *Projection) Err() error {
	return p.err
}

// ToLatLng converts an easting/northing pair. It returns nil for non-finite
// input, an invalid projection, or a point outside the valid domain, and
// never panics. Failures are logged.
func (p *Projection) ToLatLng(x, y float64) *LatLng {
	if !finite(x) || !finite(y) {
		return nil
	}
	if p == nil {
		zap.L().Warn("mapping: nil projection")
		return nil
	}
	if p.err != nil {
		zap.L().Warn("mapping: projection unusable", zap.String("projection", p.Name), zap.Error(p.err))
		return nil
	}

	ll, err := p.inverse(x, y)
	if err != nil {
		zap.L().Warn("mapping: coordinate conversion failed",
			zap.String("projection", p.Name),
			zap.Float64("x", x),
			zap.Float64("y", y),
			zap.Error(err),
		)
		return nil
	}
	return ll
}

// ToLatLngPtr is ToLatLng for optional coordinates; nil input gives nil.
func (p *Projection) ToLatLngPtr(x, y *float64) *LatLng {
	if x == nil || y == nil {
		return nil
	}
	return p.ToLatLng(*x, *y)
}

func (p *Projection) inverse(x, y float64) (*LatLng, error) {
	sign := 1.0
	if p.n < 0 {
		sign = -1
	}
	dx := x - p.x0
	dy := p.rho0 - (y - p.y0)

	rho := sign * math.Hypot(dx, dy)
	theta := math.Atan2(sign*dx, sign*dy)

	var phi float64
	if rho == 0 {
		phi = sign * math.Pi / 2
	} else {
		t := math.Pow(rho/(p.a*p.f), 1/p.n)
		var err error
		phi, err = p.latitude(t)
		if err != nil {
			return nil, err
		}
	}
	lambda := theta/p.n + p.lon0

	lat, lng := degrees(phi), degrees(lambda)
	if !finite(lat) || !finite(lng) || math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return nil, eris.Errorf("result (%v, %v) outside geographic range", lat, lng)
	}
	return &LatLng{lat, lng}, nil
}

// latitude solves t = t(phi) by fixed-point iteration.
func (p *Projection) latitude(t float64) (float64, error) {
	if !finite(t) || t < 0 {
		return 0, eris.Errorf("isometric latitude %v out of domain", t)
	}
	phi := math.Pi/2 - 2*math.Atan(t)
	for range maxLatIterations {
		es := p.e * math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(t*math.Pow((1-es)/(1+es), p.e/2))
		if math.Abs(next-phi) < latTolerance {
			return next, nil
		}
		phi = next
	}
	return 0, eris.New("latitude iteration did not converge")
}

func (p *Projection) m(phi float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-p.e*p.e*s*s)
}

func (p *Projection) t(phi float64) float64 {
	es := p.e * math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-es)/(1+es), p.e/2)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
