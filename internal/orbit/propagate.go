package orbit

import (
	"math"
	"time"
)

// earthMu is Earth's standard gravitational parameter in km^3/s^2.
const earthMu = 398600.4418

// earthRadiusKm is the mean equatorial radius used for the spherical-earth
// geodetic reduction below (spec.md §4.5 asks only for a geodetic
// subpoint, not a WGS84-accurate one).
const earthRadiusKm = 6378.137

// siderealDaySeconds is the length of one Earth sidereal rotation.
const siderealDaySeconds = 86164.0905

// ECEF is a geocentric position in kilometers, Earth-fixed frame.
type ECEF struct {
	X, Y, Z float64
}

// HasNaN reports whether any component of p is NaN — the propagator's
// contract (spec.md §4.5a) is that callers filter these out rather than
// emit a position event for them.
func (p ECEF) HasNaN() bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z)
}

// epoch is the reference instant mean anomaly/RAAN are defined at. Using
// the Unix epoch keeps Propagate a pure function of (OrbitData, t) with
// no hidden process-start-time state.
var epoch = time.Unix(0, 0).UTC()

// Propagate computes satellite data's geocentric position at t, treating
// the orbit as circular (eccentricity 0, argument of perigee 0, per the
// canned TLE fields) at the altitude implied by the canned 15.336 rev/day
// mean motion. Not required to be thread-safe: it holds no package state
// and callers serialize their own access per the spec's contract.
func Propagate(data OrbitData, t time.Time) ECEF {
	meanMotionRadPerSec := cannedMeanMotion * 2 * math.Pi / 86400
	semiMajorAxis := math.Cbrt(earthMu / (meanMotionRadPerSec * meanMotionRadPerSec))

	dt := t.Sub(epoch).Seconds()
	meanAnomalyRad := toRadians(data.MeanAnomaly) + meanMotionRadPerSec*dt
	argLat := meanAnomalyRad // argument of perigee is canned to 0

	inclination := toRadians(data.Inclination)
	raan := toRadians(data.RightAscension)

	sinU, cosU := math.Sincos(argLat)
	sinI, cosI := math.Sincos(inclination)
	sinO, cosO := math.Sincos(raan)

	// Standard orbital-plane-to-ECI rotation (RAAN, inclination, argument
	// of latitude), then ECI-to-ECEF via Earth's rotation angle.
	xEci := semiMajorAxis * (cosO*cosU - sinO*sinU*cosI)
	yEci := semiMajorAxis * (sinO*cosU + cosO*sinU*cosI)
	zEci := semiMajorAxis * (sinU * sinI)

	theta := earthRotationAngle(t)
	sinT, cosT := math.Sincos(theta)

	return ECEF{
		X: xEci*cosT + yEci*sinT,
		Y: -xEci*sinT + yEci*cosT,
		Z: zEci,
	}
}

// earthRotationAngle returns Earth's rotation angle at t relative to the
// orbit epoch, in radians, used to rotate ECI into ECEF.
func earthRotationAngle(t time.Time) float64 {
	dt := t.Sub(epoch).Seconds()
	rotations := dt / siderealDaySeconds
	return 2 * math.Pi * (rotations - math.Floor(rotations))
}

// Subpoint reduces a geocentric position to geodetic latitude (degrees),
// longitude (degrees), and height above the mean spherical Earth (km).
func Subpoint(p ECEF) (lat, lon, heightKm float64) {
	r := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
	lat = toDegrees(math.Asin(p.Z / r))
	lon = toDegrees(math.Atan2(p.Y, p.X))
	heightKm = r - earthRadiusKm
	return lat, lon, heightKm
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

// ObserverECEF places a ground observer at (lat, lon, heightKm) on the
// same spherical-earth model Subpoint reduces against, for use as the
// origin of a topocentric Elevation computation.
func ObserverECEF(latDeg, lonDeg, heightKm float64) ECEF {
	lat := toRadians(latDeg)
	lon := toRadians(lonDeg)
	r := earthRadiusKm + heightKm
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)
	return ECEF{
		X: r * cosLat * cosLon,
		Y: r * cosLat * sinLon,
		Z: r * sinLat,
	}
}

// Elevation returns the topocentric elevation angle (degrees above the
// observer's local horizon) and straight-line distance (km) from an
// observer at (obsLat, obsLon, obsHeightKm) to satPos, via an ENU
// (east-north-up) transform of the line-of-sight vector.
func Elevation(satPos ECEF, obsLat, obsLon, obsHeightKm float64) (elevationDeg, distanceKm float64) {
	obs := ObserverECEF(obsLat, obsLon, obsHeightKm)
	dx, dy, dz := satPos.X-obs.X, satPos.Y-obs.Y, satPos.Z-obs.Z
	distanceKm = math.Sqrt(dx*dx + dy*dy + dz*dz)

	lat := toRadians(obsLat)
	lon := toRadians(obsLon)
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	// East, north, up components of the line-of-sight vector.
	e := -sinLon*dx + cosLon*dy
	n := -sinLat*cosLon*dx - sinLat*sinLon*dy + cosLat*dz
	u := cosLat*cosLon*dx + cosLat*sinLon*dy + sinLat*dz

	horizontal := math.Sqrt(e*e + n*n)
	elevationDeg = toDegrees(math.Atan2(u, horizontal))
	return elevationDeg, distanceKm
}
