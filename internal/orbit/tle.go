// Package orbit holds each satellite's orbital elements, renders them to
// NORAD two-line element (TLE) records, and propagates those elements
// (not the rendered TLE text) to a geocentric position and ground
// subpoint at an arbitrary time.
//
// There is no TLE-generation code anywhere in the retrieval pack —
// original_source/gps_sats.py downloads real TLEs via skyfield rather
// than synthesizing them — so the column layout and checksum rule below
// are taken directly from the fixed-column NORAD TLE contract and
// implemented against stdlib only (see DESIGN.md).
package orbit

import (
	"fmt"
	"strings"
	"time"
)

// cannedMeanMotion is the fixed mean motion (revolutions/day) every
// synthesized TLE reports, per the contract: eccentricity, drag terms,
// argument of perigee, and mean motion are all canned constants — only
// inclination, RAAN, mean anomaly, catalog number, and epoch vary.
const cannedMeanMotion = 15.336

// OrbitData is a satellite's orbital elements as tracked by the topology,
// independent of any TLE text rendering.
type OrbitData struct {
	CatalogNumber  int
	RightAscension float64 // RAAN, degrees
	Inclination    float64 // degrees
	MeanAnomaly    float64 // degrees
}

// TLE is a rendered two-line element set: two fixed-width 69-character
// lines, each terminated with its own modulo-10 checksum digit.
type TLE struct {
	Line1 string
	Line2 string
}

// CatalogSequence is an injected, monotonically increasing source of
// catalog numbers — a plain counter that each owner (the geo-loop, or a
// test) builds with its own start value via NewCatalogSequence, per
// spec.md §9's resolution that catalog-number assignment must be an
// injectable sequence rather than a package-level global.
type CatalogSequence struct {
	next int
}

// NewCatalogSequence returns a sequence starting at start.
func NewCatalogSequence(start int) *CatalogSequence {
	return &CatalogSequence{next: start}
}

// Next returns the next catalog number and advances the sequence.
func (s *CatalogSequence) Next() int {
	n := s.next
	s.next++
	return n
}

// Generate renders data to a two-line element set with epoch. Two calls
// with identical OrbitData and epoch produce byte-identical output.
func Generate(data OrbitData, epoch time.Time) TLE {
	return TLE{
		Line1: line1(data, epoch),
		Line2: line2(data),
	}
}

func line1(data OrbitData, epoch time.Time) string {
	epoch = epoch.UTC()
	yy := epoch.Year() % 100
	dayFraction := float64(epoch.YearDay()) +
		float64(epoch.Hour())/24 +
		float64(epoch.Minute())/1440 +
		float64(epoch.Second())/86400 +
		float64(epoch.Nanosecond())/86400e9

	body := fmt.Sprintf(
		"1 %05dU 00001A   %02d%012.8f %s %s %s 0  001",
		data.CatalogNumber,
		yy,
		dayFraction,
		" .00000000", // first derivative of mean motion (canned)
		" 00000-0",   // second derivative of mean motion (canned)
		" 00000-0",   // BSTAR drag term (canned)
	)
	return appendChecksum(body)
}

func line2(data OrbitData) string {
	body := fmt.Sprintf(
		"2 %05d %8.4f %8.4f %07d %8.4f %8.4f %11.8f00001",
		data.CatalogNumber,
		normalizeDegrees(data.Inclination),
		normalizeDegrees(data.RightAscension),
		0, // eccentricity, canned (decimal point assumed)
		0.0, // argument of perigee, canned
		normalizeDegrees(data.MeanAnomaly),
		cannedMeanMotion,
	)
	return appendChecksum(body)
}

// normalizeDegrees folds a degree value into [0,360) so rendered fields
// never carry a spurious sign.
func normalizeDegrees(deg float64) float64 {
	for deg < 0 {
		deg += 360
	}
	for deg >= 360 {
		deg -= 360
	}
	return deg
}

// appendChecksum pads body to 68 columns and appends its modulo-10
// checksum as the 69th character.
func appendChecksum(body string) string {
	if len(body) < 68 {
		body += strings.Repeat(" ", 68-len(body))
	}
	body = body[:68]
	return body + string(rune('0'+checksum(body)))
}

// checksum sums every decimal digit in s, counting each '-' as 1 and
// every other character as 0, then reduces modulo 10 — the NORAD TLE
// line checksum rule (spec.md §4.4).
func checksum(s string) int {
	sum := 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum += 1
		}
	}
	return sum % 10
}

// Checksum returns the trailing checksum digit of a rendered 69-column
// TLE line, or -1 if line is shorter than 69 characters.
func Checksum(line string) int {
	if len(line) < 69 {
		return -1
	}
	return int(line[68] - '0')
}

// Verify reports whether line's trailing checksum digit matches the
// modulo-10 checksum of its first 68 columns.
func Verify(line string) bool {
	if len(line) < 69 {
		return false
	}
	return checksum(line[:68]) == Checksum(line)
}
