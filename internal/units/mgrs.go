package units

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// MGRS decoding follows the classic AA lettering scheme used by WGS84 grids.

const (
	numSets    = 6
	letterA    = 'A'
	letterI    = 'I'
	letterO    = 'O'
	letterV    = 'V'
	letterZ    = 'Z'
	setOrigins = "AJSAJS"
	rowOrigins = "AFAFAF"

	utmScale      = 0.9996
	wgs84Radius   = 6378137.0
	wgs84EccSq    = 0.00669438
	falseEasting  = 500000.0
	falseNorthing = 10000000.0
)

var bandMinNorthing = map[byte]float64{
	'C': 1100000, 'D': 2000000, 'E': 2800000, 'F': 3700000, 'G': 4600000,
	'H': 5500000, 'J': 6400000, 'K': 7300000, 'L': 8200000, 'M': 9100000,
	'N': 0, 'P': 800000, 'Q': 1700000, 'R': 2600000, 'S': 3500000,
	'T': 4400000, 'U': 5300000, 'V': 6200000, 'W': 7000000, 'X': 7900000,
}

// ParseMGRS converts a grid reference such as "18SUJ2337106519" (spaces are
// ignored) to the latitude/longitude of the south-west corner of the
// referenced square.
func ParseMGRS(s string) (LatLon, bool) {
	ref := strings.ToUpper(strings.Join(strings.Fields(s), ""))
	if ref == "" {
		return LatLon{}, false
	}

	i := 0
	for i < len(ref) && i < 2 && unicode.IsDigit(rune(ref[i])) {
		i++
	}
	if i == 0 {
		return LatLon{}, false
	}
	zone, err := strconv.Atoi(ref[:i])
	if err != nil || zone < 1 || zone > 60 {
		return LatLon{}, false
	}
	if len(ref) < i+3 {
		return LatLon{}, false
	}

	band := ref[i]
	minNorthing, ok := bandMinNorthing[band]
	if !ok {
		return LatLon{}, false
	}
	col, row := ref[i+1], ref[i+2]
	if col < letterA || col > letterZ || row < letterA || row > letterV || col == letterI || col == letterO || row == letterI || row == letterO {
		return LatLon{}, false
	}

	digits := ref[i+3:]
	if len(digits)%2 != 0 || len(digits) > 10 {
		return LatLon{}, false
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return LatLon{}, false
		}
	}

	set := zone % numSets
	if set == 0 {
		set = numSets
	}
	east100k, ok := eastingFromColumn(col, set)
	if !ok {
		return LatLon{}, false
	}
	north100k, ok := northingFromRow(row, set)
	if !ok {
		return LatLon{}, false
	}
	for north100k < minNorthing {
		north100k += 2000000
	}

	var easting, northing float64
	if half := len(digits) / 2; half > 0 {
		scale := math.Pow(10, float64(5-half))
		e, _ := strconv.Atoi(digits[:half])
		n, _ := strconv.Atoi(digits[half:])
		easting = float64(e) * scale
		northing = float64(n) * scale
	}

	return utmToLatLon(easting+east100k, northing+north100k, zone, band)
}

func eastingFromColumn(col byte, set int) (float64, bool) {
	cur := setOrigins[set-1]
	easting := 100000.0
	wrapped := false
	for cur != col {
		cur++
		if cur == letterI || cur == letterO {
			cur++
		}
		if cur > letterZ {
			if wrapped {
				return 0, false
			}
			cur = letterA
			wrapped = true
		}
		easting += 100000
	}
	return easting, true
}

func northingFromRow(row byte, set int) (float64, bool) {
	cur := rowOrigins[set-1]
	northing := 0.0
	wrapped := false
	for cur != row {
		cur++
		if cur == letterI || cur == letterO {
			cur++
		}
		if cur > letterV {
			if wrapped {
				return 0, false
			}
			cur = letterA
			wrapped = true
		}
		northing += 100000
	}
	return northing, true
}

func utmToLatLon(easting, northing float64, zone int, band byte) (LatLon, bool) {
	eccPrimeSq := wgs84EccSq / (1 - wgs84EccSq)
	e1 := (1 - math.Sqrt(1-wgs84EccSq)) / (1 + math.Sqrt(1-wgs84EccSq))

	x := easting - falseEasting
	y := northing
	if band < 'N' {
		y -= falseNorthing
	}
	longOrigin := float64(zone-1)*6 - 180 + 3

	m := y / utmScale
	mu := m / (wgs84Radius * (1 - wgs84EccSq/4 - 3*wgs84EccSq*wgs84EccSq/64 - 5*math.Pow(wgs84EccSq, 3)/256))

	phi1 := mu + (3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96)*math.Sin(6*mu)

	sinPhi, cosPhi, tanPhi := math.Sin(phi1), math.Cos(phi1), math.Tan(phi1)
	n1 := wgs84Radius / math.Sqrt(1-wgs84EccSq*sinPhi*sinPhi)
	t1 := tanPhi * tanPhi
	c1 := eccPrimeSq * cosPhi * cosPhi
	r1 := wgs84Radius * (1 - wgs84EccSq) / math.Pow(1-wgs84EccSq*sinPhi*sinPhi, 1.5)
	d := x / (n1 * utmScale)

	lat := phi1 - (n1*tanPhi/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*eccPrimeSq)*math.Pow(d, 4)/24+
		(61+90*t1+298*c1+45*t1*t1-252*eccPrimeSq-3*c1*c1)*math.Pow(d, 6)/720)
	lon := (d - (1+2*t1+c1)*math.Pow(d, 3)/6 +
		(5-2*c1+28*t1-3*c1*c1+8*eccPrimeSq+24*t1*t1)*math.Pow(d, 5)/120) / cosPhi

	p := LatLon{
		Lat: lat * 180 / math.Pi,
		Lon: longOrigin + lon*180/math.Pi,
	}
	return p, p.Valid()
}
