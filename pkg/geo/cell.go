// Package geo provides the spatial blocking primitives for candidate
// retrieval: geohash-style cell keys, neighbor rings, and geodesic distance.
// Pure computation, no I/O.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCoordinate is returned for out-of-range or non-finite coordinates.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// DefaultPrecision is the cell key length used when config does not override
// it. Precision 5 yields cells of roughly 4.9km x 4.9km at the equator, so a
// 9-cell neighbor block covers the typical search area in one indexed query.
const DefaultPrecision = 5

const base32Alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

var base32Index = func() map[byte]int {
	m := make(map[byte]int, len(base32Alphabet))
	for i := 0; i < len(base32Alphabet); i++ {
		m[base32Alphabet[i]] = i
	}
	return m
}()

// CellKey encodes a coordinate pair into a base32 cell key of the given
// precision. Equal inputs always produce equal keys.
func CellKey(lat, lon float64, precision int) (string, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return "", err
	}
	if precision < 1 || precision > 12 {
		return "", fmt.Errorf("%w: precision %d out of range [1,12]", ErrInvalidCoordinate, precision)
	}

	latLo, latHi := -90.0, 90.0
	lonLo, lonHi := -180.0, 180.0

	key := make([]byte, 0, precision)
	var ch, bit int
	evenBit := true

	for len(key) < precision {
		if evenBit {
			mid := (lonLo + lonHi) / 2
			if lon >= mid {
				ch = ch<<1 | 1
				lonLo = mid
			} else {
				ch <<= 1
				lonHi = mid
			}
		} else {
			mid := (latLo + latHi) / 2
			if lat >= mid {
				ch = ch<<1 | 1
				latLo = mid
			} else {
				ch <<= 1
				latHi = mid
			}
		}
		evenBit = !evenBit

		bit++
		if bit == 5 {
			key = append(key, base32Alphabet[ch])
			bit = 0
			ch = 0
		}
	}

	return string(key), nil
}

// Neighbors returns the 8 adjacent cells plus the cell itself at the same
// precision. Order is not significant; callers use the result as a set.
// Cells beyond the poles are dropped, longitudes wrap at the antimeridian.
func Neighbors(cellKey string) ([]string, error) {
	bounds, err := decodeBounds(cellKey)
	if err != nil {
		return nil, err
	}

	centerLat := (bounds.latLo + bounds.latHi) / 2
	centerLon := (bounds.lonLo + bounds.lonHi) / 2
	dLat := bounds.latHi - bounds.latLo
	dLon := bounds.lonHi - bounds.lonLo

	seen := make(map[string]struct{}, 9)
	cells := make([]string, 0, 9)

	for _, latOff := range []float64{-1, 0, 1} {
		for _, lonOff := range []float64{-1, 0, 1} {
			lat := centerLat + latOff*dLat
			if lat < -90 || lat > 90 {
				continue
			}
			lon := wrapLongitude(centerLon + lonOff*dLon)

			key, err := CellKey(lat, lon, len(cellKey))
			if err != nil {
				return nil, err
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			cells = append(cells, key)
		}
	}

	return cells, nil
}

// ValidateCoordinates rejects non-finite or out-of-range coordinate pairs.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return fmt.Errorf("%w: non-finite value", ErrInvalidCoordinate)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidCoordinate, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidCoordinate, lon)
	}
	return nil
}

type cellBounds struct {
	latLo, latHi float64
	lonLo, lonHi float64
}

func decodeBounds(cellKey string) (cellBounds, error) {
	if cellKey == "" {
		return cellBounds{}, fmt.Errorf("%w: empty cell key", ErrInvalidCoordinate)
	}

	b := cellBounds{latLo: -90, latHi: 90, lonLo: -180, lonHi: 180}
	evenBit := true

	for i := 0; i < len(cellKey); i++ {
		idx, ok := base32Index[cellKey[i]]
		if !ok {
			return cellBounds{}, fmt.Errorf("%w: invalid cell key character %q", ErrInvalidCoordinate, cellKey[i])
		}
		for shift := 4; shift >= 0; shift-- {
			bit := idx >> shift & 1
			if evenBit {
				mid := (b.lonLo + b.lonHi) / 2
				if bit == 1 {
					b.lonLo = mid
				} else {
					b.lonHi = mid
				}
			} else {
				mid := (b.latLo + b.latHi) / 2
				if bit == 1 {
					b.latLo = mid
				} else {
					b.latHi = mid
				}
			}
			evenBit = !evenBit
		}
	}

	return b, nil
}

func wrapLongitude(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
