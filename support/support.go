// Package support converts scalar values to and from fixed-width
// categorical distributions, so that value and reward heads can be
// trained with a classification loss.
//
// A scalar is first squashed with an invertible transform, then spread
// over the two integer bins adjacent to the squashed value (a two-hot
// encoding). A support of radius r covers the integer bins -r..r and
// has width 2*r+1.
package support

import "math"

// epsilon keeps the squashing transform strictly monotonic and
// near-linear around zero.
const epsilon = 0.001

// Width returns the number of bins for a support of the given radius.
func Width(radius int) int {
	return 2*radius + 1
}

// Transform squashes a scalar into support space:
// sign(v) * (sqrt(|v|+1) - 1) + epsilon*v.
func Transform(v float64) float64 {
	return sign(v)*(math.Sqrt(math.Abs(v)+1)-1) + epsilon*v
}

// InverseTransform undoes Transform, ignoring the epsilon term.
// Exact only for epsilon = 0; tests account for the residual.
func InverseTransform(s float64) float64 {
	a := math.Abs(s)
	return sign(s) * ((a+1)*(a+1) - 1)
}

// Encode maps a scalar to a two-hot distribution over 2*radius+1 bins.
// The squashed value is clamped to [-radius, radius] and split between
// the two adjacent integer bins. When the upper bin would fall past the
// end of the support, only the lower bin receives weight; at that
// boundary the clamped value sits exactly on the lower bin, so no mass
// is lost in practice.
func Encode(v float64, radius int) []float64 {
	s := Transform(v)
	r := float64(radius)
	if s < -r {
		s = -r
	} else if s > r {
		s = r
	}

	low := math.Floor(s)
	frac := s - low

	dist := make([]float64, Width(radius))
	dist[int(low)+radius] = 1 - frac
	if hi := int(low) + 1 + radius; hi < len(dist) {
		dist[hi] = frac
	}
	return dist
}

// Decode recovers the scalar represented by a support distribution:
// the expectation over bin centers, passed through InverseTransform.
// It is the formal inverse of Encode up to the epsilon term and the
// clamping at the support boundary.
func Decode(dist []float64, radius int) float64 {
	var s float64
	for i, p := range dist {
		s += p * float64(i-radius)
	}
	return InverseTransform(s)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	if v > 0 {
		return 1
	}
	return 0
}
