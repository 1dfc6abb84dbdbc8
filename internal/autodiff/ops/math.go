package ops

import "math"

func expT[T float32 | float64](v T) T {
	return T(math.Exp(float64(v)))
}

func logT[T float32 | float64](v T) T {
	return T(math.Log(float64(v)))
}
