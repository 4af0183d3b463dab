// Package rtmath backs the math module in generated programs.
package rtmath

import "math"

const (
	Pi = math.Pi
	E  = math.E
)

func Sqrt(x float64) float64 { return math.Sqrt(x) }
func Floor(x float64) int64 { return int64(math.Floor(x)) }
func Ceil(x float64) int64 { return int64(math.Ceil(x)) }
func Pow(x, y float64) float64 { return math.Pow(x, y) }
func Log(x float64) float64 { return math.Log(x) }
func Sin(x float64) float64 { return math.Sin(x) }
func Cos(x float64) float64 { return math.Cos(x) }
func Fabs(x float64) float64 { return math.Abs(x) }
func Fmod(x, y float64) float64 { return math.Mod(x, y) }
func Hypot(x, y float64) float64 { return math.Hypot(x, y) }
