// Package rttime backs the time module in generated programs.
package rttime

import "time"

// Time returns the epoch time in seconds.
func Time() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// Monotonic returns a monotonic reading in seconds, for interval
// measurement.
func Monotonic() float64 {
	return float64(time.Since(start)) / float64(time.Second)
}

var start = time.Now()

// Sleep blocks for the given number of seconds. The synchronous
// counterpart of the scheduler's sleep.
func Sleep(seconds float64) {
	time.Sleep(time.Duration(seconds * float64(time.Second)))
}
