// Package timespan defines the time units delays are expressed in and
// conversion helpers between them.
//
// Conversions go through decimal arithmetic so second/millisecond/microsecond
// round trips stay exact instead of accumulating float drift.
package timespan
