// Package deferral schedules the reveal of many deferred UI units. Units
// register a callback; the Scheduler releases them under one of three modes
// (sequential, sync batches, concurrent batches), each release gated by a
// paint opportunity plus a configurable delay. Pause stops new batches from
// starting, Cancel retires a unit whether or not it has been released.
package deferral
