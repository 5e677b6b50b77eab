// Package srs implements the SM-2 variant that schedules flashcard reviews.
//
// Every function in the package is pure: it takes scheduling state and
// explicit settings and returns new values. Persistence, logging and
// presentation belong to the caller.
//
// Day boundaries follow the location of the "now" argument, so callers pass
// now.In(learnerLocation) to schedule against a learner's local calendar.
package srs
