// Package engine contains the charging decision logic: battery strategy
// classification, power budgets per source, the time-of-day windows, the
// amps planner and the actuator drift classifier.
//
// Everything here is a pure function of its arguments. State that survives
// between cycles, such as the nightly amps cache, is passed in and returned
// explicitly.
package engine
