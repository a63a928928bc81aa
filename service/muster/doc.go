// Package muster counts arrivals of one actor kind toward a fixed group
// threshold. The arrival that reaches the threshold resets the counter,
// seals the counted cohort on the release gate and publishes a single wake
// event, all inside one critical section, so a new arrival can never be
// mixed into a group that has already been signalled.
package muster
