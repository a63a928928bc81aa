// Package dispatcher hosts the single worker that serialises service of
// completed groups. The worker sleeps on the wake queue, and on every wake
// re-checks real pending state rather than trusting the event's cause tag:
// a pending reindeer group is always serviced before a pending elf group,
// and one group is handled at a time from gate opening through to the
// dispatched action.
package dispatcher
