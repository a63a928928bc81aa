// Package crew runs the actor populations: reindeer that go away and return
// as a full team, elves that work until they need help in groups of three.
// Each actor is one goroutine looping delay → arrive → wait for its group's
// release → perform its post-release action.
package crew
