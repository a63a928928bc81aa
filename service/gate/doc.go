// Package gate provides the batch release primitive used to admit a counted
// group of waiting actors in one operation. Actors enroll into the currently
// forming batch, the batch is sealed once the group threshold is reached, and
// a sealed batch is opened as a whole: exactly its members, never more,
// never fewer. An actor enrolling after a seal lands in the next batch, which
// keeps group membership unambiguous even when new arrivals overlap with a
// pending release.
package gate
