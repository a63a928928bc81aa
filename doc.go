// Package dispatch coordinates the North Pole rendezvous protocol: a single
// dispatcher services completed groups of returning reindeer and help-seeking
// elves, reindeer first when both are ready, one group at a time.
//
// The engine is assembled through the Service façade and driven through its
// Runtime:
//
//	srv, err := dispatch.New()
//	if err != nil { ... }
//	rt := srv.Runtime()
//	_ = rt.Start(ctx)
//	defer rt.Shutdown(ctx)
//
// Observation is event based: subscribe to activity events to narrate or
// journal the protocol without ever blocking it.
package dispatch
