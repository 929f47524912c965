// Package websocket streams solver run events to browser and CLI clients.
//
// A central Hub tracks connections by topic: a puzzle ID, a RunTopic, or
// TopicAll for every run. The Hub implements service.ProgressSink, so the
// solver service publishes into it directly:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	solver := service.NewSolverService(runs, puzzles, service.WithProgressSink(hub))
//
// Message Protocol:
//
// Clients pick a topic with ?puzzle=<id> or ?run=<id>; without either they
// receive every run.
//
// Each frame carries one JSON Message with an event name:
//   - solve_started: the run as first stored
//   - progress: engine.Progress counters, throttled per run
//   - solve_finished: the final run record
//
// Clients do not send anything; the read loop only services pings.
//
// Concurrency:
//
// Publishing never blocks the search. A client whose send buffer is full is
// dropped instead.
package websocket
