// Package interview runs the conversation workflow of an AI-conducted job
// interview.
//
// Each call to SendMessage is one turn. The engine loads the thread's state
// from a checkpoint.Store, appends the candidate's input and runs the turn
// graph:
//
//	generate -> (tools -> generate)* -> validate -> analyze -> convert -> (convert)* -> END
//
//   - generate asks the model for the next interviewer reply, with the
//     get_server_time and end_interview tools bound.
//   - tools executes the reply's tool calls and records their results.
//   - validate has a second model call judge the reply. A rejected reply is
//     pruned and regenerated at the start of the next turn.
//   - analyze refreshes the candidate's behavior profile. It never fails
//     the turn.
//   - convert parses the reply into a structured payload, retrying with a
//     growing window of context until the payload is confident or the
//     attempt ceiling is reached.
//
// The final state is persisted when the graph reaches END. A turn that
// fails, for example because the model stayed unavailable through every
// retry, persists nothing.
//
//	engine, err := interview.New(store, client,
//	    interview.WithModel("claude-sonnet-4-5", 4096),
//	    interview.WithLogger(logger))
//	state, err := engine.SendMessage(ctx, threadID, turn, interview.Input{Text: "start"})
//
// Messages are merged with Reconcile, the only state-merge rule of the
// package.
package interview
