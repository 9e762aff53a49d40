// Package harness runs scripted board scenarios through a real engine and rules authority
// and checks what came out.
//
// # Scenario Format
//
// Scenarios are YAML files. Each step is one grid read, built from the previous frame the
// same way scan scripts are (start, clear, board, lift, place, fail), optionally preceded by
// a new-game request:
//
//	name: opening
//	description: "King's pawn opening with a piece put back"
//	session: opening
//	steps:
//	  - start: true
//	    expect: {state: active, indicator: green}
//	  - lift: e2
//	    expect: {pending: 1, indicator: yellow}
//	  - place: e4
//	    expect: {move: e4}
//	  - new_game: true
//	expect:
//	  state: active
//	  moves: [e4]
//
// Step expectations check the scan that step produced: state, indicator, pending, move (SAN
// or long algebraic) and error (a desync code, or "fault:<op>"). The final expectation
// checks the engine status after the last step.
//
// # Deterministic Testing
//
// Every scenario gets a fresh engine, a fixed session id (the scenario's session, then
// "-2", "-3" for later sessions) and scan numbers starting at 1, so the same scenario always
// produces a byte-identical trace for golden comparison.
package harness
