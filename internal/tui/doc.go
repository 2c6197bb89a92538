// Package tui provides orcbot's live fleet dashboard.
//
// The dashboard polls an orchestrator for status, worker details, usage
// and tasks on a fixed interval, and refreshes early whenever an
// orchestrator event arrives. Press b to open the broadcast prompt, enter
// to send, esc to cancel, and q to quit.
//
// Usage:
//
//	events, cancel := orc.Subscribe()
//	defer cancel()
//	p := tui.NewProgram(orc, events, time.Second)
//	_, err := p.Run()
package tui
