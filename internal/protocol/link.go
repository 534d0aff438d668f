package protocol

import "fmt"

// Link events are produced by the transport, not the controller.

type LinkConnecting struct{ Attempt int }

func (e LinkConnecting) String() string { return fmt.Sprintf("LinkConnecting(attempt %d)", e.Attempt) }

// LinkOpen marks a fresh logical connection. Nothing learned on a previous
// connection is valid after it.
type LinkOpen struct{ ConnID string }

func (e LinkOpen) String() string { return fmt.Sprintf("LinkOpen(%s)", e.ConnID) }

type LinkClosed struct{ Err error }

func (e LinkClosed) String() string {
	if e.Err == nil {
		return "LinkClosed"
	}
	return fmt.Sprintf("LinkClosed(%v)", e.Err)
}

// LinkGaveUp is emitted once the reconnect budget is spent.
type LinkGaveUp struct{ Attempts int }

func (e LinkGaveUp) String() string { return fmt.Sprintf("LinkGaveUp(after %d attempts)", e.Attempts) }

// LinkError reports a non-fatal transport problem such as a bad frame or a
// rejected send.
type LinkError struct{ Err error }

func (e LinkError) String() string { return fmt.Sprintf("LinkError(%v)", e.Err) }

// Inbound carries one undecoded frame from the controller.
type Inbound struct{ Message Message }

func (e Inbound) String() string { return fmt.Sprintf("Inbound(%s)", e.Message.Type) }
