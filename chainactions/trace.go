package chainactions

import "github.com/fxamacker/cbor/v2"

// TraceBytes serializes a confirmation to CBOR for structured trace
// logging and for persisting a compact audit record of what chain
// event resolved an action. It is never used on the hot path; only
// for observability.
func (c ActionConfirmation) TraceBytes() ([]byte, error) {
	return cbor.Marshal(traceRecord{
		TxHash: c.TxHash[:],
		Action: c.Action.String(),
		Event:  eventString(c.Event),
	})
}

type traceRecord struct {
	TxHash []byte `cbor:"tx_hash"`
	Action string `cbor:"action"`
	Event  string `cbor:"event,omitempty"`
}

func eventString(e ChainEventType) string {
	if e == nil {
		return ""
	}
	return e.String()
}
