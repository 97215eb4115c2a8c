package chainactions

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

func TestActionConfirmationTraceBytesRoundTrips(t *testing.T) {
	confirmation := ActionConfirmation{
		TxHash: Hash{1, 2, 3},
		Event:  ChannelOpenedEvent{Channel: Channel{ID: Hash{4}}},
		Action: OpenChannelAction{Destination: Address{5}},
	}

	encoded, err := confirmation.TraceBytes()
	require.NoError(t, err)

	var decoded traceRecord
	require.NoError(t, cbor.Unmarshal(encoded, &decoded))
	require.Equal(t, confirmation.TxHash[:], decoded.TxHash)
	require.Equal(t, confirmation.Action.String(), decoded.Action)
	require.Equal(t, confirmation.Event.String(), decoded.Event)
}

func TestActionConfirmationTraceBytesWithNilEvent(t *testing.T) {
	confirmation := ActionConfirmation{
		TxHash: Hash{9},
		Action: WithdrawAction{Recipient: Address{1}},
	}

	encoded, err := confirmation.TraceBytes()
	require.NoError(t, err)

	var decoded traceRecord
	require.NoError(t, cbor.Unmarshal(encoded, &decoded))
	require.Empty(t, decoded.Event)
}
