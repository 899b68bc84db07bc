package state

import (
	"testing"

	"github.com/r3e-network/neo-core/internal/random"
	"github.com/r3e-network/neo-core/internal/testserdes"
	"github.com/r3e-network/neo-core/pkg/smartcontract/trigger"
	"github.com/r3e-network/neo-core/pkg/vm"
	"github.com/r3e-network/neo-core/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeNotificationEvent(t *testing.T) {
	event := &NotificationEvent{
		ScriptHash: random.Uint160(),
		Name:       "Transfer",
		Item:       stackitem.NewArray([]stackitem.Item{stackitem.NewBool(true)}),
	}

	testserdes.EncodeDecodeBinary(t, event, new(NotificationEvent))
}

func TestEncodeDecodeAppExecResult(t *testing.T) {
	newAer := func() *AppExecResult {
		return &AppExecResult{
			Container: random.Uint256(),
			Execution: Execution{
				Trigger:     trigger.Application,
				VMState:     vm.HaltState,
				GasConsumed: 10,
				Stack:       []stackitem.Item{stackitem.NewBool(true)},
				Events:      []NotificationEvent{},
			},
		}
	}

	t.Run("halt", func(t *testing.T) {
		appExecResult := newAer()
		testserdes.EncodeDecodeBinary(t, appExecResult, new(AppExecResult))
	})

	t.Run("fault", func(t *testing.T) {
		appExecResult := newAer()
		appExecResult.VMState = vm.FaultState
		appExecResult.FaultException = "unhandled error"
		testserdes.EncodeDecodeBinary(t, appExecResult, new(AppExecResult))
	})

	t.Run("with events", func(t *testing.T) {
		appExecResult := newAer()
		appExecResult.Events = []NotificationEvent{{
			ScriptHash: random.Uint160(),
			Name:       "Transfer",
			Item: stackitem.NewArray([]stackitem.Item{
				stackitem.Null{},
				stackitem.NewByteArray(random.Uint160().BytesBE()),
				stackitem.Make(10),
			}),
		}}
		testserdes.EncodeDecodeBinary(t, appExecResult, new(AppExecResult))
	})

	t.Run("interop item is not serializable", func(t *testing.T) {
		appExecResult := newAer()
		appExecResult.Stack = []stackitem.Item{stackitem.NewInterop("failing")}
		data, err := testserdes.EncodeBinary(appExecResult)
		require.NoError(t, err)

		// the protected encoding replaces the value, so the stack differs
		actual := new(AppExecResult)
		require.NoError(t, testserdes.DecodeBinary(data, actual))
		require.Equal(t, 1, len(actual.Stack))
	})
}
