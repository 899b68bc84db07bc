package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/r3e-network/neo-core/pkg/core/interop"
	"github.com/r3e-network/neo-core/pkg/core/state"
	"github.com/r3e-network/neo-core/pkg/smartcontract"
	"github.com/r3e-network/neo-core/pkg/smartcontract/callflag"
	"github.com/r3e-network/neo-core/pkg/smartcontract/manifest"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/r3e-network/neo-core/pkg/vm"
	"github.com/r3e-network/neo-core/pkg/vm/stackitem"
)

// LoadToken calls the method specified by the CALLT token id.
func LoadToken(ic *interop.Context, id int32) error {
	cs, err := ic.GetContract(ic.VM.GetCurrentScriptHash())
	if err != nil {
		return fmt.Errorf("current contract not found: %w", err)
	}
	if id < 0 || int(id) >= len(cs.NEF.Tokens) {
		return errors.New("token id is out of range")
	}
	tok := cs.NEF.Tokens[id]
	if int(tok.ParamCount) > ic.VM.Estack().Len() {
		return errors.New("stack is too small")
	}
	args := make([]stackitem.Item, tok.ParamCount)
	for i := range args {
		args[i] = ic.VM.Estack().Pop().Item()
	}
	target, err := ic.GetContract(tok.Hash)
	if err != nil {
		return fmt.Errorf("token contract %s not found: %w", tok.Hash.StringLE(), err)
	}
	return callInternal(ic, target, tok.Method, tok.CallFlag, tok.HasReturn, args)
}

// Call calls a contract with flags.
func Call(ic *interop.Context) error {
	h := ic.VM.Estack().Pop().Bytes()
	method := ic.VM.Estack().Pop().String()
	fs := callflag.CallFlag(int32(ic.VM.Estack().Pop().BigInt().Int64()))
	if fs&^callflag.All != 0 {
		return errors.New("call flags out of range")
	}
	args := ic.VM.Estack().Pop().Array()
	u, err := util.Uint160DecodeBytesBE(h)
	if err != nil {
		return errors.New("invalid contract hash")
	}
	cs, err := ic.GetContract(u)
	if err != nil {
		return fmt.Errorf("called contract %s not found: %w", u.StringLE(), err)
	}
	if strings.HasPrefix(method, "_") {
		return errors.New("invalid method name (starts with '_')")
	}
	md := cs.Manifest.ABI.GetMethod(method, len(args))
	if md == nil {
		return fmt.Errorf("method not found: %s/%d", method, len(args))
	}
	hasReturn := md.ReturnType != smartcontract.VoidType
	if !hasReturn {
		ic.VM.Estack().PushItem(stackitem.Null{})
	}
	return callInternal(ic, cs, method, fs, hasReturn, args)
}

func callInternal(ic *interop.Context, cs *state.Contract, name string, f callflag.CallFlag,
	hasReturn bool, args []stackitem.Item) error {
	md := cs.Manifest.ABI.GetMethod(name, len(args))
	if md.Safe {
		f &^= callflag.All ^ callflag.ReadOnly
	} else if curr, err := ic.GetContract(ic.VM.GetCurrentScriptHash()); err == nil {
		if !curr.Manifest.CanCall(cs.Hash, &cs.Manifest, name) {
			return errors.New("disallowed method call")
		}
	}
	return callExFromNative(ic, ic.VM.GetCurrentScriptHash(), cs, name, args, f, hasReturn)
}

// callExFromNative calls a contract with flags using the provided calling hash.
func callExFromNative(ic *interop.Context, caller util.Uint160, cs *state.Contract,
	name string, args []stackitem.Item, f callflag.CallFlag, hasReturn bool) error {
	md := cs.Manifest.ABI.GetMethod(name, len(args))
	if md == nil {
		return fmt.Errorf("method '%s' with %d parameters not found", name, len(args))
	}

	ic.Invocations[cs.Hash]++
	ic.InvocationCalls++
	rvcount := 1
	if !hasReturn {
		rvcount = 0
	}
	ic.VM.LoadScriptWithCallingHash(caller, cs.NEF.Script, cs.Hash,
		ic.VM.Context().GetCallFlags()&f, rvcount, md.Offset)
	for i := len(args) - 1; i >= 0; i-- {
		ic.VM.Estack().PushVal(args[i])
	}

	initMD := cs.Manifest.ABI.GetMethod(manifest.MethodInit, 0)
	if initMD != nil {
		ic.VM.Call(ic.VM.Context(), initMD.Offset)
	}

	return nil
}

// ErrNativeCall is returned for failed calls from native.
var ErrNativeCall = errors.New("failed native call")

// CallFromNative performs synchronous call from native contract.
func CallFromNative(ic *interop.Context, caller util.Uint160, cs *state.Contract, method string, args []stackitem.Item, hasReturn bool) error {
	startSize := len(ic.VM.Istack())
	if err := callExFromNative(ic, caller, cs, method, args, callflag.All, hasReturn); err != nil {
		return err
	}

	for !ic.VM.HasStopped() && len(ic.VM.Istack()) > startSize {
		if err := ic.VM.Step(); err != nil {
			return fmt.Errorf("%w: %v", ErrNativeCall, err)
		}
	}
	if ic.VM.State() == vm.FaultState {
		return ErrNativeCall
	}
	return nil
}
