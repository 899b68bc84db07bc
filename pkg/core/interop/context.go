package interop

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/r3e-network/neo-core/pkg/config"
	"github.com/r3e-network/neo-core/pkg/core/block"
	"github.com/r3e-network/neo-core/pkg/core/dao"
	"github.com/r3e-network/neo-core/pkg/core/fee"
	"github.com/r3e-network/neo-core/pkg/core/interop/interopnames"
	"github.com/r3e-network/neo-core/pkg/core/state"
	"github.com/r3e-network/neo-core/pkg/core/transaction"
	"github.com/r3e-network/neo-core/pkg/crypto/hash"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/smartcontract/callflag"
	"github.com/r3e-network/neo-core/pkg/smartcontract/manifest"
	"github.com/r3e-network/neo-core/pkg/smartcontract/nef"
	"github.com/r3e-network/neo-core/pkg/smartcontract/trigger"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/r3e-network/neo-core/pkg/vm"
	"github.com/r3e-network/neo-core/pkg/vm/emit"
	"github.com/r3e-network/neo-core/pkg/vm/opcode"
	"github.com/r3e-network/neo-core/pkg/vm/stackitem"
	"go.uber.org/zap"
)

const (
	// DefaultBaseExecFee specifies the default multiplier for opcode and
	// syscall prices.
	DefaultBaseExecFee = 30
	// DefaultStoragePrice is the price to pay for 1 byte of storage.
	DefaultStoragePrice = 100000
)

// Ledger is the interface to Blockchain required for Context functionality.
type Ledger interface {
	BlockHeight() uint32
	CurrentBlockHash() util.Uint256
	GetBlock(hash util.Uint256) (*block.Block, error)
	GetConfig() config.ProtocolConfiguration
	GetHeaderHash(uint32) util.Uint256
}

// Context represents context in which interops are executed.
type Context struct {
	Chain           Ledger
	Container       hash.Hashable
	Network         uint32
	Natives         []Contract
	Trigger         trigger.Type
	Block           *block.Block
	NonceData       [16]byte
	Tx              *transaction.Transaction
	DAO             *dao.Simple
	Notifications   []state.NotificationEvent
	Log             *zap.Logger
	VM              *vm.VM
	Functions       []Function
	Invocations     map[util.Uint160]int
	InvocationCalls int
	baseExecFee     int64
	baseStorageFee  int64
	loadToken       func(ic *Context, id int32) error
	getContract     func(*dao.Simple, util.Uint160) (*state.Contract, error)
	signers         []transaction.Signer
	cancelFuncs     []context.CancelFunc
}

// NewContext returns new interop context.
func NewContext(trigger trigger.Type, bc Ledger, d *dao.Simple,
	baseExecFee, baseStorageFee int64,
	getContract func(*dao.Simple, util.Uint160) (*state.Contract, error),
	natives []Contract, loadTokenFunc func(ic *Context, id int32) error,
	block *block.Block, tx *transaction.Transaction, log *zap.Logger) *Context {
	dao := d.GetWrapped()
	cfg := bc.GetConfig()
	ic := &Context{
		Chain:          bc,
		Network:        uint32(cfg.Magic),
		Natives:        natives,
		Trigger:        trigger,
		Block:          block,
		Tx:             tx,
		DAO:            dao,
		Log:            log,
		Invocations:    make(map[util.Uint160]int),
		baseExecFee:    baseExecFee,
		baseStorageFee: baseStorageFee,
		loadToken:      loadTokenFunc,
		getContract:    getContract,
	}
	if tx != nil {
		ic.Container = tx
	} else if block != nil {
		ic.Container = block
	}
	initNonceData(ic)
	return ic
}

// initNonceData initializes the runtime random seed from the persisting
// block nonce mixed with the transaction hash, so every transaction in a
// block gets its own deterministic sequence.
func initNonceData(ic *Context) {
	if tx, ok := ic.Container.(*transaction.Transaction); ok {
		copy(ic.NonceData[:], tx.Hash().BytesBE())
	}
	if ic.Block != nil {
		nonce := ic.Block.Nonce
		nonce ^= binary.LittleEndian.Uint64(ic.NonceData[:])
		binary.LittleEndian.PutUint64(ic.NonceData[:], nonce)
	}
}

// Function binds function name, id with the function itself and the price,
// it's supposed to be inited once for all interop contexts, so it doesn't use
// vm.InteropFuncPrice directly.
type Function struct {
	ID   uint32
	Name string
	Func func(*Context) error
	// ParamCount is a number of function parameters.
	ParamCount    int
	Price         int64
	RequiredFlags callflag.CallFlag
}

// Method is a signature for a native method.
type Method = func(ic *Context, args []stackitem.Item) stackitem.Item

// MethodAndPrice is a native-contract method descriptor.
type MethodAndPrice struct {
	Func          Method
	MD            *manifest.Method
	CPUFee        int64
	StorageFee    int64
	SyscallOffset int
	RequiredFlags callflag.CallFlag
}

// Contract is an interface for all native contracts.
type Contract interface {
	Initialize(*Context) error
	Metadata() *ContractMD
	OnPersist(*Context) error
	PostPersist(*Context) error
}

// ContractMD represents a native contract instance.
type ContractMD struct {
	state.ContractBase
	Methods []MethodAndPrice
}

// NewContractMD returns a new ContractMD structure.
func NewContractMD(name string, id int32) *ContractMD {
	c := &ContractMD{}

	c.ID = id
	c.Hash = state.CreateNativeContractHash(name)
	c.Manifest = *manifest.NewManifest(name)

	return c
}

// UpdateHash creates a native contract script and updates the NEF and the
// method offsets accordingly. It must be called after all the methods are
// added to the contract.
func (c *ContractMD) UpdateHash() {
	w := io.NewBufBinWriter()
	for i := range c.Methods {
		offset := w.Len()
		c.Methods[i].MD.Offset = offset
		c.Manifest.ABI.Methods[i].Offset = offset
		emit.Int(w.BinWriter, 0)
		c.Methods[i].SyscallOffset = w.Len()
		emit.Syscall(w.BinWriter, interopnames.SystemContractCallNative)
		emit.Opcodes(w.BinWriter, opcode.RET)
	}
	if w.Err != nil {
		panic(fmt.Errorf("can't create native contract script: %w", w.Err))
	}

	script := w.Bytes()
	c.NEF.Magic = nef.Magic
	c.NEF.Compiler = "neo-core"
	c.NEF.Tokens = []nef.MethodToken{}
	c.NEF.Script = script
	c.NEF.Checksum = c.NEF.CalculateChecksum()
}

// AddMethod adds a new method to a native contract.
func (c *ContractMD) AddMethod(md *MethodAndPrice, desc *manifest.Method) {
	md.MD = desc
	desc.Safe = md.RequiredFlags&(callflag.All^callflag.ReadOnly) == 0

	index := sort.Search(len(c.Manifest.ABI.Methods), func(i int) bool {
		md := c.Manifest.ABI.Methods[i]
		if md.Name != desc.Name {
			return md.Name >= desc.Name
		}
		return len(md.Parameters) > len(desc.Parameters)
	})
	c.Manifest.ABI.Methods = append(c.Manifest.ABI.Methods, manifest.Method{})
	copy(c.Manifest.ABI.Methods[index+1:], c.Manifest.ABI.Methods[index:])
	c.Manifest.ABI.Methods[index] = *desc

	c.Methods = append(c.Methods, MethodAndPrice{})
	copy(c.Methods[index+1:], c.Methods[index:])
	c.Methods[index] = *md
}

// GetMethodByOffset returns with the method keeping the given offset into
// the contract script. Offset is the offset of the corresponding syscall
// instruction.
func (c *ContractMD) GetMethodByOffset(offset int) (MethodAndPrice, bool) {
	for k := range c.Methods {
		if c.Methods[k].SyscallOffset == offset {
			return c.Methods[k], true
		}
	}
	return MethodAndPrice{}, false
}

// GetMethod returns method `name` with the specified number of parameters.
func (c *ContractMD) GetMethod(name string, paramCount int) (MethodAndPrice, bool) {
	index := sort.Search(len(c.Methods), func(i int) bool {
		md := c.Methods[i]
		res := strings.Compare(name, md.MD.Name)
		switch res {
		case -1, 1:
			return res == -1
		default:
			return paramCount <= len(md.MD.Parameters)
		}
	})
	if index < len(c.Methods) {
		md := c.Methods[index]
		if md.MD.Name == name && (paramCount == -1 || len(md.MD.Parameters) == paramCount) {
			return md, true
		}
	}
	return MethodAndPrice{}, false
}

// AddEvent adds a new event to the native contract.
func (c *ContractMD) AddEvent(name string, ps ...manifest.Parameter) {
	c.Manifest.ABI.Events = append(c.Manifest.ABI.Events, manifest.Event{
		Name:       name,
		Parameters: ps,
	})
}

// Sort sorts the interop functions by their IDs.
func Sort(fs []Function) {
	sort.Slice(fs, func(i, j int) bool { return fs[i].ID < fs[j].ID })
}

// GetContract returns a contract by its hash in the current interop context.
func (ic *Context) GetContract(hash util.Uint160) (*state.Contract, error) {
	return ic.getContract(ic.DAO, hash)
}

// GetFunction returns the interop with the specified id.
func (ic *Context) GetFunction(id uint32) *Function {
	n := sort.Search(len(ic.Functions), func(i int) bool {
		return ic.Functions[i].ID >= id
	})
	if n < len(ic.Functions) && ic.Functions[n].ID == id {
		return &ic.Functions[n]
	}
	return nil
}

// BaseExecFee represents the factor to multiply the syscall and opcode
// prices with.
func (ic *Context) BaseExecFee() int64 {
	return ic.baseExecFee
}

// BaseStorageFee returns the storage price for a single byte.
func (ic *Context) BaseStorageFee() int64 {
	return ic.baseStorageFee
}

// AddNotification appends a notification to the engine-scoped list.
func (ic *Context) AddNotification(h util.Uint160, name string, item *stackitem.Array) {
	ic.Notifications = append(ic.Notifications, state.NotificationEvent{
		ScriptHash: h,
		Name:       name,
		Item:       item,
	})
}

// SyscallHandler handles syscall with the specified id.
func (ic *Context) SyscallHandler(_ *vm.VM, id uint32) error {
	f := ic.GetFunction(id)
	if f == nil {
		return fmt.Errorf("syscall 0x%x not found", id)
	}
	cf := ic.VM.Context().GetCallFlags()
	if !cf.Has(f.RequiredFlags) {
		return fmt.Errorf("missing call flags for syscall %s: %05b vs %05b", f.Name, cf, f.RequiredFlags)
	}
	if !ic.VM.AddGas(f.Price * ic.BaseExecFee()) {
		return errors.New("insufficient amount of gas")
	}
	if ic.VM.Estack().Len() < f.ParamCount {
		return fmt.Errorf("missing arguments for syscall %s", f.Name)
	}
	return f.Func(ic)
}

// SpawnVM spawns a new VM with the specified gas limit and set up execution
// context.
func (ic *Context) SpawnVM() *vm.VM {
	v := vm.New()
	ic.initVM(v)
	return v
}

func (ic *Context) initVM(v *vm.VM) {
	v.LoadToken = ic.getLoadToken()
	v.GasLimit = -1
	v.SyscallHandler = ic.SyscallHandler
	v.SetPriceGetter(func(op opcode.Opcode, _ []byte) int64 {
		return fee.Opcode(ic.BaseExecFee(), op)
	})
	ic.VM = v
}

// ReuseVM resets the given VM and initializes it for use within ic.
func (ic *Context) ReuseVM(v *vm.VM) {
	v.Reset()
	ic.initVM(v)
}

func (ic *Context) getLoadToken() func(id int32) error {
	if ic.loadToken == nil {
		return nil
	}
	return func(id int32) error {
		return ic.loadToken(ic, id)
	}
}

// RegisterCancelFunc adds the given function to the list of functions to be
// called after the VM has finished script execution.
func (ic *Context) RegisterCancelFunc(f context.CancelFunc) {
	if f != nil {
		ic.cancelFuncs = append(ic.cancelFuncs, f)
	}
}

// Finalize calls all registered cancel functions to release the occupied
// resources, it must always be called after the VM has finished.
func (ic *Context) Finalize() {
	for _, f := range ic.cancelFuncs {
		f()
	}
	ic.cancelFuncs = nil
}

// GetSigners returns signers of the currently loaded transaction or nil if
// nothing is loaded.
func (ic *Context) GetSigners() []transaction.Signer {
	if ic.signers == nil && ic.Tx != nil {
		ic.signers = ic.Tx.Signers
	}
	return ic.signers
}

// UseSigners allows overriding signers used in CheckWitness, it's needed for
// verification with a custom signer set.
func (ic *Context) UseSigners(s []transaction.Signer) {
	ic.signers = s
}
