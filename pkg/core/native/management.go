package native

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/r3e-network/neo-core/pkg/core/dao"
	"github.com/r3e-network/neo-core/pkg/core/interop"
	"github.com/r3e-network/neo-core/pkg/core/interop/contract"
	"github.com/r3e-network/neo-core/pkg/core/native/nativenames"
	"github.com/r3e-network/neo-core/pkg/core/state"
	"github.com/r3e-network/neo-core/pkg/core/storage"
	"github.com/r3e-network/neo-core/pkg/encoding/bigint"
	"github.com/r3e-network/neo-core/pkg/smartcontract"
	"github.com/r3e-network/neo-core/pkg/smartcontract/callflag"
	"github.com/r3e-network/neo-core/pkg/smartcontract/manifest"
	"github.com/r3e-network/neo-core/pkg/smartcontract/nef"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/r3e-network/neo-core/pkg/vm/stackitem"
)

// Management is a contract-managing native contract.
type Management struct {
	interop.ContractMD
	NEO    *NEO
	Policy *Policy
}

const (
	managementContractID = -1

	// prefixContract is a prefix used to store contract states inside
	// Management native contract.
	prefixContract = 8

	defaultMinimumDeploymentFee     = 10_00000000
	contractDeployNotificationName  = "Deploy"
	contractUpdateNotificationName  = "Update"
	contractDestroyNotificationName = "Destroy"
)

var (
	errGasLimitExceeded = errors.New("gas limit exceeded")

	keyNextAvailableID      = []byte{15}
	keyMinimumDeploymentFee = []byte{20}
)

var _ interop.Contract = (*Management)(nil)

// makeContractKey creates a key from the account script hash.
func makeContractKey(h util.Uint160) []byte {
	return makeUint160Key(prefixContract, h)
}

// newManagement creates a new Management native contract.
func newManagement() *Management {
	var m = &Management{ContractMD: *interop.NewContractMD(nativenames.Management, managementContractID)}
	defer m.UpdateHash()

	desc := newDescriptor("getContract", smartcontract.ArrayType,
		manifest.NewParameter("hash", smartcontract.Hash160Type))
	md := newMethodAndPrice(m.getContract, 1<<15, callflag.ReadStates)
	m.AddMethod(md, desc)

	desc = newDescriptor("getContractById", smartcontract.ArrayType,
		manifest.NewParameter("id", smartcontract.IntegerType))
	md = newMethodAndPrice(m.getContractByID, 1<<15, callflag.ReadStates)
	m.AddMethod(md, desc)

	desc = newDescriptor("deploy", smartcontract.ArrayType,
		manifest.NewParameter("nefFile", smartcontract.ByteArrayType),
		manifest.NewParameter("manifest", smartcontract.ByteArrayType))
	md = newMethodAndPrice(m.deploy, 0, callflag.States|callflag.AllowNotify)
	m.AddMethod(md, desc)

	desc = newDescriptor("deploy", smartcontract.ArrayType,
		manifest.NewParameter("nefFile", smartcontract.ByteArrayType),
		manifest.NewParameter("manifest", smartcontract.ByteArrayType),
		manifest.NewParameter("data", smartcontract.AnyType))
	md = newMethodAndPrice(m.deployWithData, 0, callflag.States|callflag.AllowNotify)
	m.AddMethod(md, desc)

	desc = newDescriptor("update", smartcontract.VoidType,
		manifest.NewParameter("nefFile", smartcontract.ByteArrayType),
		manifest.NewParameter("manifest", smartcontract.ByteArrayType))
	md = newMethodAndPrice(m.update, 0, callflag.States|callflag.AllowNotify)
	m.AddMethod(md, desc)

	desc = newDescriptor("update", smartcontract.VoidType,
		manifest.NewParameter("nefFile", smartcontract.ByteArrayType),
		manifest.NewParameter("manifest", smartcontract.ByteArrayType),
		manifest.NewParameter("data", smartcontract.AnyType))
	md = newMethodAndPrice(m.updateWithData, 0, callflag.States|callflag.AllowNotify)
	m.AddMethod(md, desc)

	desc = newDescriptor("destroy", smartcontract.VoidType)
	md = newMethodAndPrice(m.destroy, 1<<15, callflag.States|callflag.AllowNotify)
	m.AddMethod(md, desc)

	desc = newDescriptor("hasMethod", smartcontract.BoolType,
		manifest.NewParameter("hash", smartcontract.Hash160Type),
		manifest.NewParameter("method", smartcontract.StringType),
		manifest.NewParameter("pcount", smartcontract.IntegerType))
	md = newMethodAndPrice(m.hasMethod, 1<<15, callflag.ReadStates)
	m.AddMethod(md, desc)

	desc = newDescriptor("getMinimumDeploymentFee", smartcontract.IntegerType)
	md = newMethodAndPrice(m.getMinimumDeploymentFee, 1<<15, callflag.ReadStates)
	m.AddMethod(md, desc)

	desc = newDescriptor("setMinimumDeploymentFee", smartcontract.VoidType,
		manifest.NewParameter("value", smartcontract.IntegerType))
	md = newMethodAndPrice(m.setMinimumDeploymentFee, 1<<15, callflag.States)
	m.AddMethod(md, desc)

	hashParam := manifest.NewParameter("Hash", smartcontract.Hash160Type)
	m.AddEvent(contractDeployNotificationName, hashParam)
	m.AddEvent(contractUpdateNotificationName, hashParam)
	m.AddEvent(contractDestroyNotificationName, hashParam)
	return m
}

// Metadata implements the Contract interface.
func (m *Management) Metadata() *interop.ContractMD {
	return &m.ContractMD
}

// GetContract returns a contract with the given hash if it exists.
func (m *Management) GetContract(d *dao.Simple, hash util.Uint160) (*state.Contract, error) {
	key := makeContractKey(hash)
	si := d.GetStorageItem(m.ID, key)
	if si == nil {
		return nil, storage.ErrKeyNotFound
	}
	contract := new(state.Contract)
	err := stackitem.DeserializeConvertible(si, contract)
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// GetContractByID returns a contract with the given ID if it exists.
func (m *Management) GetContractByID(d *dao.Simple, id int32) (*state.Contract, error) {
	hash, err := d.GetContractScriptHash(id)
	if err != nil {
		return nil, err
	}
	return m.GetContract(d, hash)
}

func (m *Management) getContract(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	ctr, err := m.GetContract(ic.DAO, toUint160(args[0]))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return stackitem.Null{}
		}
		panic(err)
	}
	return contractToStack(ctr)
}

func (m *Management) getContractByID(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	idBig := toBigInt(args[0])
	if !idBig.IsInt64() {
		panic("id is not an int32")
	}
	id := idBig.Int64()
	if id < math.MinInt32 || id > math.MaxInt32 {
		panic("id is not an int32")
	}
	ctr, err := m.GetContractByID(ic.DAO, int32(id))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return stackitem.Null{}
		}
		panic(err)
	}
	return contractToStack(ctr)
}

func contractToStack(cs *state.Contract) stackitem.Item {
	si, err := cs.ToStackItem()
	if err != nil {
		panic(fmt.Errorf("contract to stack item: %w", err))
	}
	return si
}

func (m *Management) deploy(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return m.deployWithData(ic, append(args, stackitem.Null{}))
}

func (m *Management) deployWithData(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	neffBytes, err := args[0].TryBytes()
	if err != nil {
		panic(err)
	}
	manifBytes, err := args[1].TryBytes()
	if err != nil {
		panic(err)
	}
	gas := ic.BaseStorageFee() * int64(len(neffBytes)+len(manifBytes))
	if fee := m.GetMinimumDeploymentFee(ic.DAO); gas < fee {
		gas = fee
	}
	if !ic.VM.AddGas(gas) {
		panic(errGasLimitExceeded)
	}
	neff := toNEF(args[0])
	manif := toManifest(args[1])
	newcontract, err := m.Deploy(ic, ic.Tx.Sender(), &neff, manif)
	if err != nil {
		panic(err)
	}
	m.callDeploy(ic, newcontract, args[2], false)
	m.emitNotification(ic, contractDeployNotificationName, newcontract.Hash)
	return contractToStack(newcontract)
}

// Deploy creates a contract's hash/ID and saves a new contract into the given DAO.
// It doesn't run _deploy method and doesn't emit notification.
func (m *Management) Deploy(ic *interop.Context, sender util.Uint160, neff *nef.File, manif *manifest.Manifest) (*state.Contract, error) {
	if ic.Tx == nil {
		return nil, errors.New("no transaction provided")
	}
	h := state.CreateContractHash(sender, neff.Checksum, manif.Name)
	if m.Policy.IsBlockedInternal(ic.DAO, h) {
		return nil, fmt.Errorf("the contract %s has been blocked", h.StringLE())
	}
	_, err := m.GetContract(ic.DAO, h)
	if err == nil {
		return nil, errors.New("contract already exists")
	}
	id, err := m.getNextContractID(ic.DAO)
	if err != nil {
		return nil, err
	}
	err = manif.IsValid(h, true)
	if err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	err = checkScriptAndMethods(neff.Script, manif.ABI.Methods)
	if err != nil {
		return nil, err
	}
	newcontract := &state.Contract{
		ContractBase: state.ContractBase{
			ID:       id,
			Hash:     h,
			NEF:      *neff,
			Manifest: *manif,
		},
	}
	err = m.saveContract(ic.DAO, newcontract)
	if err != nil {
		return nil, err
	}
	ic.DAO.PutContractID(id, h)
	return newcontract, nil
}

func (m *Management) update(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return m.updateWithData(ic, append(args, stackitem.Null{}))
}

func (m *Management) updateWithData(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	var (
		neff  *nef.File
		manif *manifest.Manifest
		gas   int64
	)
	if _, ok := args[0].(stackitem.Null); !ok {
		neffBytes, err := args[0].TryBytes()
		if err != nil {
			panic(err)
		}
		gas += int64(len(neffBytes))
		neffVal := toNEF(args[0])
		neff = &neffVal
	}
	if _, ok := args[1].(stackitem.Null); !ok {
		manifBytes, err := args[1].TryBytes()
		if err != nil {
			panic(err)
		}
		gas += int64(len(manifBytes))
		manif = toManifest(args[1])
	}
	if !ic.VM.AddGas(gas * ic.BaseStorageFee()) {
		panic(errGasLimitExceeded)
	}

	contract, err := m.Update(ic, ic.VM.GetCallingScriptHash(), neff, manif)
	if err != nil {
		panic(err)
	}
	m.callDeploy(ic, contract, args[2], true)
	m.emitNotification(ic, contractUpdateNotificationName, contract.Hash)
	return stackitem.Null{}
}

// Update updates contract's script and/or manifest in the given DAO.
// It doesn't run _deploy method and doesn't emit notification.
func (m *Management) Update(ic *interop.Context, hash util.Uint160, neff *nef.File, manif *manifest.Manifest) (*state.Contract, error) {
	var contract *state.Contract

	contract, err := m.GetContract(ic.DAO, hash)
	if err != nil {
		return nil, errors.New("contract doesn't exist")
	}
	if neff == nil && manif == nil {
		return nil, errors.New("both NEF and manifest are nil")
	}
	// if NEF was provided, update the contract script
	if neff != nil {
		contract.NEF = *neff
	}
	// if manifest was provided, update the contract manifest
	if manif != nil {
		if manif.Name != contract.Manifest.Name {
			return nil, errors.New("contract name can't be changed")
		}
		err = manif.IsValid(contract.Hash, true)
		if err != nil {
			return nil, fmt.Errorf("invalid manifest: %w", err)
		}
		contract.Manifest = *manif
	}
	err = checkScriptAndMethods(contract.NEF.Script, contract.Manifest.ABI.Methods)
	if err != nil {
		return nil, err
	}
	contract.UpdateCounter++
	err = m.saveContract(ic.DAO, contract)
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (m *Management) destroy(ic *interop.Context, _ []stackitem.Item) stackitem.Item {
	hash := ic.VM.GetCallingScriptHash()
	err := m.Destroy(ic.DAO, hash)
	if err != nil {
		panic(err)
	}
	m.emitNotification(ic, contractDestroyNotificationName, hash)
	return stackitem.Null{}
}

// Destroy drops the given contract from the DAO along with its storage. It
// doesn't emit notification. The contract hash is blocked forever to prevent
// a different contract from being deployed at the same address.
func (m *Management) Destroy(d *dao.Simple, hash util.Uint160) error {
	contract, err := m.GetContract(d, hash)
	if err != nil {
		return err
	}
	key := makeContractKey(hash)
	d.DeleteStorageItem(m.ID, key)
	d.DeleteContractID(contract.ID)

	d.Seek(contract.ID, storage.SeekRange{}, func(k, _ []byte) bool {
		d.DeleteStorageItem(contract.ID, k)
		return true
	})
	m.Policy.BlockAccountInternal(d, hash)
	return nil
}

func (m *Management) getMinimumDeploymentFee(ic *interop.Context, _ []stackitem.Item) stackitem.Item {
	return stackitem.NewBigInteger(big.NewInt(m.GetMinimumDeploymentFee(ic.DAO)))
}

// GetMinimumDeploymentFee returns the minimum required fee for contract deploy.
func (m *Management) GetMinimumDeploymentFee(dao *dao.Simple) int64 {
	return getIntWithKey(m.ID, dao, keyMinimumDeploymentFee)
}

func (m *Management) setMinimumDeploymentFee(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	value := toBigInt(args[0])
	if value.Sign() == -1 || !value.IsInt64() {
		panic(fmt.Errorf("MinimumDeploymentFee cannot be negative"))
	}
	if !m.NEO.checkCommittee(ic) {
		panic("invalid committee signature")
	}
	setIntWithKey(m.ID, ic.DAO, keyMinimumDeploymentFee, value.Int64())
	return stackitem.Null{}
}

func (m *Management) callDeploy(ic *interop.Context, cs *state.Contract, data stackitem.Item, isUpdate bool) {
	md := cs.Manifest.ABI.GetMethod(manifest.MethodDeploy, 2)
	if md != nil {
		err := contract.CallFromNative(ic, m.Hash, cs, manifest.MethodDeploy,
			[]stackitem.Item{data, stackitem.NewBool(isUpdate)}, false)
		if err != nil {
			panic(err)
		}
	}
}

func (m *Management) hasMethod(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	cHash := toUint160(args[0])
	method := toString(args[1])
	pcount := int(toInt64(args[2]))
	cs, err := m.GetContract(ic.DAO, cHash)
	if err != nil {
		return stackitem.NewBool(false)
	}
	return stackitem.NewBool(cs.Manifest.ABI.GetMethod(method, pcount) != nil)
}

func (m *Management) saveContract(d *dao.Simple, cs *state.Contract) error {
	return putConvertibleToDAO(m.ID, d, makeContractKey(cs.Hash), cs)
}

func (m *Management) getNextContractID(d *dao.Simple) (int32, error) {
	si := d.GetStorageItem(m.ID, keyNextAvailableID)
	if si == nil {
		return 0, errors.New("nextAvailableID is not initialized")
	}
	id := bigint.FromBytes(si)
	ret := int32(id.Int64())
	id.Add(id, intOne)
	d.PutStorageItem(m.ID, keyNextAvailableID, bigint.ToBytes(id))
	return ret, nil
}

// Initialize implements the Contract interface. It stores the states of all
// the other native contracts so that System.Contract.GetContract can see them.
func (m *Management) Initialize(ic *interop.Context) error {
	setIntWithKey(m.ID, ic.DAO, keyMinimumDeploymentFee, defaultMinimumDeploymentFee)
	setIntWithKey(m.ID, ic.DAO, keyNextAvailableID, 1)

	for _, native := range ic.Natives {
		md := native.Metadata()
		cs := &state.Contract{
			ContractBase: md.ContractBase,
		}
		err := m.saveContract(ic.DAO, cs)
		if err != nil {
			return err
		}
		ic.DAO.PutContractID(md.ID, md.Hash)
	}
	return nil
}

// OnPersist implements the Contract interface.
func (m *Management) OnPersist(ic *interop.Context) error {
	return nil
}

// PostPersist implements the Contract interface.
func (m *Management) PostPersist(ic *interop.Context) error {
	return nil
}

func (m *Management) emitNotification(ic *interop.Context, name string, hash util.Uint160) {
	ic.AddNotification(m.Hash, name, stackitem.NewArray([]stackitem.Item{addrToStackItem(&hash)}))
}

func addrToStackItem(u *util.Uint160) stackitem.Item {
	if u == nil {
		return stackitem.Null{}
	}
	return stackitem.NewByteArray(u.BytesBE())
}

func checkScriptAndMethods(script []byte, methods []manifest.Method) error {
	l := len(script)
	if l == 0 {
		return errors.New("empty script")
	}
	for i := range methods {
		if methods[i].Offset >= l {
			return fmt.Errorf("method %s/%d: offset is out of the script range", methods[i].Name, len(methods[i].Parameters))
		}
	}
	return nil
}

func toNEF(item stackitem.Item) nef.File {
	bytes, err := item.TryBytes()
	if err != nil {
		panic(err)
	}
	f, err := nef.FileFromBytes(bytes)
	if err != nil {
		panic(err)
	}
	return f
}

func toManifest(item stackitem.Item) *manifest.Manifest {
	bytes, err := item.TryBytes()
	if err != nil {
		panic(err)
	}
	if len(bytes) > manifest.MaxManifestSize {
		panic("manifest is too big")
	}
	m := new(manifest.Manifest)
	err = json.Unmarshal(bytes, m)
	if err != nil {
		panic(err)
	}
	return m
}
