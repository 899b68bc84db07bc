package native

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"

	"github.com/r3e-network/neo-core/pkg/core/dao"
	"github.com/r3e-network/neo-core/pkg/core/interop"
	"github.com/r3e-network/neo-core/pkg/core/interop/runtime"
	"github.com/r3e-network/neo-core/pkg/core/native/nativenames"
	"github.com/r3e-network/neo-core/pkg/core/native/noderoles"
	"github.com/r3e-network/neo-core/pkg/core/state"
	"github.com/r3e-network/neo-core/pkg/crypto/keys"
	"github.com/r3e-network/neo-core/pkg/smartcontract"
	"github.com/r3e-network/neo-core/pkg/smartcontract/callflag"
	"github.com/r3e-network/neo-core/pkg/smartcontract/manifest"
	"github.com/r3e-network/neo-core/pkg/vm/stackitem"
)

// Designate represents a designation contract.
type Designate struct {
	interop.ContractMD
	NEO *NEO
}

const (
	designateContractID = -8

	// maxNodeCount is the maximum number of nodes to set the role for.
	maxNodeCount = 32

	designationEventName = "Designation"
)

// Various errors.
var (
	ErrAlreadyDesignated = errors.New("already designated given role at current block")
	ErrEmptyNodeList     = errors.New("node list is empty")
	ErrInvalidIndex      = errors.New("invalid index")
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidWitness    = errors.New("invalid witness")
	ErrLargeNodeList     = errors.New("node list is too large")
	ErrNoBlock           = errors.New("no persisting block in the context")
)

var _ interop.Contract = (*Designate)(nil)

func newDesignate() *Designate {
	s := &Designate{ContractMD: *interop.NewContractMD(nativenames.Designation, designateContractID)}

	desc := newDescriptor("getDesignatedByRole", smartcontract.ArrayType,
		manifest.NewParameter("role", smartcontract.IntegerType),
		manifest.NewParameter("index", smartcontract.IntegerType))
	md := newMethodAndPrice(s.getDesignatedByRole, 1<<15, callflag.ReadStates)
	s.AddMethod(md, desc)

	desc = newDescriptor("designateAsRole", smartcontract.VoidType,
		manifest.NewParameter("role", smartcontract.IntegerType),
		manifest.NewParameter("nodes", smartcontract.ArrayType))
	md = newMethodAndPrice(s.designateAsRole, 1<<15, callflag.States|callflag.AllowNotify)
	s.AddMethod(md, desc)

	s.AddEvent(designationEventName,
		manifest.NewParameter("Role", smartcontract.IntegerType),
		manifest.NewParameter("BlockIndex", smartcontract.IntegerType))

	s.UpdateHash()
	return s
}

// Initialize implements the Contract interface.
func (s *Designate) Initialize(ic *interop.Context) error {
	return nil
}

// Metadata returns contract metadata.
func (s *Designate) Metadata() *interop.ContractMD {
	return &s.ContractMD
}

// OnPersist implements the Contract interface.
func (s *Designate) OnPersist(ic *interop.Context) error {
	return nil
}

// PostPersist implements the Contract interface.
func (s *Designate) PostPersist(ic *interop.Context) error {
	return nil
}

func (s *Designate) getDesignatedByRole(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	r, ok := s.getRole(args[0])
	if !ok {
		panic(ErrInvalidRole)
	}
	ind, err := args[1].TryInteger()
	if err != nil || !ind.IsUint64() {
		panic(ErrInvalidIndex)
	}
	index := ind.Uint64()
	if index > uint64(ic.Chain.BlockHeight()+1) {
		panic(ErrInvalidIndex)
	}
	pubs, _, err := s.GetDesignatedByRole(ic.DAO, r, uint32(index))
	if err != nil {
		panic(err)
	}
	return pubsToArray(pubs)
}

// GetDesignatedByRole returns the nodes for the given role specified by
// the index together with the height they were designated at.
func (s *Designate) GetDesignatedByRole(d *dao.Simple, r noderoles.Role, index uint32) (keys.PublicKeys, uint32, error) {
	if !noderoles.IsValid(r) {
		return nil, 0, ErrInvalidRole
	}
	kvs, err := d.GetStorageItemsWithPrefix(designateContractID, []byte{byte(r)})
	if err != nil {
		return nil, 0, err
	}
	var (
		ns        NodeList
		bestIndex uint32
		resSi     state.StorageItem
	)
	// Storage keys are sorted, so the last one matching our index is the one.
	for _, kv := range kvs {
		if len(kv.Key) < 5 {
			continue
		}
		siInd := binary.BigEndian.Uint32(kv.Key[1:])
		if siInd <= index {
			bestIndex = siInd
			resSi = kv.Item
		}
	}
	if resSi != nil {
		err = stackitem.DeserializeConvertible(resSi, &ns)
		if err != nil {
			return nil, 0, err
		}
	}
	return keys.PublicKeys(ns), bestIndex, nil
}

func (s *Designate) designateAsRole(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	r, ok := s.getRole(args[0])
	if !ok {
		panic(ErrInvalidRole)
	}
	var ns NodeList
	if err := ns.FromStackItem(args[1]); err != nil {
		panic(err)
	}

	err := s.DesignateAsRole(ic, r, keys.PublicKeys(ns))
	if err != nil {
		panic(err)
	}
	return stackitem.Null{}
}

// DesignateAsRole sets nodes for the given role.
func (s *Designate) DesignateAsRole(ic *interop.Context, r noderoles.Role, pubs keys.PublicKeys) error {
	length := len(pubs)
	if length == 0 {
		return ErrEmptyNodeList
	}
	if length > maxNodeCount {
		return ErrLargeNodeList
	}
	if !noderoles.IsValid(r) {
		return ErrInvalidRole
	}
	h := s.NEO.GetCommitteeAddress()
	if ok, err := runtime.CheckHashedWitness(ic, h); err != nil || !ok {
		return ErrInvalidWitness
	}
	if ic.Block == nil {
		return ErrNoBlock
	}

	sort.Sort(pubs)
	nl := NodeList(pubs)

	index := ic.Block.Index + 1
	key := make([]byte, 5)
	key[0] = byte(r)
	binary.BigEndian.PutUint32(key[1:], index)

	si := ic.DAO.GetStorageItem(designateContractID, key)
	if si != nil {
		return ErrAlreadyDesignated
	}
	err := putConvertibleToDAO(designateContractID, ic.DAO, key, &nl)
	if err != nil {
		return err
	}

	ntf := stackitem.NewArray([]stackitem.Item{
		stackitem.Make(int(r)),
		stackitem.Make(ic.Block.Index),
	})
	ic.AddNotification(s.Hash, designationEventName, ntf)
	return nil
}

func (s *Designate) getRole(item stackitem.Item) (noderoles.Role, bool) {
	bi, err := item.TryInteger()
	if err != nil {
		return 0, false
	}
	if !bi.IsUint64() {
		return 0, false
	}
	u := bi.Uint64()
	return noderoles.Role(u), u <= math.MaxUint8 && noderoles.IsValid(noderoles.Role(u))
}
