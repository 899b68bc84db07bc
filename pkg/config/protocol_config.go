package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/r3e-network/neo-core/pkg/config/netmode"
	"github.com/r3e-network/neo-core/pkg/crypto/keys"
)

// Default protocol limits used when the corresponding configuration value
// is left out.
const (
	DefaultMaxBlockSize                = 262144
	DefaultMaxBlockSystemFee           = 900000000000
	DefaultMaxTraceableBlocks          = 2102400
	DefaultMaxTransactionsPerBlock     = 512
	DefaultMaxValidUntilBlockIncrement = 5760
	DefaultMemPoolSize                 = 50000
	DefaultSecondsPerBlock             = 15
	// DefaultInitialGAS is the amount of GAS (in its smallest denomination)
	// minted to the standby committee in the genesis block.
	DefaultInitialGAS = 5200000000000000
	// DefaultAddressVersion is the version prefix of Base58Check-encoded
	// addresses.
	DefaultAddressVersion = 0x35
)

// ProtocolConfiguration represents the protocol config.
type ProtocolConfiguration struct {
	Magic netmode.Magic `yaml:"Magic"`

	// AddressVersion is the single byte prefixed to script hashes when
	// encoding them as addresses.
	AddressVersion byte `yaml:"AddressVersion"`
	// Hardforks is a map of hardfork names to the heights they activate at.
	Hardforks map[string]uint32 `yaml:"Hardforks,omitempty"`

	// InitialGASSupply is the amount of GAS generated in the genesis block.
	InitialGASSupply int64 `yaml:"InitialGASSupply"`
	// MaxBlockSize is the maximum block size in bytes.
	MaxBlockSize uint32 `yaml:"MaxBlockSize"`
	// MaxBlockSystemFee is the maximum overall system fee per block.
	MaxBlockSystemFee int64 `yaml:"MaxBlockSystemFee"`
	// MaxTraceableBlocks is the length of the chain accessible to smart contracts.
	MaxTraceableBlocks uint32 `yaml:"MaxTraceableBlocks"`
	// MaxTransactionsPerBlock is the maximum amount of transactions per block.
	MaxTransactionsPerBlock uint16 `yaml:"MaxTransactionsPerBlock"`
	// MaxValidUntilBlockIncrement is the upper increment size of blockchain height in blocks
	// exceeding that a transaction should fail validation.
	MaxValidUntilBlockIncrement uint32 `yaml:"MaxValidUntilBlockIncrement"`
	// MemPoolSize is the maximum amount of transactions in the memory pool.
	MemPoolSize int `yaml:"MemPoolSize"`
	// P2PSigExtensions enables additional signature-related transaction attributes
	// (NotValidBefore and Conflicts).
	P2PSigExtensions bool `yaml:"P2PSigExtensions"`
	// ReservedAttributes allows to have reserved attributes range for
	// experimental or private purposes.
	ReservedAttributes bool `yaml:"ReservedAttributes"`
	// SecondsPerBlock is the time interval between blocks.
	SecondsPerBlock int      `yaml:"SecondsPerBlock"`
	SeedList        []string `yaml:"SeedList"`
	// StandbyCommittee is a list of public keys of the committee members
	// used before the chain accumulates enough votes.
	StandbyCommittee []string `yaml:"StandbyCommittee"`
	// StateRootInHeader enables storing state root in block header.
	StateRootInHeader bool `yaml:"StateRootInHeader"`
	// ValidatorsCount is the number of consensus nodes, it's taken from the
	// top of the committee.
	ValidatorsCount int `yaml:"ValidatorsCount"`
	// Whether to verify transactions in received blocks.
	VerifyTransactions bool `yaml:"VerifyTransactions"`
}

// Validate checks ProtocolConfiguration for internal consistency.
func (p *ProtocolConfiguration) Validate() error {
	if len(p.StandbyCommittee) == 0 {
		return errors.New("StandbyCommittee can't be empty")
	}
	if p.ValidatorsCount <= 0 {
		return errors.New("ValidatorsCount can't be 0")
	}
	if len(p.StandbyCommittee) < p.ValidatorsCount {
		return errors.New("validators count can't exceed the size of StandbyCommittee")
	}
	_, err := p.GetStandbyCommittee()
	return err
}

// GetStandbyCommittee returns the list of public keys of the standby
// committee sorted as a multisignature key material.
func (p *ProtocolConfiguration) GetStandbyCommittee() (keys.PublicKeys, error) {
	ret := make(keys.PublicKeys, len(p.StandbyCommittee))
	for i, key := range p.StandbyCommittee {
		c, err := keys.NewPublicKeyFromString(key)
		if err != nil {
			return nil, fmt.Errorf("invalid standby committee key %d: %w", i, err)
		}
		ret[i] = c
	}
	return ret, nil
}

// GetNumOfCNs returns the number of validators for the given height.
// Committee size change in mid-chain is not supported, so it's constant.
func (p *ProtocolConfiguration) GetNumOfCNs(_ uint32) int {
	return p.ValidatorsCount
}

// SortedSeedList returns a copy of the seed list with stable ordering.
func (p *ProtocolConfiguration) SortedSeedList() []string {
	seeds := make([]string, len(p.SeedList))
	copy(seeds, p.SeedList)
	sort.Strings(seeds)
	return seeds
}

// SetDefaults fills in the zero-valued protocol limits with their defaults.
func (p *ProtocolConfiguration) SetDefaults() {
	if p.AddressVersion == 0 {
		p.AddressVersion = DefaultAddressVersion
	}
	if p.InitialGASSupply == 0 {
		p.InitialGASSupply = DefaultInitialGAS
	}
	if p.MaxBlockSize == 0 {
		p.MaxBlockSize = DefaultMaxBlockSize
	}
	if p.MaxBlockSystemFee == 0 {
		p.MaxBlockSystemFee = DefaultMaxBlockSystemFee
	}
	if p.MaxTraceableBlocks == 0 {
		p.MaxTraceableBlocks = DefaultMaxTraceableBlocks
	}
	if p.MaxTransactionsPerBlock == 0 {
		p.MaxTransactionsPerBlock = DefaultMaxTransactionsPerBlock
	}
	if p.MaxValidUntilBlockIncrement == 0 {
		p.MaxValidUntilBlockIncrement = DefaultMaxValidUntilBlockIncrement
	}
	if p.MemPoolSize <= 0 {
		p.MemPoolSize = DefaultMemPoolSize
	}
	if p.SecondsPerBlock == 0 {
		p.SecondsPerBlock = DefaultSecondsPerBlock
	}
}
