package nativenames

// Names of all native contracts.
const (
	Management  = "ContractManagement"
	Ledger      = "LedgerContract"
	Neo         = "NeoToken"
	Gas         = "GasToken"
	Policy      = "PolicyContract"
	Oracle      = "OracleContract"
	Designation = "RoleManagement"
	Std         = "StdLib"
	CryptoLib   = "CryptoLib"
)

// All contains the list of all native contract names.
var All = []string{
	Management,
	Std,
	CryptoLib,
	Ledger,
	Neo,
	Gas,
	Policy,
	Designation,
	Oracle,
}

// IsValid checks if the name is a valid native contract's name.
func IsValid(name string) bool {
	for _, n := range All {
		if name == n {
			return true
		}
	}
	return false
}
