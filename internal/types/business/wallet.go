package business

// WalletReadiness is the on-demand snapshot of whether a smart wallet can
// carry a non-sponsored operation. It is derived from chain queries and not
// owned by any component.
type WalletReadiness struct {
	IsDeployed      bool `json:"is_deployed"`
	NeedsPrefunding bool `json:"needs_prefunding"`
}

// Ready reports whether submission can proceed without a setup flow.
func (r WalletReadiness) Ready() bool {
	return r.IsDeployed && !r.NeedsPrefunding
}

// SetupState is the wallet setup progression. Transitions only move forward:
// NotDeployed -> Prefunded -> Deployed.
type SetupState int

const (
	SetupNotDeployed SetupState = iota
	SetupPrefunded
	SetupDeployed
)

func (s SetupState) String() string {
	switch s {
	case SetupPrefunded:
		return "prefunded"
	case SetupDeployed:
		return "deployed"
	default:
		return "not_deployed"
	}
}
