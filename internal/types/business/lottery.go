package business

// PurchaseSelection is one ticket purchase picked in the UI: a lottery round
// and the numbers played. A batch submission bundles several selections into
// a single atomic operation.
type PurchaseSelection struct {
	RoundID uint64   `json:"round_id"`
	Numbers []uint32 `json:"numbers"`
}
