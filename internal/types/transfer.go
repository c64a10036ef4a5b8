package types

// Per-row import outcome statuses.
const (
	ImportStatusCreated  = "created"
	ImportStatusUpdated  = "updated"
	ImportStatusRejected = "rejected"
)

// ImportRowResult is the outcome of reconciling a single import row.
// RowIndex refers to the position in the uploaded payload, header excluded
// for CSV.
type ImportRowResult struct {
	RowIndex int    `json:"row_index"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

// ImportReport summarises a bulk import. Rows preserve input order.
type ImportReport struct {
	Created  int               `json:"created"`
	Updated  int               `json:"updated"`
	Rejected int               `json:"rejected"`
	Rows     []ImportRowResult `json:"rows"`
}
