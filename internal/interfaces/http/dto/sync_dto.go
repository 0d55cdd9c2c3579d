package dto

// StartRunRequest starts a synchronization run.
type StartRunRequest struct {
	// Mode selects which sub-operations the run performs.
	Mode string `json:"mode" binding:"required,oneof=FULL DETAILS STOCK MEDIA SEO MISSING"`
	// Workers overrides the configured worker pool size when positive.
	Workers int `json:"workers" binding:"omitempty,min=1,max=64"`
}

// RunIDRequest identifies a run by its id path parameter.
type RunIDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// MigrateOrderRequest migrates one order across catalogs.
type MigrateOrderRequest struct {
	// OrderID is the order's id in the inventory source-of-record.
	OrderID string `json:"order_id" binding:"required"`
}
