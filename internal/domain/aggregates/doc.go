// Package aggregates defines the cart aggregate contract: the write boundary
// where line items, the derived total and the lifecycle flags change together.
//
// Nothing here knows about gorm or HTTP. Implementations live in
// internal/data/aggregates.
package aggregates
