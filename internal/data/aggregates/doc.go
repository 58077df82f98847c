// Package aggregates implements the cart aggregate contract on gorm.
//
// Every write goes through executeWrite, which owns the transaction, maps
// store errors to aggregate codes, retries conflicts and reports hook signals.
package aggregates
