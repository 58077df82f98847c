package aggregates

import "slices"

// WriteTxOwnership says who opens and commits the transaction of a write.
type WriteTxOwnership string

const WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"

// ReadPolicy limits which reads an aggregate serves itself.
type ReadPolicy string

const (
	// ReadPolicyInvariantScoped: reads needed for a write decision plus the snapshot.
	ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"
	// ReadPolicyTableRepoQueries: scans and listings stay on table repos.
	ReadPolicyTableRepoQueries ReadPolicy = "table_repo_queries"
)

// Contract is the declared write surface of an aggregate. WriteOps are the
// operation labels that show up in traces, metrics and error ops.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	WriteOps         []string
	Notes            string
}

type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}

// DeclaresWrite reports whether op is one of the contract's write labels.
func (c Contract) DeclaresWrite(op string) bool {
	return slices.Contains(c.WriteOps, op)
}
