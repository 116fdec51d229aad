package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a storage transaction and hands the
// backend-specific handle to fn as tx. Repositories accept the handle on every
// call and must treat a nil handle as the non-transactional path.
//
// fn returning an error rolls back every write made through tx.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
