package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createTransaction = `-- name: CreateTransaction :exec
INSERT INTO transactions (id, account_id, kind, amount, status, counterparty, balance_after, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type CreateTransactionParams struct {
	ID           string             `json:"id"`
	AccountID    string             `json:"account_id"`
	Kind         string             `json:"kind"`
	Amount       pgtype.Numeric     `json:"amount"`
	Status       string             `json:"status"`
	Counterparty string             `json:"counterparty"`
	BalanceAfter pgtype.Numeric     `json:"balance_after"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.Exec(ctx, createTransaction,
		arg.ID,
		arg.AccountID,
		arg.Kind,
		arg.Amount,
		arg.Status,
		arg.Counterparty,
		arg.BalanceAfter,
		arg.CreatedAt,
	)
	return err
}

const getTransactionByID = `-- name: GetTransactionByID :one
SELECT id, account_id, kind, amount, status, counterparty, balance_after, created_at FROM transactions WHERE id = $1
`

func (q *Queries) GetTransactionByID(ctx context.Context, id string) (Transaction, error) {
	row := q.db.QueryRow(ctx, getTransactionByID, id)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.Kind,
		&i.Amount,
		&i.Status,
		&i.Counterparty,
		&i.BalanceAfter,
		&i.CreatedAt,
	)
	return i, err
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, account_id, kind, amount, status, counterparty, balance_after, created_at FROM transactions
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2
`

type ListTransactionsParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactions, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.AccountID,
			&i.Kind,
			&i.Amount,
			&i.Status,
			&i.Counterparty,
			&i.BalanceAfter,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTransactionsByAccount = `-- name: ListTransactionsByAccount :many
SELECT id, account_id, kind, amount, status, counterparty, balance_after, created_at FROM transactions
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

type ListTransactionsByAccountParams struct {
	AccountID string `json:"account_id"`
	Limit     int32  `json:"limit"`
	Offset    int32  `json:"offset"`
}

func (q *Queries) ListTransactionsByAccount(ctx context.Context, arg ListTransactionsByAccountParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactionsByAccount, arg.AccountID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.AccountID,
			&i.Kind,
			&i.Amount,
			&i.Status,
			&i.Counterparty,
			&i.BalanceAfter,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const netByAccount = `-- name: NetByAccount :many
SELECT account_id,
       SUM(CASE WHEN kind = 'DEPOSIT' THEN amount ELSE -amount END)::NUMERIC AS net
FROM transactions
WHERE status = 'SUCCESSFUL'
GROUP BY account_id
`

type NetByAccountRow struct {
	AccountID string         `json:"account_id"`
	Net       pgtype.Numeric `json:"net"`
}

func (q *Queries) NetByAccount(ctx context.Context) ([]NetByAccountRow, error) {
	rows, err := q.db.Query(ctx, netByAccount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []NetByAccountRow{}
	for rows.Next() {
		var i NetByAccountRow
		if err := rows.Scan(&i.AccountID, &i.Net); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
