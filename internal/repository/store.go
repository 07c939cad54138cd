package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type sqlStore struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Repos() Repos {
	return newRepos(s.db)
}

func (s *sqlStore) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(newRepos(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

func newRepos(db sqlx.ExtContext) Repos {
	return Repos{
		Loans:      NewLoanRepository(db),
		Repayments: NewRepaymentRepository(db),
	}
}
