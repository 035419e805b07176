// Package postgres is the PostgreSQL backend of the document store.
package postgres

import (
	"database/sql"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

// Store groups the repositories of one database into a domain.Backend.
type Store struct {
	*MessageRepo
	*PresenceRepo
	*ProfileRepo
}

var _ domain.Backend = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{
		MessageRepo:  NewMessageRepo(db),
		PresenceRepo: NewPresenceRepo(db),
		ProfileRepo:  NewProfileRepo(db),
	}
}
