package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories bundles every PostgreSQL-backed repository over one pool.
type Repositories struct {
	Accounts     *AccountRepository
	Letters      *LetterRepository
	Sequences    *SequenceRepository
	Attempts     *LoginAttemptRepository
	BlockHistory *BlockHistoryRepository
	Attachments  *AttachmentRepository
}

// NewRepositories wires all repositories over a shared connection pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Accounts:     NewAccountRepository(pool),
		Letters:      NewLetterRepository(pool),
		Sequences:    NewSequenceRepository(pool),
		Attempts:     NewLoginAttemptRepository(pool),
		BlockHistory: NewBlockHistoryRepository(pool),
		Attachments:  NewAttachmentRepository(pool),
	}
}
