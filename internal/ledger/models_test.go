package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

// The wallet tables are created by gorm migration while the repository
// addresses their columns with hand-written SQL. These tests keep the two
// from drifting apart.
func TestWalletSchemaMatchesRepositorySQL(t *testing.T) {
	s, err := schema.Parse(&Wallet{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	assert.Equal(t, "wallets", s.Table)
	for _, column := range []string{
		"id", "owner_type", "owner_id", "balance", "credit_balance",
		"created_at", "updated_at",
	} {
		assert.NotNil(t, s.LookUpField(column), "wallets is missing column %s", column)
	}
}

func TestWalletTransactionSchemaMatchesRepositorySQL(t *testing.T) {
	s, err := schema.Parse(&WalletTransaction{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	assert.Equal(t, "wallet_transactions", s.Table)
	for _, column := range []string{
		"id", "wallet_id", "counterparty_wallet_id", "direction", "amount",
		"reason", "created_at",
	} {
		assert.NotNil(t, s.LookUpField(column), "wallet_transactions is missing column %s", column)
	}
}
