package enums

// CoinTransactionType maps to coin_transactions.type. Parsing is exact; the
// database CHECK constraint compares case-sensitively.
type CoinTransactionType string

const (
	CoinTransactionAdminGrant      CoinTransactionType = "ADMIN_GRANT"
	CoinTransactionRuleEarned      CoinTransactionType = "RULE_EARNED"
	CoinTransactionBenefitPurchase CoinTransactionType = "BENEFIT_PURCHASE"
)

var coinTransactionTypes = newSet("coin transaction type", nil,
	CoinTransactionAdminGrant, CoinTransactionRuleEarned, CoinTransactionBenefitPurchase)

func (t CoinTransactionType) IsValid() bool { return coinTransactionTypes.has(t) }

// IsCredit reports whether transactions of this type add coins.
func (t CoinTransactionType) IsCredit() bool {
	return t == CoinTransactionAdminGrant || t == CoinTransactionRuleEarned
}

func ParseCoinTransactionType(value string) (CoinTransactionType, error) {
	return coinTransactionTypes.parse(value)
}
