package enums

import "testing"

func TestParseCoinTransactionType(t *testing.T) {
	got, err := ParseCoinTransactionType("RULE_EARNED")
	if err != nil || got != CoinTransactionRuleEarned {
		t.Fatalf("expected RULE_EARNED, got %q err=%v", got, err)
	}
	if _, err := ParseCoinTransactionType("rule_earned"); err == nil {
		t.Fatal("expected lowercase transaction type to be rejected")
	}
	if !CoinTransactionAdminGrant.IsCredit() || CoinTransactionBenefitPurchase.IsCredit() {
		t.Fatal("unexpected credit classification")
	}
}

func TestParseBenefitCategoryIsCaseInsensitive(t *testing.T) {
	got, err := ParseBenefitCategory(" time_off ")
	if err != nil || got != BenefitCategoryTimeOff {
		t.Fatalf("expected TIME_OFF, got %q err=%v", got, err)
	}
	if _, err := ParseBenefitCategory("TRAVEL"); err == nil {
		t.Fatal("expected unknown category to fail")
	}
}

func TestPurchaseStatusTerminal(t *testing.T) {
	cases := map[PurchaseStatus]bool{
		PurchaseStatusPending:   false,
		PurchaseStatusApproved:  false,
		PurchaseStatusDelivered: true,
		PurchaseStatusCancelled: true,
	}
	for status, terminal := range cases {
		if status.IsTerminal() != terminal {
			t.Fatalf("status %s terminal=%v, want %v", status, status.IsTerminal(), terminal)
		}
	}
	if _, err := ParsePurchaseStatus("shipped"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestParseUserRole(t *testing.T) {
	if role, err := ParseUserRole("ADMIN"); err != nil || role != UserRoleAdmin {
		t.Fatalf("expected admin role, got %q err=%v", role, err)
	}
	if UserRole("owner").IsValid() {
		t.Fatal("owner is not a portal role")
	}
}

func TestOutboxEnums(t *testing.T) {
	if !EventBenefitPurchased.IsValid() || !AggregateBenefitPurchase.IsValid() {
		t.Fatal("expected purchase outbox enums to be valid")
	}
	if _, err := ParseOutboxEventType("order_created"); err == nil {
		t.Fatal("expected unknown event type to fail")
	}
	if got, err := ParseOutboxAggregateType(" coin_transaction "); err != nil || got != AggregateCoinTransaction {
		t.Fatalf("expected coin_transaction, got %q err=%v", got, err)
	}
	if !OutboxDLQReasonNoTopic.IsValid() {
		t.Fatal("expected no_topic dlq reason to be valid")
	}
}
