package enums

import "strings"

// PurchaseStatus tracks fulfillment of a BenefitPurchase.
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "PENDING"
	PurchaseStatusApproved  PurchaseStatus = "APPROVED"
	PurchaseStatusDelivered PurchaseStatus = "DELIVERED"
	PurchaseStatusCancelled PurchaseStatus = "CANCELLED"
)

var purchaseStatuses = newSet("purchase status", strings.ToUpper,
	PurchaseStatusPending, PurchaseStatusApproved, PurchaseStatusDelivered, PurchaseStatusCancelled)

func (s PurchaseStatus) String() string { return string(s) }

func (s PurchaseStatus) IsValid() bool { return purchaseStatuses.has(s) }

// IsTerminal reports whether no further transitions are possible.
func (s PurchaseStatus) IsTerminal() bool {
	return s == PurchaseStatusDelivered || s == PurchaseStatusCancelled
}

func ParsePurchaseStatus(value string) (PurchaseStatus, error) {
	return purchaseStatuses.parse(value)
}
