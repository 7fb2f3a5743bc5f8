package model

import "errors"

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset        AccountType = "asset"
	AccountTypeLiability    AccountType = "liability"
	AccountTypeEquity       AccountType = "equity"
	AccountTypeRevenue      AccountType = "revenue"
	AccountTypeExpense      AccountType = "expense"
	AccountTypeCounterparty AccountType = "counterparty"
)

// IsAsset reports whether t is an asset type. Unknown or empty types are
// treated as non-asset.
func (t AccountType) IsAsset() bool {
	return t == AccountTypeAsset
}

var (
	// ErrAccountNotFound is returned by account stores when no account matches.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateAccount is returned when creating an account would violate
	// the per-user identifier uniqueness constraint.
	ErrDuplicateAccount = errors.New("duplicate account")
)

// Account represents a row in chart-of-accounts.csv.
type Account struct {
	ID          int
	Name        string
	Type        AccountType
	ParentID    int    // 0 = top-level
	Identifier  string // IBAN or bank account number, may be empty
	UserID      int
	Description string
}

// NewAccount holds the parameters for creating an account.
type NewAccount struct {
	Name       string
	Type       AccountType
	Identifier string
	UserID     int
}
