package accounts

import "github.com/bankfeed/bankfeed/internal/model"

// DefaultChart returns the starter chart of accounts for a ledger kind,
// owned by userID.
func DefaultChart(kind string, userID int) []model.Account {
	var chart []model.Account
	switch kind {
	case "household":
		chart = householdChart()
	default:
		chart = personalChart()
	}
	for i := range chart {
		chart[i].UserID = userID
	}
	return chart
}

func personalChart() []model.Account {
	return []model.Account{
		{ID: 1010, Name: "Checking", Type: model.AccountTypeAsset, Description: "Main current account"},
		{ID: 1020, Name: "Savings", Type: model.AccountTypeAsset, Description: "Savings account"},
		{ID: 2010, Name: "Credit Card", Type: model.AccountTypeLiability},
		{ID: 3010, Name: "Opening Balances", Type: model.AccountTypeEquity},
		{ID: 4010, Name: "Salary", Type: model.AccountTypeRevenue},
		{ID: 4020, Name: "Other Income", Type: model.AccountTypeRevenue},
		{ID: 5010, Name: "Groceries", Type: model.AccountTypeExpense},
		{ID: 5020, Name: "Rent", Type: model.AccountTypeExpense},
		{ID: 5030, Name: "Utilities", Type: model.AccountTypeExpense},
		{ID: 5040, Name: "Subscriptions", Type: model.AccountTypeExpense},
		{ID: 5050, Name: "Other Expenses", Type: model.AccountTypeExpense},
	}
}

func householdChart() []model.Account {
	chart := personalChart()
	chart = append(chart,
		model.Account{ID: 1030, Name: "Joint Checking", Type: model.AccountTypeAsset, Description: "Shared household account"},
		model.Account{ID: 5060, Name: "Childcare", Type: model.AccountTypeExpense},
	)
	return chart
}
