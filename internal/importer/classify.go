package importer

import "github.com/bankfeed/bankfeed/internal/model"

// Classify returns the transaction type for a money flow. Credits are
// deposits and debits are withdrawals, unless both endpoints are asset
// accounts, which makes it a transfer between the user's own accounts.
func Classify(dir model.Direction, source, destination model.AccountType) model.TransactionType {
	if source.IsAsset() && destination.IsAsset() {
		return model.TypeTransfer
	}
	if dir == model.Credit {
		return model.TypeDeposit
	}
	return model.TypeWithdrawal
}
