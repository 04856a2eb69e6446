package enums

import "fmt"

// WalletTransactionType maps to the wallet_transaction_type enum in Postgres.
// The transaction log is append-only; stored wallet balances are a projection
// that must always agree with replaying these entries.
type WalletTransactionType string

const (
	WalletTxnCreditPending            WalletTransactionType = "credit_pending"
	WalletTxnTransferPendingAvailable WalletTransactionType = "transfer_pending_to_available"
	// debit_withdrawal_reversal backs out an accrual when a confirmed order
	// is cancelled; credit_withdrawal_reversal releases a rejected payout hold.
	WalletTxnDebitWithdrawalReversal  WalletTransactionType = "debit_withdrawal_reversal"
	WalletTxnDebitWithdrawalHold      WalletTransactionType = "debit_withdrawal_hold"
	WalletTxnCreditWithdrawalReversal WalletTransactionType = "credit_withdrawal_reversal"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTxnCreditPending,
	WalletTxnTransferPendingAvailable,
	WalletTxnDebitWithdrawalReversal,
	WalletTxnDebitWithdrawalHold,
	WalletTxnCreditWithdrawalReversal,
}

// IsValid reports whether the value matches the canonical transaction type enum.
func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletTransactionType converts raw input into WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
