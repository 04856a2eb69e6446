package types

// BankDetails is the payout destination snapshot captured when a withdrawal
// is requested. Immutable once the request is stored.
type BankDetails struct {
	AccountNumber     string `json:"bank_account_number" validate:"required,min=6"`
	IFSCCode          string `json:"ifsc_code" validate:"required,len=11"`
	AccountHolderName string `json:"account_holder_name" validate:"required"`
}
