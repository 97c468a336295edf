/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Request bodies get
  dedicated types so the wire contract can evolve without touching the
  domain model. Responses serialize the domain types directly - they
  already carry the JSON field names clients expect.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO: Response shapes that don't map 1:1 to a domain type

VALIDATION:
  Validation is done in handlers and domain services, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - bank/types.go: Domain types with their JSON tags
*/
package api

// =============================================================================
// CLIENT TYPES
// =============================================================================

// ClientRequest is the request body to create or update a client.
type ClientRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PhoneNumber  string `json:"phoneNumber"`
	Address      string `json:"address"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage,omitempty"`

	EmergencyName         string `json:"emergencyName,omitempty"`
	EmergencyPhone        string `json:"emergencyPhone,omitempty"`
	EmergencyRelationship string `json:"emergencyRelationship,omitempty"`
}

// OpenAccountRequest is the request body to open an account for a client.
type OpenAccountRequest struct {
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

// =============================================================================
// TRANSACTION TYPES
// =============================================================================

// MovementRequest is the request body for deposits and withdrawals.
type MovementRequest struct {
	ClientID    string `json:"clientId"`
	AccountID   string `json:"accountId"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
}

// TransferRequest is the request body for account-to-account transfers.
type TransferRequest struct {
	FromClientID string `json:"fromClientId"`
	FromAccount  string `json:"fromAccountId"`
	ToClientID   string `json:"toClientId"`
	ToAccount    string `json:"toAccountId"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Description  string `json:"description,omitempty"`
}

// =============================================================================
// LOAN TYPES
// =============================================================================

// CreateLoanRequest is the request body to originate a loan.
type CreateLoanRequest struct {
	ClientID     string `json:"clientId"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	InterestRate string `json:"interestRate"`
	TermMonths   int    `json:"term"`
	StartDate    string `json:"startDate,omitempty"`
	Purpose      string `json:"purpose,omitempty"`
}

// LoanPaymentRequest is the request body to post a loan payment.
type LoanPaymentRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// AmortizationRequest is the request body for the standalone calculator.
type AmortizationRequest struct {
	Principal    string `json:"principal"`
	InterestRate string `json:"interestRate"`
	TermMonths   int    `json:"term"`
}

// =============================================================================
// BACKUP TYPES
// =============================================================================

// RestoreRequest is the request body to restore an organization archive.
type RestoreRequest struct {
	// Archive is the raw archive, base64-encoded when sealed.
	Archive    string `json:"archive"`
	Passphrase string `json:"passphrase,omitempty"`
	Encoded    bool   `json:"encoded,omitempty"`
}

// =============================================================================
// RESPONSE WRAPPERS
// =============================================================================

// BalanceDTO reports a derived total balance.
type BalanceDTO struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
	AsOf     string `json:"asOf"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
