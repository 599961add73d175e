package dto

// GenerateCommissionRequest asks the ledger to generate the commission of a
// finalized sale contract
type GenerateCommissionRequest struct {
	SaleContractUUID string `json:"sale_contract_uuid" validate:"required,uuid"`
}

// CommissionDTO is the wire representation of one ledger record
type CommissionDTO struct {
	ID   uint   `json:"id"`
	UUID string `json:"uuid"`

	EmployeeUUID       string `json:"employee_uuid"`
	EmployeeName       string `json:"employee_name,omitempty"`
	SaleContractUUID   string `json:"sale_contract_uuid"`
	SaleContractNumber string `json:"sale_contract_number,omitempty"`

	Type       string  `json:"type"`
	SaleAmount float64 `json:"sale_amount"`
	TermMonths int     `json:"term_months"`
	SalesCount int     `json:"sales_count"`
	Percentage float64 `json:"percentage"`

	Amount      float64 `json:"amount"`
	TotalAmount float64 `json:"total_amount"`

	PaymentStatus    string  `json:"payment_status"`
	Status           string  `json:"status"`
	PaymentDate      *string `json:"payment_date,omitempty"`
	CommissionPeriod string  `json:"commission_period"`
	PaymentPeriod    *string `json:"payment_period,omitempty"`

	ParentCommissionUUID *string `json:"parent_commission_uuid,omitempty"`
	IsPayable            bool    `json:"is_payable"`
	PaymentPart          int     `json:"payment_part"`
	PaymentPercentage    float64 `json:"payment_percentage"`

	RequiresClientPaymentVerification bool    `json:"requires_client_payment_verification"`
	PaymentVerificationStatus         string  `json:"payment_verification_status"`
	VerificationProgress              int     `json:"verification_progress"`
	IsEligibleForPayment              bool    `json:"is_eligible_for_payment"`
	FirstPaymentVerifiedAt            *string `json:"first_payment_verified_at,omitempty"`
	SecondPaymentVerifiedAt           *string `json:"second_payment_verified_at,omitempty"`

	CreatedAt string `json:"created_at"`
}

// GenerateCommissionResponse returns the freshly generated record
type GenerateCommissionResponse struct {
	Commission CommissionDTO `json:"commission"`
}

// GetCommissionResponse returns one record with its split family attached
type GetCommissionResponse struct {
	Commission       CommissionDTO   `json:"commission"`
	Divisions        []CommissionDTO `json:"divisions,omitempty"`
	TotalSplitAmount float64         `json:"total_split_amount"`
}

// ListCommissionsRequest carries the reporting filters of the list endpoint
type ListCommissionsRequest struct {
	PaginationRequest
	EmployeeUUID     string `query:"employee_uuid" json:"employee_uuid" validate:"omitempty,uuid"`
	Type             string `query:"type" json:"type" validate:"omitempty,oneof=cash_sale installment_sale presale"`
	PaymentStatus    string `query:"payment_status" json:"payment_status" validate:"omitempty,oneof=pending paid cancelled"`
	Status           string `query:"status" json:"status" validate:"omitempty,oneof=generated partially_paid fully_paid"`
	CommissionPeriod string `query:"commission_period" json:"commission_period" validate:"omitempty,commission_period"`
	PaymentPeriod    string `query:"payment_period" json:"payment_period" validate:"omitempty,payment_period"`
	// VerificationStatus filters on the commission's installment track
	VerificationStatus string `query:"verification_status" json:"verification_status" validate:"omitempty,oneof=pending_verification first_payment_verified second_payment_verified fully_verified verification_failed"`
	OnlyPayable        *bool  `query:"only_payable" json:"only_payable"`
}

// ListCommissionsResponse returns one page of the reporting view
type ListCommissionsResponse struct {
	Items    []CommissionDTO `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// PayrollRequest filters the flat payable view
type PayrollRequest struct {
	EmployeeUUID  string `query:"employee_uuid" json:"employee_uuid" validate:"omitempty,uuid"`
	PaymentPeriod string `query:"payment_period" json:"payment_period" validate:"omitempty,payment_period"`
}

// PayrollRowDTO is one payable line: a leaf division or an unsplit commission
type PayrollRowDTO struct {
	CommissionUUID       string  `json:"commission_uuid"`
	EmployeeUUID         string  `json:"employee_uuid"`
	EmployeeName         string  `json:"employee_name,omitempty"`
	Type                 string  `json:"type"`
	Amount               float64 `json:"amount"`
	PaymentStatus        string  `json:"payment_status"`
	PaymentPeriod        *string `json:"payment_period,omitempty"`
	PaymentPart          int     `json:"payment_part"`
	IsEligibleForPayment bool    `json:"is_eligible_for_payment"`
}

// PayrollResponse returns the payable rows and their running total
type PayrollResponse struct {
	Rows        []PayrollRowDTO `json:"rows"`
	TotalAmount float64         `json:"total_amount"`
}

// CancelCommissionRequest cancels an unpaid, unverified commission
type CancelCommissionRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// CancelCommissionResponse returns the cancelled record
type CancelCommissionResponse struct {
	Commission CommissionDTO `json:"commission"`
}
