package models

import "time"

// Frequency is how often a contract is billed and its rent increased.
type Frequency string

// Contract frequencies.
const (
	Monthly      Frequency = "monthly"
	Quarterly    Frequency = "quarterly"
	SemiAnnually Frequency = "semi-annually"
	Annually     Frequency = "annually"
)

// Frequencies lists the valid frequencies.
var Frequencies = []Frequency{Monthly, Quarterly, SemiAnnually, Annually}

// Months returns the billing period length in months, or 0 for an unknown frequency.
func (f Frequency) Months() int {
	switch f {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case SemiAnnually:
		return 6
	case Annually:
		return 12
	}
	return 0
}

// IncreaseInterval returns the number of days between two rent increases, or 0 for an unknown frequency.
func (f Frequency) IncreaseInterval() int {
	switch f {
	case Monthly:
		return 30
	case Quarterly:
		return 90
	case SemiAnnually:
		return 180
	case Annually:
		return 365
	}
	return 0
}

// Label returns the human readable name of the frequency.
func (f Frequency) Label() string {
	switch f {
	case Monthly:
		return "Mensual"
	case Quarterly:
		return "Trimestral"
	case SemiAnnually:
		return "Semestral"
	case Annually:
		return "Anual"
	}
	return string(f)
}

// ContractStatus is the lifecycle state of a contract.
type ContractStatus string

// Contract statuses.
const (
	ContractDraft        ContractStatus = "draft"
	ContractActive       ContractStatus = "active"
	ContractExpiringSoon ContractStatus = "expiring_soon"
	ContractFinished     ContractStatus = "finished"
	ContractCancelled    ContractStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s ContractStatus) Valid() bool {
	switch s {
	case ContractDraft, ContractActive, ContractExpiringSoon, ContractFinished, ContractCancelled:
		return true
	}
	return false
}

// Contract is a rental agreement between the agency and a customer for a property.
type Contract struct {
	ID                 int64     `json:"id"`
	PropertyID         int64     `json:"property_id" validate:"required"`
	PropertyTitle      string    `json:"property_title,omitempty"`
	CustomerID         int64     `json:"customer_id" validate:"required"`
	CustomerName       string    `json:"customer_name,omitempty"`
	AgentID            int64     `json:"agent_id" validate:"required"`
	StartDate          Date      `json:"start_date"`
	EndDate            Date      `json:"end_date"`
	Amount             Money     `json:"amount" validate:"gt=0"`
	Currency           string    `json:"currency" validate:"omitempty,len=3"`
	Frequency          Frequency `json:"frequency" validate:"omitempty,oneof=monthly quarterly semi-annually annually"`
	IncreasePercentage float64   `json:"increase_percentage" validate:"gte=0,lte=100"`
	NextIncreaseDate   Date      `json:"next_increase_date"`
	// OwnerDiscountPercentage is the agency commission withheld from the rent paid to the owner.
	OwnerDiscountPercentage float64        `json:"owner_discount_percentage" validate:"gte=0,lte=100"`
	Terms                   string         `json:"terms,omitempty"`
	Notes                   string         `json:"notes,omitempty"`
	IsActive                bool           `json:"is_active"`
	Status                  ContractStatus `json:"status"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
}

// ContractIncrease records a rent increase applied to a contract.
type ContractIncrease struct {
	ID                 int64     `json:"id"`
	ContractID         int64     `json:"contract_id"`
	PreviousAmount     Money     `json:"previous_amount"`
	NewAmount          Money     `json:"new_amount" validate:"gt=0"`
	IncreasePercentage float64   `json:"increase_percentage"`
	EffectiveDate      Date      `json:"effective_date"`
	Notes              string    `json:"notes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}
