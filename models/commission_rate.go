package models

import (
	"sort"
	"time"

	"gorm.io/gorm"
)

// TermClass buckets contract terms into the two rate tables
type TermClass string

const (
	TermClassShort TermClass = "short_term" // Contract term of 12, 24 or 36 months
	TermClassLong  TermClass = "long_term"  // Any other contract term
)

// TermClassFor returns the rate table a contract term belongs to
func TermClassFor(termMonths int) TermClass {
	switch termMonths {
	case 12, 24, 36:
		return TermClassShort
	default:
		return TermClassLong
	}
}

// RateTier is one rung of a commission rate ladder. Tiers are persisted so
// the ladder is auditable and adjustable without a deploy; resolution happens
// over an in-memory RateTable.
type RateTier struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TermClass     TermClass `gorm:"type:varchar(20);not null;index" json:"term_class"`
	MinSalesCount int       `gorm:"not null" json:"min_sales_count"` // 0 marks the default tier
	Rate          float64   `gorm:"type:decimal(5,2);not null" json:"rate"` // Commission percentage (e.g. 2.50)
	IsActive      bool      `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName specifies the table name for GORM
func (RateTier) TableName() string {
	return "commission_rate_tiers"
}

// RateTable resolves commission percentages from (sales count, contract term).
// Each term class holds a descending threshold ladder; the highest matching
// threshold wins. Thresholds are not cumulative tiers.
type RateTable struct {
	tiers map[TermClass][]RateTier
}

// NewRateTable builds a table from persisted tiers, sorting each ladder by
// threshold descending so resolution is a first-match scan.
func NewRateTable(tiers []RateTier) *RateTable {
	byClass := make(map[TermClass][]RateTier)
	for _, t := range tiers {
		if !t.IsActive {
			continue
		}
		byClass[t.TermClass] = append(byClass[t.TermClass], t)
	}
	for class := range byClass {
		ladder := byClass[class]
		sort.Slice(ladder, func(i, j int) bool {
			return ladder[i].MinSalesCount > ladder[j].MinSalesCount
		})
		byClass[class] = ladder
	}
	return &RateTable{tiers: byClass}
}

// DefaultRateTiers returns the compiled-in rate ladders, also used to seed
// the commission_rate_tiers table.
func DefaultRateTiers() []RateTier {
	return []RateTier{
		{TermClass: TermClassShort, MinSalesCount: 10, Rate: 3.00, IsActive: true},
		{TermClass: TermClassShort, MinSalesCount: 8, Rate: 2.50, IsActive: true},
		{TermClass: TermClassShort, MinSalesCount: 6, Rate: 2.00, IsActive: true},
		{TermClass: TermClassShort, MinSalesCount: 0, Rate: 1.50, IsActive: true},
		{TermClass: TermClassLong, MinSalesCount: 10, Rate: 3.50, IsActive: true},
		{TermClass: TermClassLong, MinSalesCount: 8, Rate: 3.00, IsActive: true},
		{TermClass: TermClassLong, MinSalesCount: 6, Rate: 2.50, IsActive: true},
		{TermClass: TermClassLong, MinSalesCount: 0, Rate: 2.00, IsActive: true},
	}
}

// DefaultRateTable builds a table from the compiled-in ladders
func DefaultRateTable() *RateTable {
	return NewRateTable(DefaultRateTiers())
}

// Rate maps (sales count, contract term) to a commission percentage. Pure and
// deterministic: the same inputs always resolve to the same percentage.
func (rt *RateTable) Rate(salesCount, termMonths int) float64 {
	ladder := rt.tiers[TermClassFor(termMonths)]
	for _, tier := range ladder {
		if salesCount >= tier.MinSalesCount {
			return tier.Rate
		}
	}
	return 0
}

// RateTierFilter represents filter criteria for rate tier queries
type RateTierFilter struct {
	ID            *uint      `json:"id,omitempty"`
	TermClass     *TermClass `json:"term_class,omitempty"`
	MinSalesCount *int       `json:"min_sales_count,omitempty"`
	IsActive      *bool      `json:"is_active,omitempty"`
}
