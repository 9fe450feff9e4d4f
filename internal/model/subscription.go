package model

import "time"

type BillingCycle string

const (
	BillingWeekly    BillingCycle = "weekly"
	BillingMonthly   BillingCycle = "monthly"
	BillingQuarterly BillingCycle = "quarterly"
	BillingYearly    BillingCycle = "yearly"
)

// BillingCycles lists every accepted billing cycle.
var BillingCycles = []BillingCycle{BillingWeekly, BillingMonthly, BillingQuarterly, BillingYearly}

type Category string

const (
	CategoryStreaming    Category = "streaming"
	CategoryProductivity Category = "productivity"
	CategoryDesign       Category = "design"
	CategoryDevelopment  Category = "development"
	CategoryFitness      Category = "fitness"
	CategoryMusic        Category = "music"
	CategoryNews         Category = "news"
	CategoryOther        Category = "other"
)

var Categories = []Category{
	CategoryStreaming, CategoryProductivity, CategoryDesign, CategoryDevelopment,
	CategoryFitness, CategoryMusic, CategoryNews, CategoryOther,
}

// Subscription is a recurring payment owned by exactly one user.
type Subscription struct {
	ID              string       `db:"id" json:"id"`
	UserID          string       `db:"user_id" json:"user_id"`
	ServiceName     string       `db:"service_name" json:"service_name"`
	Cost            float64      `db:"cost" json:"cost"`
	BillingCycle    BillingCycle `db:"billing_cycle" json:"billing_cycle"`
	Category        Category     `db:"category" json:"category"`
	NextPaymentDate time.Time    `db:"next_payment_date" json:"next_payment_date"`
	Description     string       `db:"description" json:"description"`
	IsActive        bool         `db:"is_active" json:"is_active"`
	IsRecurring     bool         `db:"is_recurring" json:"is_recurring"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}
