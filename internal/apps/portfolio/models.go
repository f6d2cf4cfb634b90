package portfolio

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// The dashboard does arithmetic on these fields, so emit numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type Holding struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	Name      string          `gorm:"size:64;not null" json:"name"`
	Qty       int64           `gorm:"not null" json:"qty"`
	Avg       decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"avg"`
	Price     decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"price"`
	Net       string          `gorm:"size:16" json:"net"`
	Day       string          `gorm:"size:16" json:"day"`
	IsLoss    bool            `json:"isLoss"`
	CreatedAt time.Time       `json:"created_at"`
}

type Position struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	Product   string          `gorm:"size:8;not null" json:"product"`
	Name      string          `gorm:"size:64;not null" json:"name"`
	Qty       int64           `gorm:"not null" json:"qty"`
	Avg       decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"avg"`
	Price     decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"price"`
	Net       string          `gorm:"size:16" json:"net"`
	Day       string          `gorm:"size:16" json:"day"`
	IsLoss    bool            `json:"isLoss"`
	CreatedAt time.Time       `json:"created_at"`
}

type Order struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	Name      string          `gorm:"size:64;not null" json:"name"`
	Qty       int64           `gorm:"not null" json:"qty"`
	Price     decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"price"`
	Mode      string          `gorm:"size:4;not null" json:"mode"`
	CreatedAt time.Time       `json:"created_at"`
}

// --- DTOs ---

type HoldingRequest struct {
	Name   string          `json:"name"`
	Qty    int64           `json:"qty"`
	Avg    decimal.Decimal `json:"avg"`
	Price  decimal.Decimal `json:"price"`
	Net    string          `json:"net"`
	Day    string          `json:"day"`
	IsLoss bool            `json:"isLoss"`
}

type PositionRequest struct {
	Product string          `json:"product"`
	Name    string          `json:"name"`
	Qty     int64           `json:"qty"`
	Avg     decimal.Decimal `json:"avg"`
	Price   decimal.Decimal `json:"price"`
	Net     string          `json:"net"`
	Day     string          `json:"day"`
	IsLoss  bool            `json:"isLoss"`
}

type OrderRequest struct {
	Name  string          `json:"name"`
	Qty   int64           `json:"qty"`
	Price decimal.Decimal `json:"price"`
	Mode  string          `json:"mode"`
}

// Valuation is the mark-to-market of a quantity bought at avg and now
// quoted at price.
type Valuation struct {
	CurValue decimal.Decimal `json:"curValue"`
	PnL      decimal.Decimal `json:"pnl"`
}

type HoldingView struct {
	Holding
	Valuation
}

type PositionView struct {
	Position
	Valuation
}
