package portfolio

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNameRequired    = errors.New("instrument name is required")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrInvalidMode     = errors.New("mode must be BUY or SELL")
	ErrInvalidProduct  = errors.New("product is required")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func Value(qty int64, avg, price decimal.Decimal) Valuation {
	q := decimal.NewFromInt(qty)
	cur := price.Mul(q)
	return Valuation{
		CurValue: cur,
		PnL:      cur.Sub(avg.Mul(q)),
	}
}

func (s *Service) ListHoldings(ctx context.Context, userID uuid.UUID) ([]HoldingView, error) {
	var holdings []Holding
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&holdings).Error; err != nil {
		return nil, err
	}
	views := make([]HoldingView, 0, len(holdings))
	for _, h := range holdings {
		views = append(views, HoldingView{Holding: h, Valuation: Value(h.Qty, h.Avg, h.Price)})
	}
	return views, nil
}

func (s *Service) AddHolding(ctx context.Context, userID uuid.UUID, req HoldingRequest) (*Holding, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if req.Qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.Avg.IsNegative() || req.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}

	h := Holding{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
		Qty:    req.Qty,
		Avg:    req.Avg,
		Price:  req.Price,
		Net:    req.Net,
		Day:    req.Day,
		IsLoss: req.IsLoss,
	}
	if err := s.db.WithContext(ctx).Create(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Service) ListPositions(ctx context.Context, userID uuid.UUID) ([]PositionView, error) {
	var positions []Position
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&positions).Error; err != nil {
		return nil, err
	}
	views := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, PositionView{Position: p, Valuation: Value(p.Qty, p.Avg, p.Price)})
	}
	return views, nil
}

func (s *Service) AddPosition(ctx context.Context, userID uuid.UUID, req PositionRequest) (*Position, error) {
	name := strings.TrimSpace(req.Name)
	product := strings.ToUpper(strings.TrimSpace(req.Product))
	switch {
	case name == "":
		return nil, ErrNameRequired
	case product == "":
		return nil, ErrInvalidProduct
	case req.Qty == 0:
		return nil, ErrInvalidQuantity
	case req.Avg.IsNegative() || req.Price.IsNegative():
		return nil, ErrInvalidPrice
	}

	p := Position{
		ID:      uuid.New(),
		UserID:  userID,
		Product: product,
		Name:    name,
		Qty:     req.Qty,
		Avg:     req.Avg,
		Price:   req.Price,
		Net:     req.Net,
		Day:     req.Day,
		IsLoss:  req.IsLoss,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) ListOrders(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders := []Order{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) PlaceOrder(ctx context.Context, userID uuid.UUID, req OrderRequest) (*Order, error) {
	name := strings.TrimSpace(req.Name)
	mode := strings.ToUpper(strings.TrimSpace(req.Mode))
	switch {
	case name == "":
		return nil, ErrNameRequired
	case req.Qty <= 0:
		return nil, ErrInvalidQuantity
	case !req.Price.IsPositive():
		return nil, ErrInvalidPrice
	case mode != "BUY" && mode != "SELL":
		return nil, ErrInvalidMode
	}

	o := Order{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
		Qty:    req.Qty,
		Price:  req.Price,
		Mode:   mode,
	}
	if err := s.db.WithContext(ctx).Create(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}
