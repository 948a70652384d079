package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/google/uuid"
)

// Order id alphabet avoids ambiguous characters so references survive
// being read back over chat.
const orderIDAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	orderIDLength  = 12
	orderRefLength = 6
)

// Customer is a per-tenant buyer record keyed by phone number.
type Customer struct {
	ID        string    `json:"id"`
	LicenseID string    `json:"license_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderItem is one line of an order. Product name and price are copied
// at order time so later catalog edits don't rewrite past orders.
type OrderItem struct {
	ID              string `json:"id"`
	OrderID         string `json:"order_id"`
	ProductID       string `json:"product_id"`
	ProductName     string `json:"product_name"`
	PriceAmount1000 int64  `json:"price_amount_1000"`
	Quantity        int    `json:"quantity"`
}

// Order is a placed order with its items and customer.
type Order struct {
	ID              string      `json:"id"`
	LicenseID       string      `json:"license_id"`
	CustomerID      string      `json:"customer_id"`
	TotalAmount1000 int64       `json:"total_amount_1000"`
	Status          string      `json:"status"`
	Items           []OrderItem `json:"items"`
	Customer        *Customer   `json:"customer,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Ref returns the short reference customers see in confirmations. It is
// a prefix of the order id, so FindOrder can resolve it with a prefix
// match.
func (o *Order) Ref() string {
	if len(o.ID) < orderRefLength {
		return o.ID
	}
	return o.ID[:orderRefLength]
}

// CustomerDetails identifies the buyer on a new order.
type CustomerDetails struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// NewOrderItem is one requested line on a new order.
type NewOrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// NewOrder carries everything needed to place an order.
type NewOrder struct {
	Items    []NewOrderItem  `json:"items"`
	Customer CustomerDetails `json:"customer"`
}

// CreateOrder places an order for a tenant. Every product must exist and
// belong to the tenant; the customer is created or refreshed by phone
// number; order, items and customer changes commit in one transaction.
func (s *Store) CreateOrder(ctx context.Context, licenseID string, req NewOrder) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if req.Customer.Name == "" || req.Customer.Phone == "" {
		return nil, errors.New("customer name and phone are required")
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("invalid quantity %d for product %s", item.Quantity, item.ProductID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	products, err := s.productsByID(ctx, tx, licenseID, req.Items)
	if err != nil {
		return nil, err
	}

	customer, err := s.upsertCustomer(ctx, tx, licenseID, req.Customer)
	if err != nil {
		return nil, err
	}

	orderID, err := gonanoid.Generate(orderIDAlphabet, orderIDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate order id: %w", err)
	}

	ts := now()
	var total int64
	items := make([]OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		p := products[item.ProductID]
		total += p.PriceAmount1000 * int64(item.Quantity)
		items = append(items, OrderItem{
			ID:              uuid.NewString(),
			OrderID:         orderID,
			ProductID:       p.ID,
			ProductName:     p.Name,
			PriceAmount1000: p.PriceAmount1000,
			Quantity:        item.Quantity,
		})
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, license_id, customer_id, total_amount_1000, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'pending', ?, ?)`,
		orderID, licenseID, customer.ID, total, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, product_name, price_amount_1000, quantity)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			item.ID, item.OrderID, item.ProductID, item.ProductName, item.PriceAmount1000, item.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	s.logger.Info().
		Str("order_id", orderID).
		Str("license_id", licenseID).
		Int64("total_amount_1000", total).
		Msg("Order created")

	return s.GetOrder(ctx, licenseID, orderID)
}

func (s *Store) productsByID(ctx context.Context, tx *sql.Tx, licenseID string, items []NewOrderItem) (map[string]*Product, error) {
	products := make(map[string]*Product, len(items))
	for _, item := range items {
		if _, ok := products[item.ProductID]; ok {
			continue
		}
		row := tx.QueryRowContext(ctx,
			`SELECT id, license_id, name, description, price_amount_1000, created_at, updated_at
			 FROM products WHERE id = ? AND license_id = ?`,
			item.ProductID, licenseID,
		)
		p, err := scanProduct(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
			}
			return nil, fmt.Errorf("failed to look up product %s: %w", item.ProductID, err)
		}
		products[item.ProductID] = p
	}
	return products, nil
}

func (s *Store) upsertCustomer(ctx context.Context, tx *sql.Tx, licenseID string, details CustomerDetails) (*Customer, error) {
	ts := now()
	customer := &Customer{
		LicenseID: licenseID,
		Name:      details.Name,
		Phone:     details.Phone,
		UpdatedAt: ts,
	}

	row := tx.QueryRowContext(ctx,
		`SELECT id, created_at FROM customers WHERE license_id = ? AND phone = ?`,
		licenseID, details.Phone,
	)
	err := row.Scan(&customer.ID, &customer.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		customer.ID = uuid.NewString()
		customer.CreatedAt = ts
		_, err = tx.ExecContext(ctx,
			`INSERT INTO customers (id, license_id, name, phone, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			customer.ID, licenseID, customer.Name, customer.Phone, ts, ts,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create customer: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	default:
		// Refresh the name; people correct typos across orders.
		_, err = tx.ExecContext(ctx,
			`UPDATE customers SET name = ?, updated_at = ? WHERE id = ?`,
			customer.Name, ts, customer.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update customer: %w", err)
		}
	}

	return customer, nil
}

// GetOrder retrieves a tenant-owned order with its items and customer.
func (s *Store) GetOrder(ctx context.Context, licenseID, orderID string) (*Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, license_id, customer_id, total_amount_1000, status, created_at, updated_at
		 FROM orders WHERE id = ? AND license_id = ?`,
		orderID, licenseID,
	)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := s.attachOrderDetails(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// FindOrder resolves an order by tenant, order-id prefix (as surfaced in
// confirmations) and customer phone. Returns nil without error when no
// order matches; absence is a conversational outcome, not a failure.
func (s *Store) FindOrder(ctx context.Context, licenseID, orderIDPrefix, phone string) (*Order, error) {
	if orderIDPrefix == "" || phone == "" {
		return nil, errors.New("order id prefix and phone are required")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT o.id, o.license_id, o.customer_id, o.total_amount_1000, o.status, o.created_at, o.updated_at
		 FROM orders o
		 JOIN customers c ON c.id = o.customer_id
		 WHERE o.license_id = ? AND o.id LIKE ? AND c.phone = ?
		 ORDER BY o.created_at DESC
		 LIMIT 1`,
		licenseID, strings.ToUpper(orderIDPrefix)+"%", phone,
	)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	if err := s.attachOrderDetails(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders returns a page of a tenant's orders, newest first.
func (s *Store) ListOrders(ctx context.Context, licenseID string, page, limit int) ([]Order, Pagination, error) {
	page, limit = normalizePage(page, limit)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE license_id = ?`, licenseID,
	).Scan(&total); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count orders: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, license_id, customer_id, total_amount_1000, status, created_at, updated_at
		 FROM orders WHERE license_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		licenseID, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, Pagination{}, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list orders: %w", err)
	}

	for i := range orders {
		if err := s.attachOrderDetails(ctx, &orders[i]); err != nil {
			return nil, Pagination{}, err
		}
	}

	return orders, paginate(total, page, limit), nil
}

func (s *Store) attachOrderDetails(ctx context.Context, o *Order) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name, price_amount_1000, quantity
		 FROM order_items WHERE order_id = ?
		 ORDER BY rowid`,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID,
			&item.ProductName, &item.PriceAmount1000, &item.Quantity); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	var c Customer
	row := s.db.QueryRowContext(ctx,
		`SELECT id, license_id, name, phone, created_at, updated_at FROM customers WHERE id = ?`,
		o.CustomerID,
	)
	if err := row.Scan(&c.ID, &c.LicenseID, &c.Name, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("failed to load order customer: %w", err)
	}
	o.Customer = &c

	return nil
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.LicenseID, &o.CustomerID, &o.TotalAmount1000,
		&o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
