package store

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"stars-shop-backend/internal/domain"
)

// Postgres backs the order repository with a durable table behind the
// same interface as Memory. Selected when STARS_DATABASE_URL is set.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	r := &Postgres{db: db}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Postgres) init() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS orders (
		order_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		stars INT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		payment_method TEXT,
		screenshot TEXT,
		status TEXT NOT NULL,
		reject_reason TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`)
	return err
}

func (r *Postgres) Put(o *domain.Order) error {
	_, err := r.db.Exec(`INSERT INTO orders (order_id,username,stars,amount,payment_method,screenshot,status,reject_reason,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (order_id) DO UPDATE SET username=$2,stars=$3,amount=$4,payment_method=$5,screenshot=$6,status=$7,reject_reason=$8,updated_at=$10`,
		o.OrderID, o.Username, o.Stars, o.Amount, o.PaymentMethod, o.Screenshot, string(o.Status), o.RejectReason, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *Postgres) Get(id string) (*domain.Order, bool) {
	o, err := r.scanOne(r.db.QueryRow(`SELECT order_id,username,stars,amount,payment_method,screenshot,status,reject_reason,created_at,updated_at FROM orders WHERE order_id=$1`, id))
	if err != nil {
		return nil, false
	}
	return o, true
}

func (r *Postgres) List() []domain.Order {
	rows, err := r.db.Query(`SELECT order_id,username,stars,amount,payment_method,screenshot,status,reject_reason,created_at,updated_at FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		var method, screenshot, reason sql.NullString
		if err := rows.Scan(&o.OrderID, &o.Username, &o.Stars, &o.Amount, &method, &screenshot, (*string)(&o.Status), &reason, &o.CreatedAt, &o.UpdatedAt); err != nil {
			continue
		}
		o.PaymentMethod = method.String
		o.Screenshot = screenshot.String
		o.RejectReason = reason.String
		out = append(out, o)
	}
	return out
}

// Transition uses a conditional UPDATE so the pending check and the
// write are one statement; the first decision wins.
func (r *Postgres) Transition(id string, to domain.OrderStatus, reason string) (*domain.Order, error) {
	res, err := r.db.Exec(`UPDATE orders SET status=$2, reject_reason=$3, updated_at=$4 WHERE order_id=$1 AND status='pending'`,
		id, string(to), reason, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	o, ok := r.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if n == 0 {
		return o, ErrDecided
	}
	return o, nil
}

func (r *Postgres) scanOne(row *sql.Row) (*domain.Order, error) {
	var o domain.Order
	var method, screenshot, reason sql.NullString
	err := row.Scan(&o.OrderID, &o.Username, &o.Stars, &o.Amount, &method, &screenshot, (*string)(&o.Status), &reason, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = method.String
	o.Screenshot = screenshot.String
	o.RejectReason = reason.String
	return &o, nil
}
