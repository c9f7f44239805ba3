package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"gigledger/internal/core"
)

const dateLayout = "2006-01-02"

// SQLiteRepository is the record store adapter: thin read/write access to
// persisted gig and expense rows. Money columns are integer cents; decimal
// conversion happens at this boundary.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const gigColumns = `id, user_id, event_name, client_name, gig_type, date,
	multi_day_group_id, status, expected_pay_cents, actual_pay_cents,
	tips_cents, total_received_cents, reimbursed_parking_cents,
	reimbursed_other_cents, unreimbursed_parking_cents,
	unreimbursed_other_cents, parking_expense_cents, other_expenses_cents,
	tax_percentage, mileage, got_paid_date, payment_method`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGig(row rowScanner) (core.GigRecord, error) {
	var (
		g             core.GigRecord
		dateStr       string
		totalReceived sql.NullInt64
		taxPct        sql.NullString
		mileage       string
		gotPaid       sql.NullString
		expected, actual, tips, reimbP, reimbO, unreimbP, unreimbO, parking, other int64
	)

	err := row.Scan(&g.ID, &g.UserID, &g.EventName, &g.ClientName, &g.GigType,
		&dateStr, &g.MultiDayGroupID, &g.Status, &expected, &actual, &tips,
		&totalReceived, &reimbP, &reimbO, &unreimbP, &unreimbO, &parking,
		&other, &taxPct, &mileage, &gotPaid, &g.PaymentMethod)
	if err != nil {
		return core.GigRecord{}, err
	}

	g.Date, err = time.Parse(dateLayout, dateStr)
	if err != nil {
		return core.GigRecord{}, fmt.Errorf("parse gig date %q: %w", dateStr, err)
	}

	g.ExpectedPay = core.FromCents(expected)
	g.ActualPay = core.FromCents(actual)
	g.Tips = core.FromCents(tips)
	g.ReimbursedParking = core.FromCents(reimbP)
	g.ReimbursedOther = core.FromCents(reimbO)
	g.UnreimbursedParking = core.FromCents(unreimbP)
	g.UnreimbursedOther = core.FromCents(unreimbO)
	g.ParkingExpense = core.FromCents(parking)
	g.OtherExpenses = core.FromCents(other)

	if totalReceived.Valid {
		d := core.FromCents(totalReceived.Int64)
		g.TotalReceived = &d
	}
	if taxPct.Valid {
		d, err := decimal.NewFromString(taxPct.String)
		if err != nil {
			return core.GigRecord{}, fmt.Errorf("parse tax percentage %q: %w", taxPct.String, err)
		}
		g.TaxPercentage = &d
	}
	g.Mileage, err = decimal.NewFromString(mileage)
	if err != nil {
		return core.GigRecord{}, fmt.Errorf("parse mileage %q: %w", mileage, err)
	}
	if gotPaid.Valid {
		t, err := time.Parse(time.RFC3339, gotPaid.String)
		if err != nil {
			return core.GigRecord{}, fmt.Errorf("parse got paid date %q: %w", gotPaid.String, err)
		}
		g.GotPaidDate = &t
	}

	return g, nil
}

func gigArgs(g core.GigRecord) []any {
	var taxPct, gotPaid any
	if g.TaxPercentage != nil {
		taxPct = g.TaxPercentage.String()
	}
	if g.GotPaidDate != nil {
		gotPaid = g.GotPaidDate.UTC().Format(time.RFC3339)
	}
	return []any{
		g.UserID, g.EventName, g.ClientName, g.GigType,
		g.Date.Format(dateLayout), g.MultiDayGroupID, string(g.Status),
		core.Cents(g.ExpectedPay), core.Cents(g.ActualPay), core.Cents(g.Tips),
		toNullCents(g.TotalReceived),
		core.Cents(g.ReimbursedParking), core.Cents(g.ReimbursedOther),
		core.Cents(g.UnreimbursedParking), core.Cents(g.UnreimbursedOther),
		core.Cents(g.ParkingExpense), core.Cents(g.OtherExpenses),
		taxPct, g.Mileage.String(), gotPaid, g.PaymentMethod,
	}
}

func toNullCents(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return core.Cents(*d)
}

func (r *SQLiteRepository) CreateGig(ctx context.Context, g core.GigRecord) (core.GigRecord, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO gigs (user_id, event_name, client_name, gig_type, date,
			multi_day_group_id, status, expected_pay_cents, actual_pay_cents,
			tips_cents, total_received_cents, reimbursed_parking_cents,
			reimbursed_other_cents, unreimbursed_parking_cents,
			unreimbursed_other_cents, parking_expense_cents,
			other_expenses_cents, tax_percentage, mileage, got_paid_date,
			payment_method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gigArgs(g)...)
	if err != nil {
		return core.GigRecord{}, fmt.Errorf("create gig: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.GigRecord{}, fmt.Errorf("create gig id: %w", err)
	}
	g.ID = id

	slog.InfoContext(ctx, "Gig saved",
		"id", g.ID,
		"user_id", g.UserID,
		"event_name", g.EventName,
		"date", g.Date.Format(dateLayout))

	return g, nil
}

func (r *SQLiteRepository) GetGig(ctx context.Context, id int64) (core.GigRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+gigColumns+` FROM gigs WHERE id = ?`, id)
	g, err := scanGig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.GigRecord{}, core.ErrNotFound
	}
	if err != nil {
		return core.GigRecord{}, fmt.Errorf("get gig %d: %w", id, err)
	}
	return g, nil
}

func (r *SQLiteRepository) GetGigsByUser(ctx context.Context, userID int64, limit, offset int) ([]core.GigRecord, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM gigs WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count gigs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+gigColumns+` FROM gigs WHERE user_id = ?
		 ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("get gigs by user: %w", err)
	}
	defer rows.Close()

	gigs, err := collectGigs(rows)
	if err != nil {
		return nil, 0, err
	}
	return gigs, total, nil
}

// GetGigsByDateRange returns gigs with date in [start, end).
func (r *SQLiteRepository) GetGigsByDateRange(ctx context.Context, userID int64, start, end time.Time) ([]core.GigRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+gigColumns+` FROM gigs
		 WHERE user_id = ? AND date >= ? AND date < ?
		 ORDER BY date ASC, id ASC`,
		userID, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("get gigs by date range: %w", err)
	}
	defer rows.Close()
	return collectGigs(rows)
}

func (r *SQLiteRepository) GetGigsByGroupID(ctx context.Context, userID int64, groupID string) ([]core.GigRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+gigColumns+` FROM gigs
		 WHERE user_id = ? AND multi_day_group_id = ?
		 ORDER BY date ASC, id ASC`,
		userID, groupID)
	if err != nil {
		return nil, fmt.Errorf("get gigs by group id: %w", err)
	}
	defer rows.Close()
	return collectGigs(rows)
}

// GetOpenGigs returns the user's non-completed gigs, the candidate pool for
// payment group resolution.
func (r *SQLiteRepository) GetOpenGigs(ctx context.Context, userID int64) ([]core.GigRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+gigColumns+` FROM gigs
		 WHERE user_id = ? AND status != ?
		 ORDER BY date ASC, id ASC`,
		userID, string(core.StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("get open gigs: %w", err)
	}
	defer rows.Close()
	return collectGigs(rows)
}

func collectGigs(rows *sql.Rows) ([]core.GigRecord, error) {
	var gigs []core.GigRecord
	for rows.Next() {
		g, err := scanGig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gig: %w", err)
		}
		gigs = append(gigs, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gigs: %w", err)
	}
	return gigs, nil
}

// UpdateGig writes every mutable column of the row back.
func (r *SQLiteRepository) UpdateGig(ctx context.Context, g core.GigRecord) error {
	args := append(gigArgs(g), g.ID)
	res, err := r.db.ExecContext(ctx, `
		UPDATE gigs SET user_id = ?, event_name = ?, client_name = ?,
			gig_type = ?, date = ?, multi_day_group_id = ?, status = ?,
			expected_pay_cents = ?, actual_pay_cents = ?, tips_cents = ?,
			total_received_cents = ?, reimbursed_parking_cents = ?,
			reimbursed_other_cents = ?, unreimbursed_parking_cents = ?,
			unreimbursed_other_cents = ?, parking_expense_cents = ?,
			other_expenses_cents = ?, tax_percentage = ?, mileage = ?,
			got_paid_date = ?, payment_method = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update gig %d: %w", g.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update gig %d: %w", g.ID, err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteGig(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM gigs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete gig %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete gig %d: %w", id, err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	var gigID any
	if e.GigID != nil {
		gigID = *e.GigID
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (user_id, date, amount_cents, merchant, purpose,
			category, gig_id, reimbursed_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Date.Format(dateLayout), core.Cents(e.Amount),
		e.Merchant, e.Purpose, e.Category, gigID, core.Cents(e.ReimbursedAmount))
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("create expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("create expense id: %w", err)
	}
	e.ID = id
	return e, nil
}

// GetExpensesByDateRange returns expenses with date in [start, end).
func (r *SQLiteRepository) GetExpensesByDateRange(ctx context.Context, userID int64, start, end time.Time) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, date, amount_cents, merchant, purpose, category,
			gig_id, reimbursed_cents
		FROM expenses
		WHERE user_id = ? AND date >= ? AND date < ?
		ORDER BY date ASC, id ASC`,
		userID, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("get expenses by date range: %w", err)
	}
	defer rows.Close()

	var expenses []core.ExpenseRecord
	for rows.Next() {
		var (
			e       core.ExpenseRecord
			dateStr string
			amount  int64
			reimb   int64
			gigID   sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &dateStr, &amount, &e.Merchant,
			&e.Purpose, &e.Category, &gigID, &reimb); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date, err = time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse expense date %q: %w", dateStr, err)
		}
		e.Amount = core.FromCents(amount)
		e.ReimbursedAmount = core.FromCents(reimb)
		if gigID.Valid {
			id := gigID.Int64
			e.GigID = &id
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// DeleteExpense is scoped by user: deleting someone else's row reads as
// ErrNotFound.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DefaultTaxPercentage returns the user's configured default rate. The second
// return is false when the user has no settings row.
func (r *SQLiteRepository) DefaultTaxPercentage(ctx context.Context, userID int64) (decimal.Decimal, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT default_tax_percentage FROM user_settings WHERE user_id = ?`,
		userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("get default tax percentage: %w", err)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parse default tax percentage %q: %w", raw, err)
	}
	return d, true, nil
}

func (r *SQLiteRepository) SetDefaultTaxPercentage(ctx context.Context, userID int64, pct decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, default_tax_percentage)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET default_tax_percentage = excluded.default_tax_percentage`,
		userID, pct.String())
	if err != nil {
		return fmt.Errorf("set default tax percentage: %w", err)
	}
	return nil
}

// PromoteOverdueGigs moves past-dated upcoming gigs to pending_payment and
// returns how many rows changed. The worker runs this periodically.
func (r *SQLiteRepository) PromoteOverdueGigs(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE gigs SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE status = ? AND date < ?`,
		string(core.StatusPendingPayment), string(core.StatusUpcoming),
		now.UTC().Format(dateLayout))
	if err != nil {
		return 0, fmt.Errorf("promote overdue gigs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("promote overdue gigs: %w", err)
	}
	if affected > 0 {
		slog.InfoContext(ctx, "Promoted overdue gigs to pending payment", "count", affected)
	}
	return affected, nil
}
