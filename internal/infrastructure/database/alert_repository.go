package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/minhdn/price-alert-bot/internal/domain"
)

type AlertRepository struct {
	db *DB
}

func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) CreateAlert(ctx context.Context, alert *domain.Alert) error {
	query := `
		INSERT INTO alerts (user_id, symbol, condition, target_price, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx, query,
		alert.UserID, alert.Symbol, alert.Condition, alert.TargetPrice,
	).Scan(&alert.ID, &alert.CreatedAt, &alert.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	alert.IsActive = true
	return nil
}

// GetActiveAlerts возвращает активные алерты всех пользователей.
// Порядок стабильный - по созданию: от него зависит порядок обхода
// тикеров в цикле мониторинга.
func (r *AlertRepository) GetActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	query := `
		SELECT id, user_id, symbol, condition, target_price, is_active, created_at, updated_at
		FROM alerts
		WHERE is_active = TRUE
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func (r *AlertRepository) GetUserAlerts(ctx context.Context, userID int64) ([]domain.Alert, error) {
	query := `
		SELECT id, user_id, symbol, condition, target_price, is_active, created_at, updated_at
		FROM alerts
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// DeleteAlert удаляет алерт, если он принадлежит пользователю.
// false - не найден или чужой, различать эти случаи незачем.
func (r *AlertRepository) DeleteAlert(ctx context.Context, id int64, userID int64) (bool, error) {
	query := `DELETE FROM alerts WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete alert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Helpers

func scanAlerts(rows *sql.Rows) ([]domain.Alert, error) {
	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		err := rows.Scan(
			&a.ID, &a.UserID, &a.Symbol, &a.Condition,
			&a.TargetPrice, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row error: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
