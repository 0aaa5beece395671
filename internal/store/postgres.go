// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"dealership-workers/internal/common/errors"
	"dealership-workers/internal/common/logger"
	"dealership-workers/internal/models"

	"github.com/lib/pq"
)

const (
	queryGetVehicle = `
		SELECT id, category, sale_price
		FROM vehicles
		WHERE id = $1`

	// Roster order is the tie-break for equal scores, so it must be stable.
	queryActiveSalespeople = `
		SELECT id, name, email, level, specialties, max_lead_capacity, assignment_rules
		FROM users
		WHERE role = $1 AND status = $2
		ORDER BY created_at, id`

	queryCountOpenLeads = `
		SELECT COUNT(*)
		FROM leads
		WHERE salesperson_id = $1 AND status <> ALL($2)`

	queryCountReceivedConverted = `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $3)
		FROM leads
		WHERE salesperson_id = $1 AND created_at >= $2`
)

// PostgresStore reads vehicles, salespeople and lead aggregates from the CRM database.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-store"}),
	}
}

func (s *PostgresStore) GetVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	var v models.Vehicle
	var category string
	err := s.db.QueryRowContext(ctx, queryGetVehicle, vehicleID).Scan(&v.ID, &category, &v.SalePrice)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewVehicleNotFoundError(vehicleID)
	}
	if err != nil {
		return nil, queryError("get vehicle", err)
	}
	v.Category = models.Category(category)
	return &v, nil
}

func (s *PostgresStore) ListActiveSalespeople(ctx context.Context) ([]models.Salesperson, error) {
	rows, err := s.db.QueryContext(ctx, queryActiveSalespeople, models.RoleSalesperson, models.StatusActive)
	if err != nil {
		return nil, queryError("list active salespeople", err)
	}
	defer rows.Close()

	var people []models.Salesperson
	for rows.Next() {
		var (
			sp          models.Salesperson
			email       sql.NullString
			level       string
			specialties []string
			rules       []byte
		)
		if err := rows.Scan(&sp.ID, &sp.Name, &email, &level, pq.Array(&specialties), &sp.MaxLeadCapacity, &rules); err != nil {
			return nil, queryError("scan salesperson", err)
		}

		sp.Email = email.String
		sp.Level = models.Level(level)
		sp.Status = models.StatusActive
		sp.Specialties = make([]models.Category, 0, len(specialties))
		for _, c := range specialties {
			sp.Specialties = append(sp.Specialties, models.Category(c))
		}
		sp.AssignmentRules = s.parseRules(sp.ID, rules)

		people = append(people, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("list active salespeople", err)
	}
	return people, nil
}

// parseRules decodes the assignment_rules column. NULL and unreadable
// documents both mean no restriction; the latter is logged.
func (s *PostgresStore) parseRules(salespersonID string, raw []byte) *models.AssignmentRules {
	if len(raw) == 0 {
		return nil
	}
	var rules models.AssignmentRules
	if err := json.Unmarshal(raw, &rules); err != nil {
		s.logger.Warn("ignoring malformed assignment rules", map[string]interface{}{
			"salespersonId": salespersonID,
			"error":         err,
		})
		return nil
	}
	return &rules
}

func (s *PostgresStore) CountOpenLeads(ctx context.Context, salespersonID string) (int, error) {
	terminal := make([]string, 0, len(models.TerminalLeadStatuses))
	for _, st := range models.TerminalLeadStatuses {
		terminal = append(terminal, string(st))
	}

	var n int
	if err := s.db.QueryRowContext(ctx, queryCountOpenLeads, salespersonID, pq.Array(terminal)).Scan(&n); err != nil {
		return 0, queryError("count open leads", err)
	}
	return n, nil
}

func (s *PostgresStore) CountLeadsReceivedAndConverted(ctx context.Context, salespersonID string, since time.Time) (int, int, error) {
	var received, converted int
	err := s.db.QueryRowContext(ctx, queryCountReceivedConverted, salespersonID, since, string(models.LeadStatusConverted)).
		Scan(&received, &converted)
	if err != nil {
		return 0, 0, queryError("count received and converted leads", err)
	}
	return received, converted, nil
}

func queryError(query string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewQueryTimeoutError(query)
	}
	return errors.NewDatabaseQueryFailedError(query, err)
}
