package feed

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/mskd12/skip-checkpoint-chain/internal/metrics"
)

type DatabaseConfig struct {
	Host     string
	User     string
	Password string
	DBname   string
	Port     string
}

// MySQLGetter reads the event stream from the application's chain_events
// table.
type MySQLGetter struct {
	db *gorm.DB
}

func ConnectEventDatabase(config DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True",
		config.User, config.Password, config.Host, config.Port, config.DBname)
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

func NewMySQLGetter(config DatabaseConfig) (*MySQLGetter, error) {
	db, err := ConnectEventDatabase(config)
	if err != nil {
		return nil, err
	}
	return &MySQLGetter{db: db}, nil
}

func (g *MySQLGetter) GetLatestEventID() (uint64, error) {
	defer metrics.ObserveFeedQuery("getLatestEventID", time.Now())
	var id uint64
	sql := `
		SELECT id
		FROM chain_events ORDER BY id DESC LIMIT 1
	`
	err := g.db.Raw(sql).Scan(&id).Error
	if err != nil {
		return 0, err
	}
	return id, nil
}

// eventRow carries amounts as decimal strings; MySQL DECIMAL columns do
// not fit any native integer.
type eventRow struct {
	ID      uint64
	Kind    string
	Account string
	Amount  string
}

func (g *MySQLGetter) GetEventsAfter(afterID uint64, limit int) ([]Event, error) {
	defer metrics.ObserveFeedQuery("getEventsAfter", time.Now())
	var rows []eventRow
	sql := `
		SELECT id, kind, account, amount
		FROM chain_events
		WHERE id > ?
		ORDER BY id asc
		LIMIT ?
	`
	err := g.db.Raw(sql, afterID, limit).Scan(&rows).Error
	if err != nil {
		return make([]Event, 0), err
	}
	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		amount, err := uint256.FromDecimal(row.Amount)
		if err != nil {
			return make([]Event, 0), fmt.Errorf("event %d amount %q: %w", row.ID, row.Amount, err)
		}
		events = append(events, Event{
			ID:      row.ID,
			Kind:    row.Kind,
			Account: row.Account,
			Amount:  amount,
		})
	}
	return events, nil
}
