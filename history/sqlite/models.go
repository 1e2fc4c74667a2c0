package sqlite

import (
	"fmt"
	"time"

	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/id"
	"github.com/xraph/clearing/types"
)

type historyModel struct {
	TxID       uint32    `gorm:"column:tx_id;primaryKey;autoIncrement:false"`
	Kind       string    `gorm:"column:kind;not null"`
	Client     uint16    `gorm:"column:client;not null;index"`
	Amount     *string   `gorm:"column:amount"`
	RunID      id.ID     `gorm:"column:run_id;type:text;index"`
	RecordedAt time.Time `gorm:"column:recorded_at;not null"`
}

func (historyModel) TableName() string { return "clearing_history" }

func toHistoryModel(ev event.Event, runID id.ID) *historyModel {
	m := &historyModel{
		TxID:       ev.Tx(),
		Kind:       string(ev.Kind()),
		Client:     ev.Client(),
		RunID:      runID,
		RecordedAt: time.Now().UTC(),
	}
	if mon, ok := ev.(event.Monetary); ok {
		s := mon.Value().String()
		m.Amount = &s
	}
	return m
}

func fromHistoryModel(m *historyModel) (event.Event, error) {
	row := event.Row{Kind: event.Kind(m.Kind), Client: m.Client, Tx: m.TxID}
	if m.Amount != nil {
		amt, err := types.ParseAmount(*m.Amount)
		if err != nil {
			return nil, fmt.Errorf("history/sqlite: tx %d: %w", m.TxID, err)
		}
		row.Amount = &amt
	}
	return row.Event()
}
