package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/types"
)

type historyModel struct {
	TxID       int64     `bson:"_id"`
	Kind       string    `bson:"kind"`
	Client     int32     `bson:"client"`
	Amount     *string   `bson:"amount,omitempty"`
	RunID      string    `bson:"run_id"`
	RecordedAt time.Time `bson:"recorded_at"`
}

func toHistoryModel(ev event.Event, runID string) *historyModel {
	m := &historyModel{
		TxID:       int64(ev.Tx()),
		Kind:       string(ev.Kind()),
		Client:     int32(ev.Client()),
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
	row := event.Row{Kind: event.Kind(m.Kind), Client: uint16(m.Client), Tx: uint32(m.TxID)}
	if m.Amount != nil {
		amt, err := types.ParseAmount(*m.Amount)
		if err != nil {
			return nil, fmt.Errorf("history/mongo: tx %d: %w", m.TxID, err)
		}
		row.Amount = &amt
	}
	return row.Event()
}
