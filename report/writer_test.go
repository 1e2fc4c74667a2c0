package report_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/clearing/account"
	"github.com/xraph/clearing/report"
	"github.com/xraph/clearing/types"
)

func balance(client uint16, available, held string, locked bool) account.Balance {
	a := types.MustParseAmount(available)
	h := types.MustParseAmount(held)
	return account.Balance{Client: client, Available: a, Held: h, Total: a.Add(h), Locked: locked}
}

func TestWrite(t *testing.T) {
	snap := account.NewSnapshot([]account.Balance{
		balance(1, "1.5", "0", false),
		balance(2, "0", "0", true),
		balance(65535, "0.0001", "2.25", false),
	})

	var buf bytes.Buffer
	require.NoError(t, report.NewWriter(&buf).Write(snap))

	want := "client,available,held,total,locked\n" +
		"1,1.5000,0.0000,1.5000,false\n" +
		"2,0.0000,0.0000,0.0000,true\n" +
		"65535,0.0001,2.2500,2.2501,false\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.NewWriter(&buf).Write(account.NewSnapshot(nil)))
	assert.Equal(t, "client,available,held,total,locked\n", buf.String())
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("pipe closed") }

func TestWriteError(t *testing.T) {
	err := report.NewWriter(brokenWriter{}).Write(account.NewSnapshot([]account.Balance{balance(1, "1", "0", false)}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipe closed")
}
