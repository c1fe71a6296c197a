package accounting_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/oncall-ledger/accounting"
	"github.com/warp/oncall-ledger/generic"
)

func TestResolveEligibility(t *testing.T) {
	january := rng(date(2025, time.January, 1), date(2025, time.January, 31))

	tests := []struct {
		name       string
		hired      generic.Date
		wantOK     bool
		wantWindow generic.Range
	}{
		{"hired before range", date(2019, time.May, 5), true, january},
		{"hired on first day", date(2025, time.January, 1), true, january},
		{"hired mid range", date(2025, time.January, 15), true, rng(date(2025, time.January, 15), date(2025, time.January, 31))},
		{"hired on last day", date(2025, time.January, 31), true, rng(date(2025, time.January, 31), date(2025, time.January, 31))},
		{"hired after range", date(2025, time.February, 1), false, generic.Range{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window, ok, err := accounting.ResolveEligibility(emp("e", tt.hired), january)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantWindow, window)
		})
	}
}

func TestResolveEligibility_MissingHireDate(t *testing.T) {
	january := rng(date(2025, time.January, 1), date(2025, time.January, 31))

	_, ok, err := accounting.ResolveEligibility(generic.Employee{ID: "emp-x"}, january)
	assert.False(t, ok)
	assert.ErrorIs(t, err, generic.ErrMissingHireDate)
}
