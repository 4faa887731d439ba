package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveObligationStatus(t *testing.T) {
	assert.Equal(t, ObligationStatusUnpaid, DeriveObligationStatus(1000, 0))
	assert.Equal(t, ObligationStatusUnpaid, DeriveObligationStatus(1000, -5))
	assert.Equal(t, ObligationStatusPartial, DeriveObligationStatus(1000, 1))
	assert.Equal(t, ObligationStatusPartial, DeriveObligationStatus(1000, 999))
	assert.Equal(t, ObligationStatusPaid, DeriveObligationStatus(1000, 1000))
	assert.Equal(t, ObligationStatusPaid, DeriveObligationStatus(1000, 1200))
	assert.Equal(t, ObligationStatusPaid, DeriveObligationStatus(0, 0))
}

func TestObligationRemainingNeverNegative(t *testing.T) {
	assert.Equal(t, int64(600), ObligationRemaining(1000, 400))
	assert.Equal(t, int64(0), ObligationRemaining(1000, 1000))
	assert.Equal(t, int64(0), ObligationRemaining(1000, 1500))
}

func TestDueDateBefore(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// 无到期日排最前
	assert.True(t, DueDateBefore(nil, 1, &early, 2))
	assert.False(t, DueDateBefore(&early, 1, nil, 2))

	// 都无到期日时按 ID
	assert.True(t, DueDateBefore(nil, 1, nil, 2))
	assert.False(t, DueDateBefore(nil, 2, nil, 1))

	// 到期日早者在前
	assert.True(t, DueDateBefore(&early, 5, &late, 1))
	assert.False(t, DueDateBefore(&late, 1, &early, 5))

	// 同到期日按 ID
	assert.True(t, DueDateBefore(&early, 1, &early, 2))
	assert.False(t, DueDateBefore(&early, 2, &early, 1))
}

func TestSortReceivablesByDueDate(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []*Receivable{
		{ID: 4, DueDate: &late},
		{ID: 3, DueDate: &early},
		{ID: 2, DueDate: nil},
		{ID: 1, DueDate: &early},
	}

	SortReceivablesByDueDate(rows)

	require.Len(t, rows, 4)
	assert.Equal(t, int64(2), rows[0].ID) // 无到期日最前
	assert.Equal(t, int64(1), rows[1].ID) // 同到期日按 ID
	assert.Equal(t, int64(3), rows[2].ID)
	assert.Equal(t, int64(4), rows[3].ID)
}

func TestSortPayablesByDueDate(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []*Payable{
		{ID: 2, DueDate: &late},
		{ID: 1, DueDate: &early},
	}

	SortPayablesByDueDate(rows)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, int64(2), rows[1].ID)
}

func TestReceivableRemaining(t *testing.T) {
	r := &Receivable{Amount: 800, PaidAmount: 300}
	assert.Equal(t, int64(500), r.Remaining())
}

func TestSalaryTransition(t *testing.T) {
	assert.True(t, CanSalaryTransitionTo(SalaryStatusUnpaid, SalaryStatusPaid))
	assert.False(t, CanSalaryTransitionTo(SalaryStatusPaid, SalaryStatusUnpaid))
	assert.False(t, CanSalaryTransitionTo(SalaryStatusPaid, SalaryStatusPaid))
}
