package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalendarDate(t *testing.T) {
	in := time.Date(2023, 3, 1, 17, 45, 12, 99, time.FixedZone("CET", 3600))
	got := CalendarDate(in)

	assert.Equal(t, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestDraftDateString(t *testing.T) {
	d := TransactionDraft{Date: CalendarDate(time.Date(2023, 3, 1, 9, 0, 0, 0, time.UTC))}
	assert.Equal(t, "2023-03-01", d.DateString())
}

func TestStatementRecordDateFallback(t *testing.T) {
	booking := time.Date(2023, 3, 2, 0, 0, 0, 0, time.UTC)
	value := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, booking, StatementRecord{BookingDate: booking}.Date())
	assert.Equal(t, value, StatementRecord{ValueDate: value, BookingDate: booking}.Date())
}
