package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankfeed/bankfeed/internal/model"
)

func TestNewJob(t *testing.T) {
	a := NewJob("checking", 1, 1010, "DE89", date(2023, 3, 1), date(2023, 3, 31))
	b := NewJob("checking", 1, 1010, "DE89", date(2023, 3, 1), date(2023, 3, 31))

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NoError(t, a.Validate())
	assert.Empty(t, a.Transactions())
}

func TestJobValidate_SingleDayRange(t *testing.T) {
	j := NewJob("day", 1, 1010, "DE89", date(2023, 3, 1), date(2023, 3, 1))
	assert.NoError(t, j.Validate())
}

func TestJobValidate_Reason(t *testing.T) {
	j := NewJob("bad", 1, 1010, "DE89", date(2023, 4, 1), date(2023, 3, 1))
	err := j.Validate()

	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "bad", cerr.Job)
	assert.Contains(t, err.Error(), "from date is after to date")
}

func TestJobTransactionsIsCopy(t *testing.T) {
	j := NewJob("checking", 1, 1010, "DE89", date(2023, 3, 1), date(2023, 3, 31))
	j.append([]model.TransactionDraft{{Description: "one"}})

	got := j.Transactions()
	got[0].Description = "changed"
	assert.Equal(t, "one", j.Transactions()[0].Description)
}
