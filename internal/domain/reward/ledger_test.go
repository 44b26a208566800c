package reward

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntry_Validate(t *testing.T) {
	now := time.Now().UTC()

	cost := Entry{ID: "e1", StudentID: "s1", TicketDelta: -1, ItemID: "badge-gold", Cause: CauseDrawCost, RecordedAt: now}
	assert.NoError(t, cost.Validate())

	bonus := Entry{ID: "e2", StudentID: "s1", TicketDelta: 4, ItemID: "badge-gold", Cause: CauseDuplicateBonus, RecordedAt: now}
	assert.NoError(t, bonus.Validate())

	credit := Entry{ID: "e3", StudentID: "s1", TicketDelta: 2, Cause: CauseAccrualCredit, RecordedAt: now}
	assert.NoError(t, credit.Validate())

	missing := Entry{ID: "e4", TicketDelta: -1, Cause: CauseDrawCost}
	assert.ErrorIs(t, missing.Validate(), ErrEmptyValue)

	badCause := Entry{ID: "e5", StudentID: "s1", Cause: Cause("refund")}
	assert.ErrorIs(t, badCause.Validate(), ErrConfigurationInvalid)

	positiveCost := Entry{ID: "e6", StudentID: "s1", TicketDelta: 1, Cause: CauseDrawCost}
	assert.ErrorIs(t, positiveCost.Validate(), ErrValueOutOfRange)

	negativeBonus := Entry{ID: "e7", StudentID: "s1", TicketDelta: -1, Cause: CauseDuplicateBonus}
	assert.ErrorIs(t, negativeBonus.Validate(), ErrValueOutOfRange)
}
