package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordOutcome(t *testing.T) {
	before := testutil.ToFloat64(DeliveriesTotal.WithLabelValues(OutcomeDuplicate))
	RecordOutcome(OutcomeDuplicate)
	RecordOutcome(OutcomeDuplicate)
	assert.Equal(t, before+2, testutil.ToFloat64(DeliveriesTotal.WithLabelValues(OutcomeDuplicate)))
}
