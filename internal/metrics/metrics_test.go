package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Command("undo", nil)
	m.Command("undo", errors.New("empty"))
	m.Command("undo", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Commands.WithLabelValues("undo", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("undo", "error")))

	n, err := testutil.GatherAndCount(reg, "replaydirector_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
