package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogger(t *testing.T) {
	origLogf, origErrorf := Logf, Errorf
	defer func() { Logf, Errorf = origLogf, origErrorf }()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})

	Logf("loaded %d files", 3)
	Errorf("failed %s", "sysSim_1.csv")
	assert.Equal(t, []string{"loaded 3 files", "failed sysSim_1.csv"}, got)

	got = nil
	SetLogger(nil)
	Logf("muted")
	Errorf("muted")
	assert.Empty(t, got)
}

func TestLogf_Default(t *testing.T) {
	require.NotNil(t, Logf)
	require.NotNil(t, Errorf)

	assert.NotPanics(t, func() {
		Logf("test message: %s", "value")
	})
}

func TestConfigure(t *testing.T) {
	origLogf, origErrorf := Logf, Errorf
	defer func() { Logf, Errorf = origLogf, origErrorf }()

	sync, err := Configure("WARN")
	require.NoError(t, err)
	require.NotNil(t, sync)
	assert.NotPanics(t, func() { Logf("below threshold") })

	_, err = Configure("loud")
	assert.Error(t, err)
}
