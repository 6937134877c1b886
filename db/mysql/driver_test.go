package mysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions_Defaults(t *testing.T) {
	o := Options{DSN: "guild@/guild"}.withDefaults()
	assert.Equal(t, 50, o.MaxOpen)
	assert.Equal(t, 10, o.MaxIdle)
	assert.Equal(t, time.Hour, o.MaxLife)
}

func TestOptions_IdleCappedByOpen(t *testing.T) {
	o := Options{MaxOpen: 4, MaxIdle: 8, MaxLife: time.Minute}.withDefaults()
	assert.Equal(t, 4, o.MaxOpen)
	assert.Equal(t, 4, o.MaxIdle)
	assert.Equal(t, time.Minute, o.MaxLife)
}
