package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultEncoding(t *testing.T) {
	e := DefaultEncoding()

	for _, raw := range []string{"true", "yes", "YES", " true "} {
		assert.True(t, e.IsDisabled(raw), raw)
		assert.False(t, e.IsEnabled(raw), raw)
	}
	for _, raw := range []string{"false", "no", "No"} {
		assert.True(t, e.IsEnabled(raw), raw)
		assert.False(t, e.IsDisabled(raw), raw)
	}
	for _, raw := range []string{"", "maybe", "1"} {
		assert.False(t, e.IsDisabled(raw), raw)
		assert.False(t, e.IsEnabled(raw), raw)
	}
	assert.Equal(t, "false", e.EnableValue())
}

func TestEncoding_Custom(t *testing.T) {
	e := Encoding{Disabled: []string{"1"}, Enabled: []string{"0"}}
	assert.True(t, e.IsDisabled("1"))
	assert.True(t, e.IsEnabled("0"))
	assert.Equal(t, "0", e.EnableValue())
	assert.Equal(t, "false", Encoding{}.EnableValue())
}

func TestJobNames(t *testing.T) {
	assert.Equal(t, "remove-user-u1", ScriptName("u1"))
	assert.Equal(t, "expire-user-u1", SchedulerName("u1"))
	assert.Equal(t, "/ip hotspot user remove [find name=u1]", RemovalScript("u1"))
}
