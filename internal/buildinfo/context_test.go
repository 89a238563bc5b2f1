package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	tests := []struct {
		name      string
		ctx       *Context
		version   string
		buildDate string
	}{
		{"nil context", nil, UnknownValue, UnknownValue},
		{"empty values", NewContext("", ""), UnknownValue, UnknownValue},
		{"set values", NewContext("1.2.3", "2026-01-02T10:30:00Z"), "1.2.3", "2026-01-02T10:30:00Z"},
		{"pre-release", NewContext("1.0.0-beta.1", ""), "1.0.0-beta.1", UnknownValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.version, tt.ctx.GetVersion())
			assert.Equal(t, tt.buildDate, tt.ctx.GetBuildDate())
		})
	}
}

func TestContextString(t *testing.T) {
	assert.Equal(t, "1.2.3 (built 2026-01-02)", NewContext("1.2.3", "2026-01-02").String())
	var nilCtx *Context
	assert.Equal(t, "unknown (built unknown)", nilCtx.String())
}
