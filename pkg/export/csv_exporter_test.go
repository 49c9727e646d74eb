package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRenderWithFooter(t *testing.T) {
	data := Dataset{
		Headers: []string{"Date", "Points", "Reason"},
		Rows: []map[string]string{
			{"Date": "2026-01-02", "Points": "+10", "Reason": "great work"},
			{"Date": "2026-01-03", "Points": "-2", "Reason": "late"},
		},
		Footer: map[string]string{"Reason": "Approved total", "Points": "+8"},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t,
		"Date,Points,Reason\n2026-01-02,+10,great work\n2026-01-03,-2,late\n,+8,Approved total\n",
		string(out))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}
