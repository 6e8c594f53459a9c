package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/delay-risk-cli/internal/model"
)

func TestActions(t *testing.T) {
	assert.Equal(t, []string{
		"Reassign order to faster carrier",
		"Prioritize warehouse processing",
		"Optimize route to avoid traffic",
		"Proactively notify customer",
	}, Actions(model.TierHigh))
	assert.Equal(t, []string{
		"Monitor shipment closely",
		"Alert operations team",
		"Prepare alternate route or vehicle",
	}, Actions(model.TierMedium))
	assert.Equal(t, []string{"Continue with standard delivery process"}, Actions(model.TierLow))
	assert.Empty(t, Actions(model.Tier("SEVERE")))
}

func TestActions_ReturnsCopy(t *testing.T) {
	a := Actions(model.TierLow)
	a[0] = "changed"
	assert.Equal(t, "Continue with standard delivery process", Actions(model.TierLow)[0])
}

func TestHeadlineAndLabel(t *testing.T) {
	assert.Equal(t, "High Risk of Delay", Headline(model.TierHigh))
	assert.Equal(t, "Low Risk of Delay", Headline(model.TierLow))
	for _, f := range model.Fields {
		assert.NotEmpty(t, Label(f), f)
	}
	assert.Equal(t, "Route Distance (KM)", Label(model.FieldDistance))
}

func TestRoundProbability(t *testing.T) {
	assert.InDelta(t, 0.71, RoundProbability(0.7071), 1e-12)
	assert.InDelta(t, 0.4, RoundProbability(0.40000001), 1e-12)
	assert.InDelta(t, 1.0, RoundProbability(0.999), 1e-12)
}

func TestFormatINR(t *testing.T) {
	assert.Contains(t, FormatINR(5000), "5,000")
	assert.Contains(t, FormatINR(400), "400")
	assert.Contains(t, FormatINR(400), "₹")
}

func TestRender(t *testing.T) {
	row := model.FeatureRow{
		Priority:        "Express",
		ProductCategory: "Electronics",
		OrderValue:      model.Float(5000),
		Distance:        model.Float(200),
		Rating:          model.Float(5),
	}
	var buf bytes.Buffer
	err := Render(&buf, row, model.Assessment{Probability: 0.7312, Tier: model.TierHigh}, Options{NoColor: true, ShowInput: true})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, Title)
	assert.Contains(t, out, "Delay Risk Probability: 0.73")
	assert.Contains(t, out, "High Risk of Delay (HIGH)")
	assert.Contains(t, out, "  - Proactively notify customer")
	assert.Contains(t, out, "Express")
	assert.Contains(t, out, "5 / 5")
	assert.NotContains(t, out, "\x1b[")
}

func TestRender_WithoutInput(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, model.FeatureRow{}, model.Assessment{Probability: 0.1, Tier: model.TierLow}, Options{NoColor: true})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "Order Details")
	assert.Contains(t, buf.String(), "Continue with standard delivery process")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestRender_WriteError(t *testing.T) {
	err := Render(failingWriter{}, model.FeatureRow{}, model.Assessment{Tier: model.TierLow}, Options{NoColor: true})
	assert.EqualError(t, err, "closed pipe")
}
