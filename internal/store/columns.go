package store

import "github.com/sells-group/delay-risk-cli/internal/model"

// numericFields is the column order of the nullable predictor columns.
var numericFields = []model.Field{
	model.FieldOrderValue,
	model.FieldDistance,
	model.FieldTrafficDelay,
	model.FieldFuelCost,
	model.FieldLaborCost,
	model.FieldDeliveryCost,
	model.FieldRating,
}

var predictionColumns = []string{
	"id", "source", "priority", "product_category",
	"order_value", "distance", "traffic_delay", "fuel_cost", "labor_cost", "delivery_cost", "rating",
	"probability", "tier", "model_run_id", "created_at",
}

// predictionArgs flattens p in predictionColumns order. Absent numeric
// values become NULL.
func predictionArgs(p *model.Prediction) []any {
	args := make([]any, 0, len(predictionColumns))
	args = append(args, p.ID, string(p.Source), p.Row.Priority, p.Row.ProductCategory)
	for _, f := range numericFields {
		if v, ok := p.Row.Number(f); ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
	}
	var runID any
	if p.ModelRunID != "" {
		runID = p.ModelRunID
	}
	return append(args, p.Probability, string(p.Tier), runID, p.CreatedAt.UTC())
}
