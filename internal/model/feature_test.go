package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields_OrderAndColumns(t *testing.T) {
	t.Parallel()

	require.Len(t, Fields, NumFeatures)
	want := []string{
		"Priority", "Product_Category", "Order_Value_INR", "Distance_KM",
		"Traffic_Delay_Minutes", "Fuel_Cost", "Labor_Cost", "Delivery_Cost_INR", "Rating",
	}
	for i, f := range Fields {
		assert.Equal(t, want[i], f.Column())
		assert.Equal(t, i, f.Index())
	}
	assert.Equal(t, -1, Field("weight").Index())
}

func TestField_Categorical(t *testing.T) {
	t.Parallel()

	assert.True(t, FieldPriority.Categorical())
	assert.True(t, FieldProductCategory.Categorical())
	for _, f := range Fields[2:] {
		assert.False(t, f.Categorical(), f)
	}
}

func TestFeatureRow_Accessors(t *testing.T) {
	t.Parallel()

	var r FeatureRow
	r.SetCategory(FieldPriority, "Express")
	r.SetCategory(FieldProductCategory, "Food")
	r.SetNumber(FieldDistance, 200)
	r.SetNumber(Field("bogus"), 1)

	assert.Equal(t, "Express", r.Category(FieldPriority))
	assert.Equal(t, "Food", r.Category(FieldProductCategory))
	assert.Empty(t, r.Category(FieldDistance))

	v, ok := r.Number(FieldDistance)
	assert.True(t, ok)
	assert.Equal(t, 200.0, v)

	_, ok = r.Number(FieldRating)
	assert.False(t, ok)

	r.ClearNumber(FieldDistance)
	_, ok = r.Number(FieldDistance)
	assert.False(t, ok)
}

func TestValidateInput(t *testing.T) {
	t.Parallel()

	valid := FeatureRow{
		Priority:        "Express",
		ProductCategory: "Electronics",
		OrderValue:      Float(5000),
		Distance:        Float(200),
		TrafficDelay:    Float(10),
		FuelCost:        Float(300),
		LaborCost:       Float(200),
		DeliveryCost:    Float(400),
		Rating:          Float(5),
	}

	tests := []struct {
		name    string
		mutate  func(r *FeatureRow)
		wantErr string
	}{
		{name: "valid", mutate: func(*FeatureRow) {}},
		{name: "missing fields are deferred", mutate: func(r *FeatureRow) { r.Distance = nil; r.Priority = "" }},
		{name: "lower bound inclusive", mutate: func(r *FeatureRow) { r.TrafficDelay = Float(0) }},
		{name: "upper bound inclusive", mutate: func(r *FeatureRow) { r.OrderValue = Float(50000) }},
		{name: "below range", mutate: func(r *FeatureRow) { r.Distance = Float(9.99) }, wantErr: "distance must be between 10 and 5000"},
		{name: "above range", mutate: func(r *FeatureRow) { r.DeliveryCost = Float(10001) }, wantErr: "delivery_cost must be between 100 and 10000"},
		{name: "fractional rating", mutate: func(r *FeatureRow) { r.Rating = Float(3.5) }, wantErr: "rating must be a whole number"},
		{name: "unknown priority", mutate: func(r *FeatureRow) { r.Priority = "Overnight" }, wantErr: "priority must be one of Express, Standard, Economy"},
		{name: "unknown category", mutate: func(r *FeatureRow) { r.ProductCategory = "Toys" }, wantErr: "product_category must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := valid
			tt.mutate(&r)
			err := ValidateInput(r)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTier_Valid(t *testing.T) {
	t.Parallel()

	for _, tier := range Tiers {
		assert.True(t, tier.Valid())
	}
	assert.False(t, Tier("CRITICAL").Valid())
	assert.False(t, Tier("").Valid())
}
