// Package model defines the domain types shared by training and inference.
package model

// Field names one predictor in a FeatureRow.
type Field string

const (
	FieldPriority        Field = "priority"
	FieldProductCategory Field = "product_category"
	FieldOrderValue      Field = "order_value"
	FieldDistance        Field = "distance"
	FieldTrafficDelay    Field = "traffic_delay"
	FieldFuelCost        Field = "fuel_cost"
	FieldLaborCost       Field = "labor_cost"
	FieldDeliveryCost    Field = "delivery_cost"
	FieldRating          Field = "rating"
)

// Fields is the fixed column order of the encoded vector. Training and
// inference both iterate this slice; never reorder it without retraining.
var Fields = []Field{
	FieldPriority,
	FieldProductCategory,
	FieldOrderValue,
	FieldDistance,
	FieldTrafficDelay,
	FieldFuelCost,
	FieldLaborCost,
	FieldDeliveryCost,
	FieldRating,
}

// NumFeatures is the length of an encoded vector.
const NumFeatures = 9

// UnknownCategory is the bucket training assigns to missing categorical values.
const UnknownCategory = "Unknown"

// Column header of each field in the training tables.
var fieldColumns = map[Field]string{
	FieldPriority:        "Priority",
	FieldProductCategory: "Product_Category",
	FieldOrderValue:      "Order_Value_INR",
	FieldDistance:        "Distance_KM",
	FieldTrafficDelay:    "Traffic_Delay_Minutes",
	FieldFuelCost:        "Fuel_Cost",
	FieldLaborCost:       "Labor_Cost",
	FieldDeliveryCost:    "Delivery_Cost_INR",
	FieldRating:          "Rating",
}

// Column returns the training-table header for the field.
func (f Field) Column() string {
	return fieldColumns[f]
}

// Categorical reports whether the field is label-encoded.
func (f Field) Categorical() bool {
	return f == FieldPriority || f == FieldProductCategory
}

// Index returns the position of f in Fields, or -1.
func (f Field) Index() int {
	for i, g := range Fields {
		if g == f {
			return i
		}
	}
	return -1
}

// Form enumerations for the categorical fields.
var (
	Priorities        = []string{"Express", "Standard", "Economy"}
	ProductCategories = []string{"Electronics", "Fashion", "Industrial", "Food"}
)

// FeatureRow holds one order's raw predictor values. Empty strings and nil
// pointers mean the value is absent.
type FeatureRow struct {
	Priority        string   `json:"priority"`
	ProductCategory string   `json:"product_category"`
	OrderValue      *float64 `json:"order_value"`
	Distance        *float64 `json:"distance"`
	TrafficDelay    *float64 `json:"traffic_delay"`
	FuelCost        *float64 `json:"fuel_cost"`
	LaborCost       *float64 `json:"labor_cost"`
	DeliveryCost    *float64 `json:"delivery_cost"`
	Rating          *float64 `json:"rating"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Category returns the raw value of a categorical field.
func (r FeatureRow) Category(f Field) string {
	switch f {
	case FieldPriority:
		return r.Priority
	case FieldProductCategory:
		return r.ProductCategory
	}
	return ""
}

// Number returns the value of a numeric field and whether it is present.
func (r FeatureRow) Number(f Field) (float64, bool) {
	p := r.numberPtr(f)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// SetCategory assigns a categorical field. Unknown fields are ignored.
func (r *FeatureRow) SetCategory(f Field, v string) {
	switch f {
	case FieldPriority:
		r.Priority = v
	case FieldProductCategory:
		r.ProductCategory = v
	}
}

// SetNumber assigns a numeric field. Unknown fields are ignored.
func (r *FeatureRow) SetNumber(f Field, v float64) {
	if p := r.numberPtr(f); p != nil {
		*p = Float(v)
	}
}

// ClearNumber marks a numeric field as absent.
func (r *FeatureRow) ClearNumber(f Field) {
	if p := r.numberPtr(f); p != nil {
		*p = nil
	}
}

func (r *FeatureRow) numberPtr(f Field) **float64 {
	switch f {
	case FieldOrderValue:
		return &r.OrderValue
	case FieldDistance:
		return &r.Distance
	case FieldTrafficDelay:
		return &r.TrafficDelay
	case FieldFuelCost:
		return &r.FuelCost
	case FieldLaborCost:
		return &r.LaborCost
	case FieldDeliveryCost:
		return &r.DeliveryCost
	case FieldRating:
		return &r.Rating
	}
	return nil
}
