// Package dataset assembles the training set: it loads the five source
// tables, joins them on Order_ID, derives the delay label, and extracts the
// nine predictor columns.
package dataset

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/delay-risk-cli/internal/fetcher"
)

// Source table names.
const (
	TableOrders   = "orders"
	TableDelivery = "delivery_performance"
	TableRoutes   = "routes_distance"
	TableFeedback = "customer_feedback"
	TableCosts    = "cost_breakdown"
)

// Column names the pipeline depends on.
const (
	ColOrderID        = "Order_ID"
	ColActualDays     = "Actual_Delivery_Days"
	ColPromisedDays   = "Promised_Delivery_Days"
	ColRating         = "Rating"
	ColWouldRecommend = "Would_Recommend"
)

// requiredColumns lists what each table must carry beyond Order_ID.
var requiredColumns = map[string][]string{
	TableOrders:   nil,
	TableDelivery: {ColActualDays, ColPromisedDays},
	TableRoutes:   nil,
	TableFeedback: {ColRating, ColWouldRecommend},
	TableCosts:    nil,
}

// SchemaError reports a source table without a required column.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset: table %s is missing column %s", e.Table, e.Column)
}

// Sources holds the location of each table. See fetcher.ParseSource for the
// accepted forms.
type Sources struct {
	Orders   string
	Delivery string
	Routes   string
	Feedback string
	Costs    string
}

func (s Sources) byName() map[string]string {
	return map[string]string{
		TableOrders:   s.Orders,
		TableDelivery: s.Delivery,
		TableRoutes:   s.Routes,
		TableFeedback: s.Feedback,
		TableCosts:    s.Costs,
	}
}

// Tables is the raw input of a training run.
type Tables struct {
	Orders   *fetcher.Table
	Delivery *fetcher.Table
	Routes   *fetcher.Table
	Feedback *fetcher.Table
	Costs    *fetcher.Table
}

// TableReader reads one named table from a source string.
type TableReader interface {
	ReadTable(ctx context.Context, name, source string) (*fetcher.Table, error)
}

// LoadTables reads all five tables concurrently and checks their columns.
// The first failure cancels the remaining reads.
func LoadTables(ctx context.Context, r TableReader, src Sources) (Tables, error) {
	sources := src.byName()
	for name, s := range sources {
		if s == "" {
			return Tables{}, eris.Errorf("dataset: no source configured for table %s", name)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	var tables Tables
	targets := map[string]**fetcher.Table{
		TableOrders:   &tables.Orders,
		TableDelivery: &tables.Delivery,
		TableRoutes:   &tables.Routes,
		TableFeedback: &tables.Feedback,
		TableCosts:    &tables.Costs,
	}

	for name, dst := range targets {
		g.Go(func() error {
			t, err := r.ReadTable(gCtx, name, sources[name])
			if err != nil {
				return eris.Wrapf(err, "dataset: load %s", name)
			}
			if err := checkColumns(name, t); err != nil {
				return err
			}
			zap.L().Info("dataset: table loaded",
				zap.String("table", name),
				zap.Int("rows", len(t.Rows)),
				zap.Int("columns", len(t.Header)),
			)
			*dst = t
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Tables{}, err
	}
	return tables, nil
}

func checkColumns(name string, t *fetcher.Table) error {
	for _, col := range append([]string{ColOrderID}, requiredColumns[name]...) {
		if t.Index(col) < 0 {
			return &SchemaError{Table: name, Column: col}
		}
	}
	return nil
}
