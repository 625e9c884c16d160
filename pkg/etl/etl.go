// Package etl builds the star-schema warehouse from the flat e-commerce
// CSV export. The load is a fixed sequence of DuckDB statements: stage the
// CSV, derive each dimension with dense 1-based surrogate keys, then build
// the fact table by joining the staging rows back to the dimensions.
package etl

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

type step struct {
	name string
	sql  string
}

// Build loads the CSV at csvPath into the warehouse, replacing any
// existing star-schema tables. The first failing statement aborts the
// load and is returned wrapped with its step name.
func Build(ctx context.Context, log *slog.Logger, db *sql.DB, csvPath string) error {
	for _, st := range steps(csvPath) {
		if log != nil {
			log.Info("etl: running step", "step", st.name)
		}
		if _, err := db.ExecContext(ctx, st.sql); err != nil {
			return fmt.Errorf("etl step %s: %w", st.name, err)
		}
	}
	if log != nil {
		log.Info("etl: load complete")
	}
	return nil
}

func steps(csvPath string) []step {
	return []step{
		{"stage_orders", stageOrdersSQL(csvPath)},
		{"dim_date", dimDateSQL},
		{"dim_customer", dimCustomerSQL},
		{"dim_product", dimProductSQL},
		{"dim_location", dimLocationSQL},
		{"dim_payment_method", dimPaymentMethodSQL},
		{"dim_delivery_status", dimDeliveryStatusSQL},
		{"fct_order_line_items", fctOrderLineItemsSQL},
		{"drop_staging", dropStagingSQL},
	}
}

func stageOrdersSQL(csvPath string) string {
	// Path is interpolated because read_csv does not accept a bound
	// parameter for its source in DDL position.
	quoted := strings.ReplaceAll(csvPath, "'", "''")
	return fmt.Sprintf(`
		CREATE OR REPLACE TABLE stg_orders AS
		SELECT
			*,
			city || ', ' || state || ' ' || zipcode AS location
		FROM read_csv('%s', header = true)
	`, quoted)
}

// Surrogate keys are assigned by categorical encoding: DENSE_RANK over the
// sorted distinct values, so ids are dense positive integers starting at 1.
const dimDateSQL = `
	CREATE OR REPLACE TABLE dim_date AS
	WITH dates AS (
		SELECT DISTINCT order_date
		FROM stg_orders
		WHERE order_date IS NOT NULL
	)
	SELECT
		DENSE_RANK() OVER (ORDER BY order_date) AS order_date_id,
		order_date,
		EXTRACT(year FROM order_date) AS year,
		EXTRACT(month FROM order_date) AS month,
		EXTRACT(day FROM order_date) AS day,
		dayname(order_date) AS day_name,
		isodow(order_date) - 1 AS day_of_week,
		dayofyear(order_date) AS day_of_year,
		isodow(order_date) - 1 AS weekday,
		EXTRACT(quarter FROM order_date) AS quarter,
		strftime(order_date, '%Y-%m') AS year_month,
		strftime(order_date, '%Y-%W') AS year_week
	FROM dates
	ORDER BY order_date_id
`

const dimCustomerSQL = `
	CREATE OR REPLACE TABLE dim_customer AS
	SELECT DISTINCT customer_id
	FROM stg_orders
	WHERE customer_id IS NOT NULL
	ORDER BY customer_id
`

const dimProductSQL = `
	CREATE OR REPLACE TABLE dim_product AS
	SELECT DISTINCT product_id, product_category, product_price
	FROM stg_orders
	WHERE product_id IS NOT NULL
	ORDER BY product_id
`

const dimLocationSQL = `
	CREATE OR REPLACE TABLE dim_location AS
	WITH locs AS (
		SELECT DISTINCT location, city, state, zipcode
		FROM stg_orders
		WHERE location IS NOT NULL
	)
	SELECT
		DENSE_RANK() OVER (ORDER BY location) AS location_id,
		city,
		state,
		zipcode
	FROM locs
	ORDER BY zipcode
`

const dimPaymentMethodSQL = `
	CREATE OR REPLACE TABLE dim_payment_method AS
	WITH methods AS (
		SELECT DISTINCT payment_method
		FROM stg_orders
		WHERE payment_method IS NOT NULL
	)
	SELECT
		DENSE_RANK() OVER (ORDER BY payment_method) AS payment_method_id,
		payment_method
	FROM methods
	ORDER BY payment_method_id
`

const dimDeliveryStatusSQL = `
	CREATE OR REPLACE TABLE dim_delivery_status AS
	WITH statuses AS (
		SELECT DISTINCT delivery_status
		FROM stg_orders
		WHERE delivery_status IS NOT NULL
	)
	SELECT
		DENSE_RANK() OVER (ORDER BY delivery_status) AS delivery_status_id,
		delivery_status
	FROM statuses
	ORDER BY delivery_status_id
`

const fctOrderLineItemsSQL = `
	CREATE OR REPLACE TABLE fct_order_line_items AS
	SELECT
		s.order_id,
		s.customer_id,
		s.product_id,
		l.location_id,
		s.discount_applied,
		s.quantity,
		s.order_value,
		d.order_date_id,
		pm.payment_method_id,
		ds.delivery_status_id,
		s.review_rating,
		s.return_requested
	FROM stg_orders s
	LEFT JOIN dim_date d ON d.order_date = s.order_date
	LEFT JOIN dim_location l
		ON l.city = s.city AND l.state = s.state AND l.zipcode = s.zipcode
	LEFT JOIN dim_payment_method pm ON pm.payment_method = s.payment_method
	LEFT JOIN dim_delivery_status ds ON ds.delivery_status = s.delivery_status
`

const dropStagingSQL = `DROP TABLE IF EXISTS stg_orders`
