package warehouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWarehouse(t *testing.T) *Warehouse {
	t.Helper()
	w, err := Open("", nil) // in-memory
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestQueryScansRows(t *testing.T) {
	w := newTestWarehouse(t)
	ctx := context.Background()

	_, err := w.DB().ExecContext(ctx, `
		CREATE TABLE sales (category VARCHAR, total DOUBLE, n BIGINT);
		INSERT INTO sales VALUES ('Books', 12.5, 3), ('Games', 40.0, 8), ('Toys', NULL, 0);
	`)
	require.NoError(t, err)

	tbl, err := w.Query(ctx, "SELECT category, total, n FROM sales ORDER BY category")
	require.NoError(t, err)

	assert.Equal(t, []string{"category", "total", "n"}, tbl.Columns)
	assert.Equal(t, 3, tbl.Count)
	assert.Equal(t, "Books", tbl.Rows[0]["category"])
	assert.Equal(t, 12.5, tbl.Rows[0]["total"])
	assert.Equal(t, int64(3), tbl.Rows[0]["n"])
	assert.Nil(t, tbl.Rows[2]["total"])
}

func TestQueryEmptyResult(t *testing.T) {
	w := newTestWarehouse(t)

	tbl, err := w.Query(context.Background(), "SELECT 1 AS one WHERE false")
	require.NoError(t, err)
	assert.True(t, tbl.Empty())
	assert.Equal(t, []string{"one"}, tbl.Columns)
	assert.NotNil(t, tbl.Rows)
}

func TestQueryErrorVerbatim(t *testing.T) {
	w := newTestWarehouse(t)

	_, err := w.Query(context.Background(), "SELECT * FROM no_such_table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_table")
}

func TestDescribeSchemaSkipsStagingAndSamples(t *testing.T) {
	w := newTestWarehouse(t)
	ctx := context.Background()

	_, err := w.DB().ExecContext(ctx, `
		CREATE TABLE stg_orders (raw VARCHAR);
		CREATE TABLE dim_product (product_id BIGINT, category VARCHAR, price DOUBLE);
		INSERT INTO dim_product VALUES (1, 'Books', 10.0), (2, 'Games', 20.0), (3, 'Books', 5.0);
	`)
	require.NoError(t, err)

	schema, err := w.DescribeSchema(ctx)
	require.NoError(t, err)

	assert.NotContains(t, schema, "stg_orders")
	// Catalog tables must not leak into the planning prompt
	assert.NotContains(t, schema, "duckdb_tables")
	assert.NotContains(t, schema, "duckdb_columns")
	assert.NotContains(t, schema, "sqlite_master")
	assert.Contains(t, schema, "dim_product:")
	assert.Contains(t, schema, "product_id (BIGINT)")
	// Low-cardinality VARCHAR gets sample values
	assert.Contains(t, schema, "category (VARCHAR) values: Books, Games")
	// Numeric columns never get samples
	assert.NotContains(t, schema, "price (DOUBLE) values")
}

func TestDescribeSchemaSkipsIDLikeColumns(t *testing.T) {
	w := newTestWarehouse(t)
	ctx := context.Background()

	_, err := w.DB().ExecContext(ctx, `
		CREATE TABLE dim_customer (customer_id VARCHAR, city VARCHAR, segment VARCHAR);
		INSERT INTO dim_customer VALUES ('C1', 'Austin', 'Retail'), ('C2', 'Boston', 'Retail');
	`)
	require.NoError(t, err)

	schema, err := w.DescribeSchema(ctx)
	require.NoError(t, err)

	assert.NotContains(t, schema, "values: C1")
	assert.NotContains(t, schema, "values: Austin")
	assert.Contains(t, schema, "segment (VARCHAR) values: Retail")
}

func TestCloneIsDeep(t *testing.T) {
	tbl := Table{
		Columns: []string{"a"},
		Rows:    []Row{{"a": 1}},
		Count:   1,
	}

	cp := tbl.Clone()
	cp.Rows[0]["a"] = 2
	cp.Columns[0] = "b"

	assert.Equal(t, 1, tbl.Rows[0]["a"])
	assert.Equal(t, "a", tbl.Columns[0])
}
