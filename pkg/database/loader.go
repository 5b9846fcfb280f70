package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/go-sql-driver/mysql"

	"rfm-segmentation/pkg/models"
)

// DefaultTable holds the raw retail transactions.
const DefaultTable = "transactions"

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Open accepts mariadb:// and mysql:// URLs or a native driver DSN, and returns the
// DSN actually handed to the MySQL driver.
func Open(dsn string) (*sql.DB, string, error) {
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, mysqlDSN, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", errors.Wrap(err, "parse dsn")
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", errors.Newf("incomplete dsn %q: user, host and database are required", u.Redacted())
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// TableSource reads raw transactions from a table whose columns are named after the
// input boundary (invoice_id, stock_code, ..., country). Every column is read as text.
type TableSource struct {
	DB    *sql.DB
	Table string
}

func (s TableSource) Transactions(ctx context.Context) ([]models.RawTransaction, error) {
	q, err := selectTransactions(s.Table)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", s.Table)
	}
	defer rows.Close()

	var out []models.RawTransaction
	for rows.Next() {
		var f [8]sql.NullString
		if err := rows.Scan(&f[0], &f[1], &f[2], &f[3], &f[4], &f[5], &f[6], &f[7]); err != nil {
			return nil, errors.Wrapf(err, "scan row %d", len(out)+1)
		}
		out = append(out, models.RawTransaction{
			InvoiceID:   f[0].String,
			StockCode:   f[1].String,
			Description: f[2].String,
			Quantity:    f[3].String,
			InvoiceDate: f[4].String,
			UnitPrice:   f[5].String,
			CustomerID:  f[6].String,
			Country:     f[7].String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func selectTransactions(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRe.MatchString(table) {
		return "", errors.Newf("invalid table name %q", table)
	}
	return fmt.Sprintf(`
		SELECT invoice_id, stock_code, description, quantity,
		       invoice_timestamp, unit_price, customer_id, country
		FROM %s`, table), nil
}
