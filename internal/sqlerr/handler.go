package sqlerr

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/deppfellow/nowcasting-api/internal/errs"
)

// TablePrefix marks the table a not-found error refers to. Repositories
// wrap ErrNoRows as fmt.Errorf("table:forecast: ...: %w", err) so the
// client message can name the missing entity.
const TablePrefix = "table:"

// ErrCode reports the Code of the first *Error or *pgconn.PgError in err's
// chain, or Other.
func ErrCode(err error) Code {
	var converted *Error
	if errors.As(err, &converted) {
		return converted.Code
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return MapCode(pgerr.Code)
	}
	return Other
}

// ConvertPgError converts a raw Postgres error into an *Error.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// getEntityName turns a table name into the noun used in client messages:
// "forecast_values" -> "Forecast Value". Unknown tables become "Record".
func getEntityName(tableName string) string {
	if tableName == "" {
		return "Record"
	}

	entity := tableName
	if strings.HasSuffix(entity, "s") && len(entity) > 1 {
		entity = entity[:len(entity)-1]
	}
	return humanizeText(entity)
}

// humanizeText converts snake_case into Title Case.
func humanizeText(text string) string {
	if text == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}

// tableFromMessage extracts <name> from an error message containing
// "table:<name>:".
func tableFromMessage(msg string) string {
	_, rest, ok := strings.Cut(msg, TablePrefix)
	if !ok {
		return ""
	}
	table, _, _ := strings.Cut(rest, ":")
	return strings.TrimSpace(table)
}

// NotFound wraps pgx.ErrNoRows for the given table.
func NotFound(table, what string) error {
	return fmt.Errorf("%s%s: %s: %w", TablePrefix, table, what, pgx.ErrNoRows)
}

// HandleError converts a low-level database error into an API error.
//
//   - *errs.HTTPError: returned unchanged
//   - ErrNoRows: 404 naming the entity when the table is known
//   - connection failures, pool exhaustion, SQLSTATE classes 08/53/57: 503
//   - context cancellation: 503 (the client went away or the server is stopping)
//   - anything else: 500
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		if table := tableFromMessage(err.Error()); table != "" {
			return errs.NewNotFoundError(fmt.Sprintf("%s not found", getEntityName(table)), true, nil)
		}
		return errs.NewNotFoundError("Resource not found", false, nil)
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		if ConvertPgError(pgerr).Unavailable() {
			return errs.NewServiceUnavailableError("Forecast database unavailable")
		}
		return errs.NewInternalServerError()
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return errs.NewServiceUnavailableError("Forecast database unavailable")
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errs.NewServiceUnavailableError("Request was cancelled before the database answered")
	}

	return errs.NewInternalServerError()
}
