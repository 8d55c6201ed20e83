package sqlerr

import (
	"fmt"
	"strings"
)

// Code is a coarse category for a PostgreSQL SQLSTATE.
type Code string

const (
	Other                     Code = "other"
	ConnectionException       Code = "connection_exception"
	InsufficientResources     Code = "insufficient_resources"
	OperatorIntervention      Code = "operator_intervention"
	QueryCanceled             Code = "query_canceled"
	UndefinedTable            Code = "undefined_table"
	UndefinedColumn           Code = "undefined_column"
	InvalidTextRepresentation Code = "invalid_text_representation"
	DataException             Code = "data_exception"
	InsufficientPrivilege     Code = "insufficient_privilege"
)

// Severity mirrors the severity field of a PostgreSQL error report.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
	SeverityPanic   Severity = "PANIC"
	SeverityWarning Severity = "WARNING"
	SeverityNotice  Severity = "NOTICE"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityLog     Severity = "LOG"
)

// Error is a driver-independent view of a PostgreSQL error.
type Error struct {
	Code           Code
	Severity       Severity
	DatabaseCode   string
	Message        string
	SchemaName     string
	TableName      string
	ColumnName     string
	DataTypeName   string
	ConstraintName string
	driverErr      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s (SQLSTATE %s): %s", e.Severity, e.Code, e.DatabaseCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.driverErr
}

// Unavailable reports whether the error means the database could not serve
// any query right now, as opposed to this query being wrong.
func (e *Error) Unavailable() bool {
	switch e.Code {
	case ConnectionException, InsufficientResources, OperatorIntervention:
		return true
	}
	return false
}

// MapCode maps a SQLSTATE onto a Code. Exact codes are matched first, then
// the two-character class.
func MapCode(sqlState string) Code {
	switch sqlState {
	case "57014":
		return QueryCanceled
	case "42P01":
		return UndefinedTable
	case "42703":
		return UndefinedColumn
	case "22P02":
		return InvalidTextRepresentation
	case "42501":
		return InsufficientPrivilege
	}

	if len(sqlState) < 2 {
		return Other
	}

	switch sqlState[:2] {
	case "08":
		return ConnectionException
	case "53":
		return InsufficientResources
	case "57":
		return OperatorIntervention
	case "22":
		return DataException
	}
	return Other
}

// MapSeverity normalizes a severity string. Unknown values map to ERROR.
func MapSeverity(severity string) Severity {
	switch s := Severity(strings.ToUpper(severity)); s {
	case SeverityFatal, SeverityPanic, SeverityWarning, SeverityNotice,
		SeverityDebug, SeverityInfo, SeverityLog:
		return s
	}
	return SeverityError
}
