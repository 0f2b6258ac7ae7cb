package utils

import (
	"database/sql"
	"strings"
)

// ToSQLStr makes a nullable column value, blank is NULL
func ToSQLStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: strings.TrimSpace(s) != ""}
}

// FromSQLStr returns the value or ""
func FromSQLStr(sqlStr sql.NullString) string {
	return SQLStrOr(sqlStr, "")
}

// SQLStrOr returns the value or def for NULL and blank values
func SQLStrOr(sqlStr sql.NullString, def string) string {
	if sqlStr.Valid && strings.TrimSpace(sqlStr.String) != "" {
		return sqlStr.String
	}
	return def
}
