package utils

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
)

func BoolPointer(b bool) *bool {
	return &b
}

// Encode writes v as a JSON response.
func Encode(w http.ResponseWriter, r *http.Request, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// Decode reads the request body into T.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

func BuildSearchQuery(tableName string, filter types.MySQLFilter) (string, []any) {
	query := fmt.Sprintf(`SELECT * FROM %s`, tableName)
	var values []any
	for idx, q := range filter.Query {
		if idx == 0 {
			query += " WHERE "
		}

		query += fmt.Sprintf("%s %s ?", q.Column, q.Op)
		values = append(values, q.Query)

		if idx < len(filter.Query)-1 {
			query += " AND "
		}
	}

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	return query, values
}
