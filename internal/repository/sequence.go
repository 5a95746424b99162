package repository

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// maxSequence returns the highest numeric suffix among column values starting with prefix,
// or 0 when there are none. Values with a non-numeric suffix are ignored.
func maxSequence(db *gorm.DB, column, prefix string) (int, error) {
	rows, err := db.Select(column).
		Where(column+" LIKE ?", prefix+"%").
		Order("LENGTH(" + column + ") DESC, " + column + " DESC").
		Rows()
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	// longest first, then highest: the first all-digit suffix is the maximum
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return 0, err
		}
		if n, ok := parseSequence(strings.TrimPrefix(number, prefix)); ok {
			return n, nil
		}
	}
	return 0, rows.Err()
}

func parseSequence(suffix string) (int, bool) {
	if suffix == "" || strings.ContainsFunc(suffix, func(r rune) bool { return r < '0' || r > '9' }) {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return n, true
}
