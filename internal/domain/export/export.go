// Package export renders the user table as downloadable CSV and JSON.
package export

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/okian/cocstats/internal/domain/format"
	"github.com/okian/cocstats/internal/domain/model"
)

// Formats served by the export endpoints.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Header is the fixed CSV column order.
var Header = []string{
	"name", "device_id", "used_key", "attack_count",
	"gold", "elixir", "dark_elixir", "registered_time", "last_online",
}

// CSV joins each user's columns with commas and rows with newlines, header
// first. Values are written verbatim: a value containing a comma or newline
// shifts the columns of its row.
func CSV(users []model.UserRecord) []byte {
	lines := make([]string, 0, len(users)+1)
	lines = append(lines, strings.Join(Header, ","))
	for _, u := range users {
		lastOnline := u.LastOnline
		if lastOnline == "" {
			lastOnline = format.Never
		}
		lines = append(lines, strings.Join([]string{
			u.Name,
			u.DeviceID,
			u.UsedKey,
			strconv.FormatInt(u.AttackCount, 10),
			strconv.FormatInt(u.Loot.Gold, 10),
			strconv.FormatInt(u.Loot.Elixir, 10),
			strconv.FormatInt(u.Loot.DarkElixir, 10),
			u.RegisteredTime,
			lastOnline,
		}, ","))
	}
	return []byte(strings.Join(lines, "\n"))
}

// JSON renders the records with two-space indentation. Keys follow the
// struct field order.
func JSON(users []model.UserRecord) ([]byte, error) {
	if users == nil {
		users = []model.UserRecord{}
	}
	b, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return nil, err
	}
	return b, nil
}

// FileName is user-data-<YYYY-MM-DD>.<ext> using the UTC date of now.
func FileName(ext string, now time.Time) string {
	return "user-data-" + now.UTC().Format(time.DateOnly) + "." + ext
}

// ContentType returns the MIME type of an export format.
func ContentType(ext string) string {
	if ext == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}
