package backend

import (
	"errors"
	"fmt"

	"github.com/i474232898/weather-edge/internal/weather"
)

var (
	errUnknownTable = errors.New("unknown table")
	errBadCount     = errors.New("invalid row count")
)

var knownTables = map[string]bool{
	weather.TableLocations:      true,
	weather.TableObservations:   true,
	weather.TableForecastRuns:   true,
	weather.TableForecastErrors: true,
	weather.TableForecastsDaily: true,
	weather.TableDashboardStats: true,
	weather.TableBestBets:       true,
}

// Table names reach SQL and URLs unescaped, so only known ones are accepted.
func checkTable(table string) error {
	if !knownTables[table] {
		return fmt.Errorf("%w: %q", errUnknownTable, table)
	}
	return nil
}
