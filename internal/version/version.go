package version

import "fmt"

// Значения подставляются при сборке через -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Version возвращает семантическую версию сборки.
func Version() string { return version }

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

// String собирает человекочитаемую строку для логов и health endpoint.
func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}
