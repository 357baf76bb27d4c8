// Package ui defines the interaction surface the scraping engine talks to:
// progress reporting, blocking prompts and notifications. The engine never
// renders anything itself.
package ui

// Progress reports scan progress and exposes the cancellation signal polled
// between items.
type Progress interface {
	Start(title string, total int)
	Update(step int, message string)
	End()
	Canceled() bool
}

// Prompter asks the user for input. Select returns the chosen index, or a
// negative value when no selection was made (callers default to the first
// option).
type Prompter interface {
	Text(title, preset string) string
	Select(title string, options []string) int
}

// Notifier surfaces non-fatal messages. Notify is used for timed,
// auto-dismissing messages; Warn for per-item skip warnings.
type Notifier interface {
	Notify(message string)
	Warn(message string)
}
