package ui

// Silent is a no-interaction UI for fully automatic runs and tests: prompts
// return their defaults and progress output is discarded. Notifications are
// retained so callers can inspect what would have been shown.
type Silent struct {
	Notices  []string
	Warnings []string
}

// Start implements Progress.
func (s *Silent) Start(string, int) {}

// Update implements Progress.
func (s *Silent) Update(int, string) {}

// End implements Progress.
func (s *Silent) End() {}

// Canceled implements Progress.
func (s *Silent) Canceled() bool { return false }

// Text implements Prompter by returning the preset.
func (s *Silent) Text(_ string, preset string) string { return preset }

// Select implements Prompter by reporting no selection.
func (s *Silent) Select(string, []string) int { return -1 }

// Notify implements Notifier.
func (s *Silent) Notify(message string) {
	s.Notices = append(s.Notices, message)
}

// Warn implements Notifier.
func (s *Silent) Warn(message string) {
	s.Warnings = append(s.Warnings, message)
}
