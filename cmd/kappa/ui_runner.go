package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"kappa/internal/driver"
	"kappa/internal/ui"
)

type checkOutcome struct {
	report *driver.Report
	err    error
}

// runWithUI runs work while a progress view renders the events it sends
// to events. work owns events until it returns.
func runWithUI(title string, defs []string, events chan driver.Event, work func() (*driver.Report, error)) (*driver.Report, error) {
	outcomeCh := make(chan checkOutcome, 1)
	go func() {
		rep, err := work()
		outcomeCh <- checkOutcome{report: rep, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, defs, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// The view may quit first; keep the workers unblocked.
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
