// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"sync"
)

// Prompter records everything shown to the user and answers confirmations
// from a fixed script.
type Prompter struct {
	mu       sync.Mutex
	Answer   bool
	Alerts   []string
	Notices  []string
	Confirms []string
}

func (p *Prompter) Alert(title, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Alerts = append(p.Alerts, title+": "+message)
}

func (p *Prompter) Notice(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Notices = append(p.Notices, message)
}

func (p *Prompter) Confirm(_ context.Context, title, message, _ string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Confirms = append(p.Confirms, title+": "+message)
	return p.Answer
}

func (p *Prompter) AlertCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Alerts)
}

// Settings counts deep link opens.
type Settings struct {
	mu     sync.Mutex
	Opened int
}

func (s *Settings) Open(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Opened++
	return nil
}

func (s *Settings) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Opened
}
