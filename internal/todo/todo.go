// Package todo implements the per-session task list the agent loop
// consults between tool-loop iterations to decide whether to re-enter: a
// JSON file of record plus a human-readable markdown mirror, both keyed by
// session id under .cea/.
package todo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Status is one of the four lifecycle states a todo item can be in.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Priority is stored with each todo item; neither the markdown ordering
// (by status, then ID) nor incompleteness depends on it.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Item is one task tracked for a session.
type Item struct {
	ID          string   `json:"id"`
	Content     string   `json:"content"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	Description string   `json:"description,omitempty"`
}

// Incomplete reports whether the item still needs attention: neither
// completed nor cancelled.
func (i Item) Incomplete() bool {
	return i.Status != StatusCompleted && i.Status != StatusCancelled
}

// document is the canonical on-disk JSON shape written for a session.
type document struct {
	Todos     []Item    `json:"todos"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists todo lists to <dir>/.cea/<session>.{json,md}.
type Store struct {
	dir       string
	sessionID string
}

// New constructs a Store rooted at dir (typically the process cwd) for the
// given session id.
func New(dir, sessionID string) *Store {
	return &Store{dir: dir, sessionID: sessionID}
}

func (s *Store) jsonPath() string {
	return filepath.Join(s.dir, ".cea", s.sessionID+".json")
}

func (s *Store) markdownPath() string {
	return filepath.Join(s.dir, ".cea", s.sessionID+".md")
}

// Write validates every item has non-empty content, then writes the
// canonical JSON file (with updatedAt) and a markdown rendering grouped by
// status.
func (s *Store) Write(items []Item) error {
	for i, item := range items {
		if strings.TrimSpace(item.Content) == "" {
			return fmt.Errorf("todo: item %d has empty content", i)
		}
	}

	dir := filepath.Join(s.dir, ".cea")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("todo: create %s: %w", dir, err)
	}

	doc := document{Todos: items, UpdatedAt: time.Now()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("todo: marshal: %w", err)
	}
	if err := os.WriteFile(s.jsonPath(), data, 0o644); err != nil {
		return fmt.Errorf("todo: write %s: %w", s.jsonPath(), err)
	}

	md := renderMarkdown(items)
	if err := os.WriteFile(s.markdownPath(), []byte(md), 0o644); err != nil {
		return fmt.Errorf("todo: write %s: %w", s.markdownPath(), err)
	}
	return nil
}

// Incomplete reads the JSON file for the current session and returns every
// item that is neither completed nor cancelled. An absent file yields an
// empty list. A malformed file is swallowed and also yields an empty list,
// since a corrupt todo file must never block the agent loop. Any other I/O
// error propagates.
func (s *Store) Incomplete() ([]Item, error) {
	data, err := os.ReadFile(s.jsonPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("todo: read %s: %w", s.jsonPath(), err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil
	}

	var incomplete []Item
	for _, item := range doc.Todos {
		if item.Incomplete() {
			incomplete = append(incomplete, item)
		}
	}
	return incomplete, nil
}

var statusOrder = []Status{StatusInProgress, StatusPending, StatusCompleted, StatusCancelled}

var statusHeading = map[Status]string{
	StatusInProgress: "In Progress",
	StatusPending:    "Pending",
	StatusCompleted:  "Completed",
	StatusCancelled:  "Cancelled",
}

// renderMarkdown groups items by status (in-progress, pending, completed,
// cancelled, in that order) under a heading per group.
func renderMarkdown(items []Item) string {
	byStatus := make(map[Status][]Item)
	for _, item := range items {
		byStatus[item.Status] = append(byStatus[item.Status], item)
	}

	var b strings.Builder
	b.WriteString("# Todos\n\n")
	for _, status := range statusOrder {
		group := byStatus[status]
		if len(group) == 0 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool { return group[i].ID < group[j].ID })

		fmt.Fprintf(&b, "## %s\n\n", statusHeading[status])
		for _, item := range group {
			box := "[ ]"
			if status == StatusCompleted {
				box = "[x]"
			}
			fmt.Fprintf(&b, "- %s %s\n", box, item.Content)
			if item.Description != "" {
				fmt.Fprintf(&b, "  %s\n", item.Description)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
