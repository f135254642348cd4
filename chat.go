package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

const (
	userPrefix      = "🙋  "
	assistantPrefix = "🖋  "
	systemPrefix    = "🛠  "
	treeMidPrefix   = " │ "
	treeFinalPrefix = " ╰ "
)

var (
	diffAddedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	diffModifiedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	diffRemovedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	hintStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	sectionStyle      = lipgloss.NewStyle().Bold(true)
)

// ChatComponent renders the conversation timeline into a scrollable viewport.
type ChatComponent struct {
	Viewport   viewport.Model
	Width      int
	Height     int
	AutoScroll bool

	markdownRenderer *glamour.TermRenderer
	markdownEnabled  bool
}

// NewChatComponent creates a new chat component
func NewChatComponent(width, height int, markdownEnabled bool) *ChatComponent {
	vp := viewport.New(width, height)
	vp.SetContent(systemPrefix + "New session at " + time.Now().Format("2 January, 3:04 PM MST"))

	var renderer *glamour.TermRenderer
	if markdownEnabled {
		var err error
		renderer, err = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(0), // wrapping is done with reflow below
		)
		if err != nil {
			slog.Warn("failed to initialize markdown renderer", "error", err)
			renderer = nil
		}
	}

	return &ChatComponent{
		Viewport:         vp,
		Width:            width,
		Height:           height,
		AutoScroll:       true,
		markdownRenderer: renderer,
		markdownEnabled:  markdownEnabled,
	}
}

// SetSize resizes the component
func (c *ChatComponent) SetSize(width, height int) {
	c.Width = width
	c.Height = height
	c.Viewport.Width = width
	c.Viewport.Height = height
}

// Update handles viewport scrolling
func (c *ChatComponent) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	c.Viewport, cmd = c.Viewport.Update(msg)
	return cmd
}

// Render repaints the timeline into the viewport.
func (c *ChatComponent) Render(turns []*Turn) {
	var b strings.Builder
	b.WriteString(systemPrefix + "vitae, describe a change to your resume\n")

	for _, t := range turns {
		b.WriteString("\n")
		b.WriteString(c.renderTurn(t))
		b.WriteString("\n")
	}

	c.Viewport.SetContent(wordwrap.String(b.String(), c.Width))
	if c.AutoScroll {
		c.Viewport.GotoBottom()
	}
}

// renderTurn paints one turn, including its diff proposal when present.
func (c *ChatComponent) renderTurn(t *Turn) string {
	var b strings.Builder

	switch t.Role {
	case RoleUser:
		b.WriteString(userPrefix)
		b.WriteString(t.Content)
	case RoleAssistant:
		b.WriteString(assistantPrefix)
		b.WriteString(c.renderAssistantContent(t))
		if t.Status == TurnStreaming {
			b.WriteString("▌")
		}
		if t.Status == TurnError && t.Err != "" {
			if t.Content != "" {
				b.WriteString("\n")
			}
			b.WriteString(errorStyle.Render("⚠ " + t.Err))
		}
		if t.Proposal != nil {
			b.WriteString("\n")
			b.WriteString(c.renderProposal(t.Proposal))
		}
	}

	return b.String()
}

func (c *ChatComponent) renderAssistantContent(t *Turn) string {
	content := t.Content
	if c.markdownEnabled && c.markdownRenderer != nil && t.Status != TurnStreaming {
		if rendered, err := c.markdownRenderer.Render(content); err == nil {
			content = strings.TrimSpace(rendered)
		}
	}
	return content
}

// renderProposal paints the diff entries and, while the proposal is still
// actionable, the decision hint.
func (c *ChatComponent) renderProposal(p *EditProposal) string {
	var b strings.Builder

	header := "Proposed changes"
	if p.Confidence == "low" {
		header += " (low confidence)"
	}
	b.WriteString(treeMidPrefix)
	b.WriteString(sectionStyle.Render(header))
	b.WriteString("\n")

	for _, d := range p.Diffs {
		b.WriteString(treeMidPrefix)
		b.WriteString(renderDiffEntry(d))
		b.WriteString("\n")
	}

	b.WriteString(treeFinalPrefix)
	switch p.Resolution {
	case Unresolved:
		b.WriteString(hintStyle.Render("apply with ctrl+a · dismiss with ctrl+x"))
	case Applied:
		b.WriteString(diffAddedStyle.Render("applied"))
	case Dismissed:
		b.WriteString(dimStyle.Render("dismissed"))
	case Expired:
		b.WriteString(dimStyle.Render("expired (from an earlier session, no longer actionable)"))
	}

	return b.String()
}

func renderDiffEntry(d DiffEntry) string {
	section := fmt.Sprintf("[%s] ", d.Section)
	switch d.Type {
	case "added":
		return diffAddedStyle.Render("+ " + section + d.After)
	case "removed":
		return diffRemovedStyle.Render("- " + section + d.Before)
	case "modified":
		return diffModifiedStyle.Render("~ "+section+d.Before) +
			dimStyle.Render(" → ") + diffModifiedStyle.Render(d.After)
	default:
		return dimStyle.Render("? " + section + d.After)
	}
}
