package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/voiceweave/voiceweave/backend/internal/markdown"
	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/logger"
	"github.com/voiceweave/voiceweave/shared/middleware/metrics"
	"golang.org/x/sync/errgroup"
)

// Mailer is the outbound mail capability. Body is HTML.
type Mailer interface {
	Send(recipient, subject, body string) error
}

type NotifierStorage interface {
	GetCommunity(ctx context.Context, id domain.CommunityId) (domain.Community, error)
}

type BodyRenderer interface {
	Render(markdown string) (string, error)
}

type Notification struct {
	Subject string
	Summary string // markdown
	Body    string // sanitized HTML rendered from Summary
	Results PollResults
}

// DispatchFailure is a send that failed for one recipient. It is reported, never returned.
type DispatchFailure struct {
	Recipient domain.Email
	Err       error
}

func (f DispatchFailure) Error() string {
	return fmt.Sprintf("notification to %s failed: %v", f.Recipient, f.Err)
}

type DispatchReport struct {
	PollId     domain.PollId
	Recipients int
	Sent       int
	Failures   []DispatchFailure
}

// Notifier emails a community's authorities when one of its polls resolves.
type Notifier struct {
	storage     NotifierStorage
	mailer      Mailer
	renderer    BodyRenderer
	concurrency int
	siteName    string

	mu         sync.Mutex
	lastReport DispatchReport
}

func NewNotifier(storage NotifierStorage, mailer Mailer, renderer BodyRenderer, concurrency int, siteName string) *Notifier {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Notifier{
		storage:     storage,
		mailer:      mailer,
		renderer:    renderer,
		concurrency: concurrency,
		siteName:    siteName,
	}
}

// OnPollChange is the change feed handler. It acts only on the active -> resolved edge.
func (n *Notifier) OnPollChange(ctx context.Context, before, after domain.Poll) {
	if before.Status != domain.PollStatusActive || after.Status != domain.PollStatusResolved {
		return
	}

	report, err := n.Notify(ctx, after)
	if err != nil {
		logger.Log.Error("failed to notify authorities",
			"component", "notifier",
			"poll_id", after.Id,
			"error", err)
		return
	}
	logger.Log.Info("poll resolution notifications dispatched",
		"component", "notifier",
		"poll_id", after.Id,
		"recipients", report.Recipients,
		"sent", report.Sent,
		"failed", len(report.Failures))
}

// Notify builds the resolution notification for poll and sends one copy per authority email.
// Individual send failures land in the report; the error is only for loading the community
// or rendering the body.
func (n *Notifier) Notify(ctx context.Context, poll domain.Poll) (DispatchReport, error) {
	report := DispatchReport{PollId: poll.Id}

	community, err := n.storage.GetCommunity(ctx, poll.CommunityId)
	if err != nil {
		return report, fmt.Errorf("failed to load community %s: %w", poll.CommunityId, err)
	}
	if len(community.AuthorityEmails) == 0 {
		logger.Log.Info("no authority emails to notify",
			"component", "notifier",
			"community_id", community.Id)
		n.setLastReport(report)
		return report, nil
	}

	notification, err := n.Build(poll, community)
	if err != nil {
		return report, err
	}

	report.Recipients = len(community.AuthorityEmails)
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(n.concurrency)
	for _, recipient := range community.AuthorityEmails {
		recipient := recipient
		g.Go(func() error {
			err := n.mailer.Send(recipient, notification.Subject, notification.Body)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failure := DispatchFailure{Recipient: recipient, Err: err}
				report.Failures = append(report.Failures, failure)
				metrics.NotificationsTotal.WithLabelValues("failed").Inc()
				logger.Log.Warn("notification dispatch failed",
					"component", "notifier",
					"poll_id", poll.Id,
					"error", failure)
				return nil
			}
			report.Sent++
			metrics.NotificationsTotal.WithLabelValues("sent").Inc()
			return nil
		})
	}
	_ = g.Wait() // dispatches never return errors; failures are in the report

	n.setLastReport(report)
	return report, nil
}

func (n *Notifier) setLastReport(report DispatchReport) {
	n.mu.Lock()
	n.lastReport = report
	n.mu.Unlock()
}

// LastReport returns the report of the most recent dispatch.
func (n *Notifier) LastReport() DispatchReport {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastReport
}

// Build renders the notification for a resolved poll.
func (n *Notifier) Build(poll domain.Poll, community domain.Community) (Notification, error) {
	results := ComputeResults(poll)
	summary := summaryMarkdown(poll, community, results)
	body, err := n.renderer.Render(summary)
	if err != nil {
		return Notification{}, fmt.Errorf("failed to render notification: %w", err)
	}
	return Notification{
		Subject: fmt.Sprintf("[%s] Poll Resolved: %s", n.siteName, poll.Question),
		Summary: summary,
		Body:    body,
		Results: results,
	}, nil
}

func summaryMarkdown(poll domain.Poll, community domain.Community, results PollResults) string {
	pollType := "Multiple Choice"
	if poll.Type == domain.PollTypePetition {
		pollType = "Petition (Yes/No)"
	}
	votingType := "Public"
	if poll.Anonymous {
		votingType = "Anonymous"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Poll resolved in %s\n\n", markdown.Escape(community.Title))
	fmt.Fprintf(&b, "**Poll question:** %s\n\n", markdown.Escape(poll.Question))
	fmt.Fprintf(&b, "- **Poll type:** %s\n", pollType)
	fmt.Fprintf(&b, "- **Created:** %s\n", poll.CreatedAt.Format("January 2, 2006"))
	fmt.Fprintf(&b, "- **Total votes:** %d participants\n", results.TotalVotes)
	fmt.Fprintf(&b, "- **Vote goal:** %d (achieved)\n", poll.VoteGoal)
	fmt.Fprintf(&b, "- **Voting type:** %s\n", votingType)
	fmt.Fprintf(&b, "- **Comments:** %d community discussions\n\n", poll.CommentCount)

	b.WriteString("### Community decision summary\n\n")
	fmt.Fprintf(&b, "**Winning option:** %s\n", markdown.Escape(results.Winner.Option))
	fmt.Fprintf(&b, "**Support level:** %.1f%% (%d votes)\n", results.Winner.Percentage, results.Winner.Count)
	fmt.Fprintf(&b, "**Consensus:** %s\n\n", results.Tier)

	b.WriteString("### Detailed voting results\n\n")
	b.WriteString("| Option | Votes | Share |\n|---|---|---|\n")
	for i, r := range results.Ranked {
		option := markdown.Escape(r.Option)
		if i == 0 {
			option += " (community choice)"
		}
		fmt.Fprintf(&b, "| %s | %d | %.1f%% |\n", option, r.Count, r.Percentage)
	}
	return b.String()
}
