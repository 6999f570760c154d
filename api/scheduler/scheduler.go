// Package scheduler runs the periodic background jobs of the grievance
// service: a daily digest email for the department inbox and an escalation
// sweep over stale critical complaints.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/simeonpalla/GovLensAP/config"
	"github.com/simeonpalla/GovLensAP/databases"
	"github.com/simeonpalla/GovLensAP/models"
	templates "github.com/simeonpalla/GovLensAP/templates/html"
)

// staleCriticalAge is how old an unresolved Critical complaint may get
// before the sweep flags it.
const staleCriticalAge = 72 * time.Hour

// Scheduler handles periodic background jobs over the complaint store
type Scheduler struct {
	cron *cron.Cron
	DB   databases.ComplaintDatabase
	Conf *config.Config
}

// New creates a new scheduler instance
func New(db databases.ComplaintDatabase, conf *config.Config) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		DB:   db,
		Conf: conf,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Daily digest of unresolved grievances at 3 AM UTC
	_, err := s.cron.AddFunc("0 3 * * *", s.SendDailyDigest)
	if err != nil {
		zap.S().Errorw("failed to register digest job", "error", err)
	}

	// Flag stale critical complaints every 6 hours
	_, err = s.cron.AddFunc("0 */6 * * *", s.SweepStaleCritical)
	if err != nil {
		zap.S().Errorw("failed to register escalation sweep", "error", err)
	}

	s.cron.Start()
	zap.S().Info("grievance scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("grievance scheduler stopped")
}

// SendDailyDigest emails the pending workload per department. Skipped when
// the digest addresses are not configured.
func (s *Scheduler) SendDailyDigest() {
	if s.Conf == nil || s.Conf.DigestTo == "" || s.Conf.DigestFrom == "" {
		zap.S().Debug("digest addresses not configured, skipping daily digest")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	complaints, err := s.DB.Find(ctx)
	if err != nil {
		zap.S().Errorw("failed to load complaints for digest", "error", err)
		return
	}

	pending := 0
	byDepartment := map[string]int{}
	critical := 0
	for _, c := range complaints {
		if c.Status == models.StatusResolved {
			continue
		}
		pending++
		byDepartment[c.Analysis.PrimaryDepartment]++
		if c.Analysis.Severity == models.SeverityCritical {
			critical++
		}
	}

	subject := fmt.Sprintf("GovLens AP daily digest: %d grievances pending", pending)
	body := s.digestBody(pending, critical, byDepartment)
	if err := sendEmail(s.Conf.DigestTo, s.Conf.DigestFrom, subject, body); err != nil {
		zap.S().Errorw("failed to send daily digest", "error", err)
		return
	}

	zap.S().Infow("daily digest sent", "pending", pending, "critical", critical)
}

func (s *Scheduler) digestBody(pending, critical int, byDepartment map[string]int) string {
	body := fmt.Sprintf("Pending grievances: %d\nCritical severity: %d\n\nBy department:\n", pending, critical)
	departments := make([]string, 0, len(byDepartment))
	for d := range byDepartment {
		departments = append(departments, d)
	}
	sort.Strings(departments)
	for _, d := range departments {
		body += fmt.Sprintf("  %s: %d\n", d, byDepartment[d])
	}
	return body
}

// SweepStaleCritical logs every Critical complaint that has sat unresolved
// past the escalation threshold, so operators can chase the department.
func (s *Scheduler) SweepStaleCritical() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	complaints, err := s.DB.Find(ctx)
	if err != nil {
		zap.S().Errorw("failed to load complaints for escalation sweep", "error", err)
		return
	}

	cutoff := time.Now().Add(-staleCriticalAge)
	flagged := 0
	for _, c := range complaints {
		if c.Status == models.StatusResolved || c.Analysis.Severity != models.SeverityCritical {
			continue
		}
		submitted, err := time.Parse(time.RFC3339, c.Timestamp)
		if err != nil || submitted.After(cutoff) {
			continue
		}
		flagged++
		zap.S().Warnw("critical grievance past escalation threshold",
			"id", c.ID,
			"department", c.Analysis.PrimaryDepartment,
			"submittedAt", c.Timestamp,
			"status", c.Status,
		)
	}

	if flagged > 0 {
		zap.S().Infow("escalation sweep complete", "flagged", flagged)
	}
}

func sendEmail(toEmail, fromEmail, subject, plainText string) error {
	from := mail.NewEmail("GovLens AP", fromEmail)
	to := mail.NewEmail("Grievance Cell", toEmail)
	htmlContent := templates.RenderGenericEmail(subject, plainText)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
		return fmt.Errorf("sendgrid status %d", response.StatusCode)
	}
	return nil
}
