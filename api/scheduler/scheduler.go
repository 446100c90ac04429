package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/pulsepoint/eris-api/config"
	"github.com/pulsepoint/eris-api/dispatch"
	"github.com/pulsepoint/eris-api/reports"
	templates "github.com/pulsepoint/eris-api/templates/html"
)

const jobTimeout = 5 * time.Minute

// Mailer delivers a report email
type Mailer interface {
	Send(ctx context.Context, subject, plainText, htmlContent string) error
}

// SendGridMailer sends mail through SendGrid
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
	to     *mail.Email
}

// NewSendGridMailer creates a mailer sending from one address to another
func NewSendGridMailer(apiKey, from, to string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("PulsePoint ERIS", from),
		to:     mail.NewEmail("Operations", to),
	}
}

// Send sends one email
func (m *SendGridMailer) Send(ctx context.Context, subject, plainText, htmlContent string) error {
	message := mail.NewSingleEmail(m.from, subject, m.to, plainText, htmlContent)
	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// Scheduler runs the periodic background jobs: state backups and the end of
// day report
type Scheduler struct {
	cron   *cron.Cron
	Engine *dispatch.Engine
	Store  dispatch.Gateway
	// Mailer may be nil; the report is then only logged
	Mailer Mailer

	BackupSpec string
	ReportSpec string
	Now        func() time.Time
	log        *zap.SugaredLogger
}

// NewScheduler creates a scheduler using the job specs of conf
func NewScheduler(conf config.Config, engine *dispatch.Engine, store dispatch.Gateway, mailer Mailer, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		Engine:     engine,
		Store:      store,
		Mailer:     mailer,
		BackupSpec: conf.BackupCron,
		ReportSpec: conf.EODReportCron,
		Now:        time.Now,
		log:        log,
	}
}

// Start registers the jobs and begins the scheduler. A job with an empty
// spec is not scheduled.
func (s *Scheduler) Start() error {
	if s.BackupSpec != "" {
		if _, err := s.cron.AddFunc(s.BackupSpec, s.runBackup); err != nil {
			return fmt.Errorf("failed to register backup job: %w", err)
		}
	}
	if s.ReportSpec != "" {
		if _, err := s.cron.AddFunc(s.ReportSpec, s.runReport); err != nil {
			return fmt.Errorf("failed to register end of day report job: %w", err)
		}
	}

	s.cron.Start()
	s.log.Infow("scheduler started", "backup", s.BackupSpec, "report", s.ReportSpec)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// Backup writes the current state to the store. Unlike the manual backup it
// records no audit entry. Commands wait until the write completes, so a
// backup never lands on top of a newer commit.
func (s *Scheduler) Backup(ctx context.Context) error {
	err := s.Engine.Read(func(st dispatch.State) error {
		return dispatch.SaveState(ctx, s.Store, st)
	})
	if err != nil {
		return fmt.Errorf("scheduled backup failed: %w", err)
	}
	return nil
}

// SendEODReport mails today's end of day summary and the open incidents
func (s *Scheduler) SendEODReport(ctx context.Context) error {
	now := s.Now()
	snap := s.Engine.Snapshot()
	eod := reports.EODReport(snap.Calls, now)
	exceptions := reports.ExceptionReport(snap.Calls, snap.Teams, now)

	plain := eod.Summary() + exceptionText(exceptions)
	subject := fmt.Sprintf("ERIS End of Day Report %s", eod.Date)
	if s.Mailer == nil {
		s.log.Infow("end of day report", "date", eod.Date, "report", plain)
		return nil
	}
	if err := s.Mailer.Send(ctx, subject, plain, templates.RenderReportEmail(subject, plain)); err != nil {
		return err
	}
	s.log.Infow("end of day report sent", "date", eod.Date, "calls", eod.TotalCalls, "open", len(exceptions))
	return nil
}

func (s *Scheduler) runBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := s.Backup(ctx); err != nil {
		s.log.Errorw("backup job failed", "error", err)
		return
	}
	s.log.Debug("backup job finished")
}

func (s *Scheduler) runReport() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := s.SendEODReport(ctx); err != nil {
		s.log.Errorw("end of day report job failed", "error", err)
	}
}

func exceptionText(exceptions []reports.Exception) string {
	if len(exceptions) == 0 {
		return "Open incidents: none\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Open incidents: %d\n", len(exceptions))
	for _, e := range exceptions {
		fmt.Fprintf(&b, "#%d P%d %s %s, %s, open %s\n", e.CallID, e.Priority, e.Status, e.Location, e.Team, e.Age)
	}
	return b.String()
}
