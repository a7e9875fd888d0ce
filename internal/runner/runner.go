package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/mahyarmirrashed/dirclean/internal/alert"
	"github.com/mahyarmirrashed/dirclean/internal/audit"
	"github.com/mahyarmirrashed/dirclean/internal/cleaner"
	"github.com/mahyarmirrashed/dirclean/internal/config"
	"github.com/mahyarmirrashed/dirclean/internal/matcher"
	"github.com/mahyarmirrashed/dirclean/internal/scanner"
	"github.com/mahyarmirrashed/dirclean/internal/utils"
	log "github.com/sirupsen/logrus"
)

// Runner performs one scan, audit, delete and alert pass over the target directory.
type Runner struct {
	Config    *config.Config
	Log       log.FieldLogger
	Sender    alert.Sender       // Defaults to an SMTP sender built from Config.Email
	Remove    func(string) error // Defaults to os.Remove
	Now       func() time.Time   // Defaults to time.Now
	DryRun    bool               // If true, log deletions and alerts without performing them
	AuditOnly bool               // If true, only list and report; nothing is deleted
}

// Report summarizes a finished run.
type Report struct {
	AuditLog string
	Entries  []scanner.Entry
	Matches  []scanner.Entry
	Deleted  []cleaner.Outcome
	Alerts   []alert.Outcome
}

// Run executes the pipeline. Only setup failures (compiling the keyword,
// listing the target directory, writing the audit log) are returned;
// per-file deletion and alert failures are logged and kept in the Report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	cfg := r.Config
	now := r.now()
	rep := &Report{}

	m, err := matcher.New(cfg.General.Keyword)
	if err != nil {
		return nil, fmt.Errorf("compile keyword: %w", err)
	}

	r.Log.Infof("Starting scan of %s...", cfg.General.TargetDirectory)
	entries, err := scanner.List(cfg.General.TargetDirectory)
	if err != nil {
		return nil, err
	}
	rep.Entries = entries
	r.Log.Infof("Scan complete: %d file(s)", len(entries))

	// The record only claims deletion when files are actually removed.
	action := audit.Deleted
	if r.AuditOnly || r.DryRun {
		action = audit.Found
	}
	if err := audit.EnsureDir(cfg.General.LogDirectory); err != nil {
		return nil, err
	}
	rep.AuditLog = audit.Path(cfg.General.LogDirectory, now)
	if err := audit.Write(rep.AuditLog, action, entries, now); err != nil {
		return nil, err
	}
	r.Log.Infof("Audit log written to %s", rep.AuditLog)

	rep.Matches = m.Filter(entries)
	if len(rep.Matches) > 0 {
		r.Log.Infof("Keyword '%s' found in %d file(s):", m.Keyword(), len(rep.Matches))
		for _, e := range rep.Matches {
			r.Log.Infof(" - %s", e.Name)
		}
	} else {
		r.Log.Infof("No file contains keyword '%s'", m.Keyword())
	}

	if r.AuditOnly {
		r.Log.Info("Audit only: no files deleted")
	} else if len(entries) == 0 {
		r.Log.Info("Nothing to delete")
	} else {
		c := cleaner.New(r.Log, r.DryRun)
		if r.Remove != nil {
			c.Remove = r.Remove
		}
		rep.Deleted = c.Delete(entries)
	}

	if len(rep.Matches) > 0 && cfg.Email.Enabled {
		rep.Alerts = r.alert(ctx, rep.Matches)
	}

	r.summarize(rep)
	return rep, nil
}

func (r *Runner) alert(ctx context.Context, matches []scanner.Entry) []alert.Outcome {
	cfg := r.Config
	switch {
	case r.AuditOnly:
		for _, e := range matches {
			r.Log.Infof("[audit only] Alert not sent for %s to %s", e.Name, cfg.Email.Target)
		}
		return nil
	case r.DryRun:
		for _, e := range matches {
			r.Log.Infof("[dry run] Would send alert for %s to %s", e.Name, cfg.Email.Target)
		}
		return nil
	}

	sender := r.Sender
	if sender == nil {
		sender = alert.NewSMTPSender(cfg.Email)
	}
	n := &alert.Notifier{
		Sender:  sender,
		Log:     r.Log,
		From:    cfg.Email.User,
		To:      cfg.Email.Target,
		Keyword: cfg.General.Keyword,
	}
	return n.Notify(ctx, matches)
}

func (r *Runner) summarize(rep *Report) {
	failed := cleaner.Failed(rep.Deleted)
	alertsFailed := 0
	for _, o := range rep.Alerts {
		if o.Err != nil {
			alertsFailed++
		}
	}

	var out string
	if r.DryRun {
		out = fmt.Sprintf("Run complete: %d file(s) found, %d would be deleted, %d match(es)",
			len(rep.Entries), len(rep.Deleted), len(rep.Matches))
	} else {
		out = fmt.Sprintf("Run complete: %d file(s) found, %d deleted, %d failed, %d match(es)",
			len(rep.Entries), len(rep.Deleted)-failed, failed, len(rep.Matches))
	}
	if len(rep.Alerts) > 0 {
		out += fmt.Sprintf(", %d alert(s) sent, %d failed", len(rep.Alerts)-alertsFailed, alertsFailed)
	}
	r.Log.Info(out)
	utils.SendNotification(r.Log, r.Config.General.Notifications, utils.AppName, out)
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
