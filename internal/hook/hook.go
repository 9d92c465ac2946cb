package hook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"sona/internal/config"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// ErrNoCommand is returned by Run when [hook] command is empty.
var ErrNoCommand = errors.New("no hook.command configured")

// Job is one finished transcript handed to the hook.
type Job struct {
	Text      string
	Source    string // file name, "mic", "http" or "test"
	Timestamp time.Time
}

// Runner executes the configured post-transcription command.
type Runner struct {
	cfg      *config.Config
	logger   *logrus.Logger
	hostname string
}

func NewRunner(cfg *config.Config, logger *logrus.Logger) *Runner {
	host, _ := os.Hostname()
	return &Runner{cfg: cfg, logger: logger, hostname: host}
}

// Enabled reports whether a hook command is configured.
func (r *Runner) Enabled() bool {
	return strings.TrimSpace(r.cfg.Hook.Command) != ""
}

// Run invokes the hook command with the prefixed transcript as its last
// argument. The transcript, prefix, source and RFC 3339 timestamp are also
// exported as SONA_TEXT, SONA_PREFIX, SONA_SOURCE and SONA_TIMESTAMP.
func (r *Runner) Run(ctx context.Context, job Job) error {
	if !r.Enabled() {
		return ErrNoCommand
	}
	if job.Timestamp.IsZero() {
		job.Timestamp = time.Now()
	}
	if d := r.timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	cmd, err := r.command(ctx, job)
	if err != nil {
		return err
	}

	log := r.logger.WithFields(logrus.Fields{"source": job.Source, "command": cmd.Path})
	start := time.Now()
	out, err := cmd.CombinedOutput()
	if s := strings.TrimSpace(string(out)); s != "" {
		log.Infof("hook output: %s", s)
	}
	if err != nil {
		return fmt.Errorf("hook %s failed: %w", r.cfg.Hook.Command, err)
	}
	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Debug("hook done")
	return nil
}

func (r *Runner) timeout() time.Duration {
	return time.Duration(r.cfg.Hook.TimeoutSec * float64(time.Second))
}

// command builds the hook process for job without starting it.
func (r *Runner) command(ctx context.Context, job Job) (*exec.Cmd, error) {
	args, err := ParseArgs(r.cfg.Hook.Args)
	if err != nil {
		return nil, fmt.Errorf("parse hook.args: %w", err)
	}
	text := job.Text
	if r.cfg.Hook.RedactPII {
		text = redactPII(text)
	}
	prefix := r.expandPrefix(job)
	args = append(args, strings.TrimSpace(prefix+text))

	cmd := exec.CommandContext(ctx, r.cfg.Hook.Command, args...)
	cmd.Env = os.Environ()
	for k, v := range r.cfg.Hook.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Env = append(cmd.Env,
		"SONA_TEXT="+text,
		"SONA_PREFIX="+prefix,
		"SONA_SOURCE="+job.Source,
		"SONA_TIMESTAMP="+job.Timestamp.Format(time.RFC3339),
	)
	return cmd, nil
}

// expandPrefix substitutes ${hostname}, ${source} and ${time} in hook.prefix.
func (r *Runner) expandPrefix(job Job) string {
	if r.cfg.Hook.Prefix == "" {
		return ""
	}
	return strings.NewReplacer(
		"${hostname}", r.hostname,
		"${source}", job.Source,
		"${time}", job.Timestamp.Format(time.RFC3339),
	).Replace(r.cfg.Hook.Prefix)
}

// ParseArgs splits hook.args with shell quoting rules.
func ParseArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return shlex.Split(raw)
}

var redactions = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`[\w.+-]+@[\w.-]+\.[A-Za-z]{2,}`), "[redacted-email]"},
	{regexp.MustCompile(`\+?\d[\d\s\-\(\)]{6,}\d`), "[redacted-phone]"},
}

func redactPII(s string) string {
	for _, r := range redactions {
		s = r.re.ReplaceAllString(s, r.with)
	}
	return s
}
