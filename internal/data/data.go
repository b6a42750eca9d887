package data

import (
	"database/sql"
	"fmt"

	"github.com/devricklin/feishu-digest-bot/internal/biz/repo"
	"github.com/devricklin/feishu-digest-bot/internal/infra/feishu"
	"github.com/devricklin/feishu-digest-bot/internal/infra/moonshot"
)

// Repositories contains all repositories
type Repositories struct {
	Channel    repo.ChannelRepo
	Run        repo.RunRepo
	Snapshot   repo.SnapshotRepo
	Summarizer repo.SummarizerRepo

	db *sql.DB
}

// NewRepositories creates all repositories. moonshotClient may be nil.
func NewRepositories(
	dbPath string,
	snapshotDir string,
	moonshotClient *moonshot.Client,
	summaryPrompt string,
) (*Repositories, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Channel:    NewChannelRepo(db),
		Run:        NewRunRepo(db),
		Snapshot:   NewSnapshotRepo(snapshotDir),
		Summarizer: NewMoonshotRepo(moonshotClient, summaryPrompt),
		db:         db,
	}, nil
}

// Close closes the database
func (r *Repositories) Close() error {
	return r.db.Close()
}

// Sink names accepted by NewDeliverySink
const (
	SinkSMTP   = "smtp"
	SinkGmail  = "gmail"
	SinkFeishu = "feishu"
)

// SinkConfig contains the settings of every delivery sink
type SinkConfig struct {
	Kind         string
	SMTP         SMTPConfig
	Email        EmailConfig
	Gmail        GmailConfig
	FeishuChatID string
	Test         bool
}

// NewDeliverySink creates the sink selected by cfg.Kind. feishuClient may be nil.
func NewDeliverySink(cfg SinkConfig, feishuClient *feishu.Client) (repo.DeliverySink, error) {
	switch cfg.Kind {
	case SinkSMTP, "":
		return NewSMTPSink(cfg.SMTP, cfg.Email, cfg.Test), nil
	case SinkGmail:
		return NewGmailSink(cfg.Gmail, cfg.Email, cfg.Test), nil
	case SinkFeishu:
		if feishuClient == nil {
			return NewFeishuSink(nil, cfg.FeishuChatID), nil
		}
		return NewFeishuSink(feishuClient, cfg.FeishuChatID), nil
	default:
		return nil, fmt.Errorf("unknown delivery sink %q", cfg.Kind)
	}
}
