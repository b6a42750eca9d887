package data

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/repo"
)

const gmailUser = "me"

// GmailConfig contains the OAuth files of the Gmail sink
type GmailConfig struct {
	CredentialsFile string
	TokenFile       string
}

// gmailSink delivers reports through the Gmail API
type gmailSink struct {
	files GmailConfig
	email EmailConfig
	test  bool
	now   func() time.Time

	mu         sync.Mutex
	srv        *gmail.Service
	newService func(ctx context.Context) (*gmail.Service, error)
}

// NewGmailSink creates a Gmail delivery sink. The token file must already hold an
// authorized token; the interactive consent flow is not run by the bot.
func NewGmailSink(files GmailConfig, email EmailConfig, test bool) repo.DeliverySink {
	s := &gmailSink{files: files, email: email, test: test, now: time.Now}
	s.newService = s.oauthService
	return s
}

func (s *gmailSink) Name() string {
	return "gmail"
}

// Validate checks the sender, the recipient and the OAuth files
func (s *gmailSink) Validate() error {
	recipientField := "RECIPIENT_EMAIL"
	if s.test {
		recipientField = "TEST_RECIPIENT_EMAIL"
	}
	missing := missingFields(map[string]string{
		"EMAIL_ADDRESS": s.email.From,
		recipientField:  s.email.Recipient(s.test),
	})
	for field, path := range map[string]string{
		"GMAIL_CREDENTIALS_FILE": s.files.CredentialsFile,
		"GMAIL_TOKEN_FILE":       s.files.TokenFile,
	} {
		if path == "" {
			missing = append(missing, field)
		} else if _, err := os.Stat(path); err != nil {
			missing = append(missing, field+" ("+path+" not readable)")
		}
	}
	if len(missing) > 0 {
		return &domain.IncompleteConfigError{Sink: s.Name(), Missing: missing}
	}
	return nil
}

func (s *gmailSink) oauthService(ctx context.Context) (*gmail.Service, error) {
	b, err := os.ReadFile(s.files.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(b, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	tok, err := tokenFromFile(s.files.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read token file: %w", err)
	}
	// The service outlives the delivery context, so the token source must not be bound to it
	httpClient := oauthConfig.Client(context.Background(), tok)
	return gmail.NewService(ctx, option.WithHTTPClient(httpClient))
}

func (s *gmailSink) service(ctx context.Context) (*gmail.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return s.srv, nil
	}
	srv, err := s.newService(ctx)
	if err != nil {
		return nil, err
	}
	s.srv = srv
	return srv, nil
}

// Deliver sends the report as a raw RFC 822 message
func (s *gmailSink) Deliver(ctx context.Context, subject, body string) error {
	srv, err := s.service(ctx)
	if err != nil {
		return domain.NewTransportError("gmail service", err)
	}

	to := s.email.Recipient(s.test)
	raw := buildMessage(s.email.From, to, subject, body, s.now())
	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}

	if _, err := srv.Users.Messages.Send(gmailUser, msg).Context(ctx).Do(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return domain.NewTransportError(fmt.Sprintf("gmail send (HTTP %d)", apiErr.Code), err)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("gmail send: %w", ctx.Err())
		}
		return domain.NewTransportError("gmail send", err)
	}

	fmt.Printf("[Gmail] Report sent to %s\n", to)
	return nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
