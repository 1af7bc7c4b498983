package worker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"gorm.io/gorm"

	"fmail/config"
	"fmail/models"
	"fmail/workflow"
)

// IngestWorker polls the configured IMAP mailbox for unseen mail, persists
// each message and fires the inbox owner's email_received hooks. It is the
// live feed the hook executor replays accepted automations against.
type IngestWorker struct {
	db     *gorm.DB
	engine *workflow.Engine
	cfg    config.IMAPConfig
	logger *log.Logger
}

func NewIngestWorker(db *gorm.DB, engine *workflow.Engine, cfg config.IMAPConfig, logger *log.Logger) *IngestWorker {
	return &IngestWorker{
		db:     db,
		engine: engine,
		cfg:    cfg,
		logger: logger,
	}
}

func (iw *IngestWorker) Start(ctx context.Context) {
	iw.logger.Println("Ingest worker started")

	ticker := time.NewTicker(config.AppConfig.IMAPPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			iw.logger.Println("Ingest worker shutting down...")
			return
		case <-ticker.C:
			if err := iw.fetchUnseen(); err != nil {
				iw.logger.Printf("Error fetching mail: %v", err)
			}
		}
	}
}

func (iw *IngestWorker) fetchUnseen() error {
	imapClient, err := iw.dial()
	if err != nil {
		return err
	}
	defer imapClient.Logout()

	if err := imapClient.Login(iw.cfg.Username, iw.cfg.Password); err != nil {
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	mailbox := iw.cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := imapClient.Select(mailbox, false); err != nil {
		return fmt.Errorf("failed to select mailbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{"\\Seen"}
	ids, err := imapClient.Search(criteria)
	if err != nil {
		return fmt.Errorf("failed to search messages: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- imapClient.Fetch(seqset, items, messages)
	}()

	for msg := range messages {
		if err := iw.ingest(msg, section); err != nil {
			iw.logger.Printf("Failed to ingest message: %v", err)
		}
	}
	return <-done
}

func (iw *IngestWorker) dial() (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", iw.cfg.Host, iw.cfg.Port)

	var imapClient *client.Client
	var err error
	switch strings.ToUpper(iw.cfg.Encryption) {
	case "SSL", "TLS":
		imapClient, err = client.DialTLS(addr, &tls.Config{ServerName: iw.cfg.Host})
	case "STARTTLS":
		imapClient, err = client.Dial(addr)
		if err == nil {
			err = imapClient.StartTLS(&tls.Config{ServerName: iw.cfg.Host})
		}
	default:
		imapClient, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	return imapClient, nil
}

func (iw *IngestWorker) ingest(msg *imap.Message, section *imap.BodySectionName) error {
	if msg.Envelope == nil {
		return fmt.Errorf("message has no envelope")
	}

	sender := ""
	if len(msg.Envelope.From) > 0 {
		sender = msg.Envelope.From[0].Address()
	}
	recipient := ""
	if len(msg.Envelope.To) > 0 {
		recipient = msg.Envelope.To[0].Address()
	}

	body := iw.readBody(msg.GetBody(section))

	// Skip messages we already ingested on a previous poll.
	var existing int64
	iw.db.Model(&models.Message{}).Where("message_id = ?", msg.Envelope.MessageId).Count(&existing)
	if msg.Envelope.MessageId != "" && existing > 0 {
		return nil
	}

	record := models.Message{
		MessageID: msg.Envelope.MessageId,
		Subject:   msg.Envelope.Subject,
		Body:      body,
		Sender:    sender,
		Recipient: recipient,
		Date:      msg.Envelope.Date,
	}
	if err := iw.db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	iw.logger.Printf("ingested message %d from %s", record.ID, sender)

	// Replay the owner's accepted automations against the new mail.
	results := iw.engine.HandleEmailEvent(
		iw.cfg.OwnerID,
		workflow.TriggerEmailReceived,
		workflow.EmailRef{
			ID:      fmt.Sprintf("%d", record.ID),
			Sender:  sender,
			Subject: record.Subject,
		},
		workflow.NewEventContext(iw.cfg.OwnerID, "ingest", "inbox"),
	)
	for _, r := range results {
		if r.Err != "" {
			iw.logger.Printf("hook %s failed on message %d: %s", r.HookID, record.ID, r.Err)
		}
	}
	return nil
}

func (iw *IngestWorker) readBody(r imap.Literal) string {
	if r == nil {
		return ""
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return ""
	}

	var text strings.Builder
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		if _, ok := part.Header.(*mail.InlineHeader); ok {
			b, _ := io.ReadAll(part.Body)
			text.Write(b)
		}
	}
	return text.String()
}
