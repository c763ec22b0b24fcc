package imapmail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/config"
)

// Client is an IMAP implementation of the Mailbox port. The connection is
// scoped to one poll cycle: Open at the start, Close on every exit path.
type Client struct {
	cfg    config.MailboxConfig
	logger *zap.Logger
	conn   *client.Client
}

// NewClient creates a new IMAP mailbox client
func NewClient(cfg config.MailboxConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger,
	}
}

// Open connects with TLS, logs in and selects the monitored folder
func (c *Client) Open(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	c.logger.Debug("Connecting to IMAP server", zap.String("server", c.cfg.Server))

	dialer := &net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", c.cfg.Server, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	imapClient, err := client.New(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create IMAP client: %w", err)
	}

	if err := imapClient.Login(c.cfg.Username, c.cfg.Password); err != nil {
		imapClient.Logout()
		return fmt.Errorf("failed to login: %w", err)
	}

	if _, err := imapClient.Select(c.cfg.Folder, false); err != nil {
		imapClient.Logout()
		return fmt.Errorf("failed to select %s: %w", c.cfg.Folder, err)
	}

	c.conn = imapClient
	return nil
}

// ListUnseen returns the UIDs of messages without the \Seen flag
func (c *Client) ListUnseen(ctx context.Context) ([]uint32, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("not connected")
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := c.conn.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search unseen messages: %w", err)
	}
	return uids, nil
}

// Fetch retrieves the raw RFC822 message for a UID without setting \Seen
func (c *Client) Fetch(ctx context.Context, uid uint32) ([]byte, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("not connected")
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	// BODY.PEEK so fetching does not flag the message as seen
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.conn.UidFetch(seqSet, items, messages)
	}()

	var raw []byte
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		data, err := io.ReadAll(body)
		if err != nil {
			c.logger.Warn("Failed to read message body", zap.Uint32("uid", uid), zap.Error(err))
			continue
		}
		raw = data
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %d: %w", uid, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("message %d has no body", uid)
	}
	return raw, nil
}

// MarkSeen adds the \Seen flag to a message
func (c *Client) MarkSeen(ctx context.Context, uid uint32) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}

	if err := c.conn.UidStore(seqSet, item, flags, nil); err != nil {
		return fmt.Errorf("failed to mark message %d seen: %w", uid, err)
	}
	return nil
}

// Close logs out and releases the connection
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Logout()
	c.conn = nil
	return err
}
