package email

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/accounts/shared/config"
	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer(t *testing.T) {
	r := NewRenderer()

	html, err := r.HTML("Your code is **ABCD**.\n\nhttps://example.com/reset")
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>ABCD</strong>")
	assert.Contains(t, html, `href="https://example.com/reset"`)
	assert.Contains(t, html, `rel="nofollow`)

	html, err = r.HTML("hi <script>alert(1)</script> [x](javascript:alert(1))")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "javascript:")
}

func TestBuildMessage(t *testing.T) {
	e := New(&config.Email{
		SMTPServer: "smtp.example.com",
		SMTPPort:   587,
		Username:   "noreply@example.com",
		SenderName: "Example Accounts",
	})

	raw, err := e.buildMessage(domain.Notification{
		RecipientId: uuid.New(),
		Recipient:   "alice@example.com",
		Subject:     "Сброс пароля",
		Body:        "Hello **alice**",
		Channel:     domain.ChannelEmail,
		Language:    "ru",
	})
	require.NoError(t, err)

	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", msg.Header.Get("To"))
	assert.Equal(t, "ru", msg.Header.Get("Content-Language"))
	assert.True(t, strings.HasSuffix(msg.Header.Get("Message-ID"), "@example.com>"))

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Сброс пароля", subject)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var types, bodies []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(part)
		require.NoError(t, err)
		types = append(types, part.Header.Get("Content-Type"))
		bodies = append(bodies, string(content))
	}
	require.Len(t, types, 2)
	assert.Contains(t, types[0], "text/plain")
	assert.Equal(t, "Hello **alice**", bodies[0])
	assert.Contains(t, types[1], "text/html")
	assert.Contains(t, bodies[1], "<strong>alice</strong>")
}

func TestSendRejectsBadNotifications(t *testing.T) {
	e := New(&config.Email{SMTPServer: "smtp.example.com", SMTPPort: 587})

	assert.Error(t, e.Send(domain.Notification{Recipient: "a@example.com", Channel: "sms", Subject: "x"}))
	assert.Error(t, e.Send(domain.Notification{Channel: domain.ChannelEmail, Subject: "x"}))
}

type recordingSender struct {
	mu    sync.Mutex
	sent  []domain.Notification
	block chan struct{}
}

func (s *recordingSender) Send(n domain.Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestQueue(t *testing.T) {
	t.Run("delivers in the background", func(t *testing.T) {
		sender := &recordingSender{}
		q := NewQueue(sender, 10)
		q.Start(context.Background())

		for range 3 {
			require.NoError(t, q.Send(domain.Notification{Subject: "x"}))
		}
		assert.Eventually(t, func() bool { return sender.count() == 3 }, time.Second, 5*time.Millisecond)

		q.Stop()
		assert.ErrorIs(t, q.Send(domain.Notification{}), ErrQueueClosed)
	})

	t.Run("full buffer", func(t *testing.T) {
		q := NewQueue(&recordingSender{}, 1)
		require.NoError(t, q.Send(domain.Notification{}))
		assert.ErrorIs(t, q.Send(domain.Notification{}), ErrQueueFull)
	})

	t.Run("stop drains pending", func(t *testing.T) {
		sender := &recordingSender{block: make(chan struct{})}
		q := NewQueue(sender, 10)
		q.Start(context.Background())
		for range 5 {
			require.NoError(t, q.Send(domain.Notification{}))
		}
		close(sender.block)
		q.Stop()
		assert.Equal(t, 5, sender.count())
	})

	t.Run("context cancel drains pending", func(t *testing.T) {
		sender := &recordingSender{}
		q := NewQueue(sender, 10)
		for range 2 {
			require.NoError(t, q.Send(domain.Notification{}))
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		q.Start(ctx)
		q.Stop()
		assert.Equal(t, 2, sender.count())
	})
}
