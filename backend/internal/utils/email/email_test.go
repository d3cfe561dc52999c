package email

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voiceweave/voiceweave/shared/config"
)

func TestBuildMessage(t *testing.T) {
	e := New(&config.Email{
		SMTPServer: "smtp.example.com",
		SMTPPort:   587,
		Username:   "noreply@example.org",
		SenderName: "VoiceWeave",
	})
	e.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	msg := string(e.buildMessage("mayor@example.com", "[VoiceWeave] Poll Resolved: Более света?", "<p>hi</p>"))

	headers, body, found := strings.Cut(msg, "\r\n\r\n")
	require.True(t, found)
	assert.Equal(t, "<p>hi</p>", body)
	assert.Contains(t, headers, "To: mayor@example.com\r\n")
	assert.Contains(t, headers, "From: VoiceWeave <noreply@example.org>\r\n")
	assert.Contains(t, headers, "Content-Type: text/html; charset=\"utf-8\"")
	assert.Contains(t, headers, "Date: Sun, 01 Mar 2026 12:00:00 +0000")
	assert.Contains(t, headers, "@example.org>\r\n")
	// non-ascii subject is encoded
	assert.Contains(t, headers, "Subject: =?utf-8?q?")
}

func TestMessageDomain(t *testing.T) {
	assert.Equal(t, "example.org", New(&config.Email{Username: "a@example.org"}).messageDomain())
	assert.Equal(t, defaultMessageDomain, New(&config.Email{Username: "apikey"}).messageDomain())
}

func TestSend_DialFailure(t *testing.T) {
	// grab a free port and close it so nothing is listening
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	e := New(&config.Email{SMTPServer: "127.0.0.1", SMTPPort: port, Username: "a@example.org", Timeout: 1})
	err = e.Send("b@example.org", "subject", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
}

func TestLogOnly(t *testing.T) {
	assert.NoError(t, LogOnly{}.Send("a@example.org", "s", "b"))
}
