package e2e

import (
	"bytes"
	"chat-api/infrastructure/http/client"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseHTTPSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration and skips when no server is configured.
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.APIURL == "" {
		s.T().Skip("CHAT_API_URL not set")
	}
}

// loggingTransport logs every call and, when asked, the answer body.
type loggingTransport struct {
	t         *testing.T
	debugBody bool
}

func (l loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		l.t.Logf("HTTP %s %s failed in %v: %v", req.Method, req.URL.RequestURI(), time.Since(start), err)
		return nil, err
	}
	l.t.Logf("HTTP %s %s [%d] in %v", req.Method, req.URL.RequestURI(), resp.StatusCode, time.Since(start))
	if l.debugBody {
		raw, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		l.t.Logf("RESPONSE:\n%s", raw)
		resp.Body = io.NopCloser(bytes.NewReader(raw))
	}
	return resp, nil
}

// WithChat runs fn as a named step against the configured server.
func (s *BaseHTTPSuite) WithChat(name string, fn func(ctx context.Context, chat *client.ChatClient)) {
	t := s.T()
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	chat := client.NewChatClient(s.Config.APIURL, &http.Client{
		Transport: loggingTransport{t: t, debugBody: s.Config.DebugBody},
		Timeout:   30 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fn(ctx, chat)
}
