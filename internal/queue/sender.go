package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/habit-coach/internal/config"
	"github.com/iliyamo/habit-coach/internal/logger"
)

// NewSender returns a Twilio sender when the account is configured and a
// log-only sender otherwise.
func NewSender(cfg config.SMSConfig, log *logger.Logger) Sender {
	if log == nil {
		log = logger.Nop()
	}
	if !cfg.Enabled() {
		return LogSender{Log: log.With("sender", "log")}
	}
	return NewTwilioSender(cfg, log)
}

// LogSender writes messages to the log instead of delivering them.  It is
// used in development and when no provider is configured.
type LogSender struct {
	Log *logger.Logger
}

func (s LogSender) SendSMS(_ context.Context, to, body string) error {
	s.Log.Info("sms", "to", to, "body", body)
	return nil
}

// TwilioSender posts to the Twilio Messages REST endpoint.
type TwilioSender struct {
	cfg        config.SMSConfig
	httpClient *http.Client
	log        *logger.Logger
	backoff    time.Duration
}

func NewTwilioSender(cfg config.SMSConfig, log *logger.Logger) *TwilioSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com/2010-04-01"
	}
	return &TwilioSender{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With("sender", "twilio"),
		backoff:    time.Second,
	}
}

// TwilioError is a non-2xx answer from the provider.
type TwilioError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *TwilioError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("twilio http %d: %s (code=%d)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("twilio http %d: %s", e.StatusCode, e.Message)
}

func (e *TwilioError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// SendSMS delivers body to the E.164 number to.  429 and 5xx answers and
// transport errors are retried up to MaxRetries times with doubling
// backoff.
func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	to, body = strings.TrimSpace(to), strings.TrimSpace(body)
	if to == "" || body == "" {
		return errors.New("twilio: recipient and body required")
	}
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.cfg.From)
	form.Set("Body", body)
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.cfg.BaseURL, s.cfg.AccountSID)

	backoff := s.backoff
	for attempt := 0; ; attempt++ {
		err := s.postOnce(ctx, endpoint, form)
		if err == nil {
			return nil
		}
		var te *TwilioError
		if errors.As(err, &te) && !te.retryable() {
			return err
		}
		if attempt >= s.cfg.MaxRetries {
			return err
		}
		s.log.Warn("twilio request retrying", "attempt", attempt+1, "sleep", backoff.String(), "error", err)
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff *= 2
	}
}

func (s *TwilioSender) postOnce(ctx context.Context, endpoint string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	te := &TwilioError{StatusCode: resp.StatusCode}
	var apiErr struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
		te.Code, te.Message = apiErr.Code, apiErr.Message
	} else {
		te.Message = strings.TrimSpace(string(raw))
	}
	return te
}
