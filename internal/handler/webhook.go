package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/habit-coach/internal/logger"
	"github.com/iliyamo/habit-coach/internal/repository"
	"github.com/iliyamo/habit-coach/internal/utils"
)

// Intent is a conversational agent action the webhook understands.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentTrackSuccess
	IntentUnpause
	IntentPause
	IntentStats
)

var intentNames = map[string]Intent{
	"track_success": IntentTrackSuccess,
	"unpause":       IntentUnpause,
	"pause":         IntentPause,
	"stats":         IntentStats,
}

// ParseIntent maps the agent's result.action onto an Intent.
func ParseIntent(action string) Intent {
	return intentNames[strings.ToLower(strings.TrimSpace(action))]
}

func (i Intent) String() string {
	for name, v := range intentNames {
		if v == i {
			return name
		}
	}
	return "unknown"
}

// AgentSource identifies this service in agent responses.
const AgentSource = "haBot app"

// agentRequest is the subset of the agent's fulfillment payload we read.
type agentRequest struct {
	Timestamp string `json:"timestamp"`
	Result    struct {
		Action string `json:"action"`
	} `json:"result"`
	OriginalRequest struct {
		Data struct {
			From        string `json:"From"`
			FromCountry string `json:"FromCountry"`
		} `json:"data"`
	} `json:"originalRequest"`
}

// AgentResponse is the uniform reply to every intent.
type AgentResponse struct {
	Speech      string         `json:"speech"`
	DisplayText string         `json:"displayText"`
	Data        map[string]any `json:"data"`
	ContextOut  []any          `json:"contextOut"`
	Source      string         `json:"source"`
}

func agentReply(msg string) AgentResponse {
	return AgentResponse{Speech: msg, DisplayText: msg, Data: map[string]any{}, ContextOut: []any{}, Source: AgentSource}
}

// intentHandler runs one intent for a resolved user.
type intentHandler func(ctx context.Context, userID uint64, ts time.Time) (string, error)

// WebhookHandler receives fulfillment calls from the conversational agent
// that users text.  The caller is identified by the SMS sender number.
type WebhookHandler struct {
	Users   UserLookup
	Actions AgentActions
	Log     *logger.Logger
	Now     func() time.Time

	intents map[Intent]intentHandler
}

func NewWebhookHandler(users UserLookup, actions AgentActions, log *logger.Logger) *WebhookHandler {
	h := &WebhookHandler{Users: users, Actions: actions, Log: log}
	h.intents = map[Intent]intentHandler{
		IntentTrackSuccess: func(ctx context.Context, uid uint64, ts time.Time) (string, error) {
			res, err := h.Actions.ProcessSuccess(ctx, uid, ts)
			return res.Message, err
		},
		IntentUnpause: func(ctx context.Context, uid uint64, _ time.Time) (string, error) {
			return h.Actions.Unpause(ctx, uid)
		},
		IntentPause: func(ctx context.Context, uid uint64, _ time.Time) (string, error) {
			return h.Actions.Pause(ctx, uid)
		},
		IntentStats: func(ctx context.Context, uid uint64, _ time.Time) (string, error) {
			msg, _, err := h.Actions.StatsMessage(ctx, uid)
			return msg, err
		},
	}
	return h
}

const (
	msgBadRequest    = "Sorry, I couldn't understand that request."
	msgUnknownAction = "Sorry, I don't know how to help with that yet."
	msgUnknownUser   = "I couldn't find a haBot account for this number. Sign up on the website first!"
	msgNoHabit       = "You don't have a habit in progress. Pick one from your recommendations on the website."
	msgInternal      = "Something went wrong on my side. Please try again in a moment."
)

// Handle dispatches an agent call to the handler of its intent.
func (h *WebhookHandler) Handle(c echo.Context) error {
	var req agentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, agentReply(msgBadRequest))
	}
	intent := ParseIntent(req.Result.Action)
	run, ok := h.intents[intent]
	if !ok {
		return c.JSON(http.StatusBadRequest, agentReply(msgUnknownAction))
	}

	ts := time.Time{}
	if req.Timestamp != "" {
		t, err := time.Parse(time.RFC3339Nano, req.Timestamp)
		if err != nil {
			return c.JSON(http.StatusBadRequest, agentReply(msgBadRequest))
		}
		ts = t
	} else if h.Now != nil {
		ts = h.Now().UTC()
	}

	ctx := c.Request().Context()
	mobile, err := utils.FormatMobile(req.OriginalRequest.Data.From, req.OriginalRequest.Data.FromCountry)
	if err != nil {
		return c.JSON(http.StatusBadRequest, agentReply(msgBadRequest))
	}
	user, err := h.Users.GetByMobile(ctx, mobile)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, agentReply(msgUnknownUser))
	}
	if err != nil {
		h.logError("user lookup failed", intent, err)
		return c.JSON(http.StatusInternalServerError, agentReply(msgInternal))
	}

	msg, err := run(ctx, user.ID, ts)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, agentReply(msg))
	case errors.Is(err, repository.ErrNotFound):
		// no current habit is a normal conversational outcome
		return c.JSON(http.StatusOK, agentReply(msgNoHabit))
	default:
		h.logError("intent failed", intent, err)
		return c.JSON(http.StatusInternalServerError, agentReply(msgInternal))
	}
}

func (h *WebhookHandler) logError(msg string, intent Intent, err error) {
	if h.Log != nil {
		h.Log.Error(msg, "intent", intent.String(), "error", err)
	}
}
