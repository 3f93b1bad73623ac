// Package webhook is the HTTP surface: the voice platform webhook and the
// read-only dashboard endpoints.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	activityx "github.com/tanpawarit/pawsome-voice-agent/agent/activity"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
	"github.com/tidwall/gjson"
)

const maxBodyBytes = 1 << 20

const (
	typeToolCalls    = "tool-calls"
	typeStatusUpdate = "status-update"
	typeTranscript   = "transcript"
	typeEndOfCall    = "end-of-call-report"
)

type Dispatcher interface {
	DispatchBatch(ctx context.Context, calls []contractx.ToolCall) []contractx.ToolResult
}

type CallLog interface {
	EndCall(ctx context.Context, id, endedReason string, duration time.Duration) activityx.CallRecord
}

type ToolCallResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

type ToolCallsResponse struct {
	Results []ToolCallResult `json:"results"`
}

type Handler struct {
	dispatcher Dispatcher
	calls      CallLog
}

// NewHandler builds the webhook handler. calls may be nil.
func NewHandler(dispatcher Dispatcher, calls CallLog) *Handler {
	return &Handler{dispatcher: dispatcher, calls: calls}
}

func (h *Handler) Webhook(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("read webhook body")
		respondErr(ctx, rw, http.StatusBadRequest, "Could not read request body")
		return
	}
	if !gjson.ValidBytes(body) {
		respondErr(ctx, rw, http.StatusBadRequest, "Request body is not valid JSON")
		return
	}

	msg := gjson.GetBytes(body, "message")
	msgType := msg.Get("type").String()
	callID := msg.Get("call.id").String()
	logger := log.Ctx(ctx).With().Str("message_type", msgType).Str("call_id", callID).Logger()
	ctx = logger.WithContext(ctx)

	switch msgType {
	case typeToolCalls:
		ctx = activityx.WithCallID(ctx, callID)
		respond(ctx, rw, http.StatusOK, h.toolCalls(ctx, msg))
		return
	case typeStatusUpdate:
		logger.Info().Str("status", msg.Get("status").String()).Msg("call status update")
	case typeTranscript:
		logger.Debug().Str("role", msg.Get("role").String()).Str("transcript", msg.Get("transcript").String()).Msg("transcript")
	case typeEndOfCall:
		reason := msg.Get("endedReason").String()
		logger.Info().Str("ended_reason", reason).Msg("call ended")
		if h.calls != nil {
			duration := time.Duration(msg.Get("durationSeconds").Float() * float64(time.Second))
			h.calls.EndCall(ctx, callID, reason, duration)
		}
	default:
		logger.Debug().Msg("unhandled message type")
	}
	respond(ctx, rw, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) toolCalls(ctx context.Context, msg gjson.Result) ToolCallsResponse {
	list := msg.Get("toolCalls")
	if !list.IsArray() || len(list.Array()) == 0 {
		list = msg.Get("toolCallList")
	}
	raw := list.Array()

	results := make([]contractx.ToolResult, len(raw))
	calls := make([]contractx.ToolCall, 0, len(raw))
	slots := make([]int, 0, len(raw))
	for i, item := range raw {
		call := contractx.ToolCall{
			ID:   item.Get("id").String(),
			Name: item.Get("function.name").String(),
		}
		args, err := parseArguments(item.Get("function.arguments"))
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("tool", call.Name).Str("tool_call_id", call.ID).Msg("malformed tool arguments")
			results[i] = contractx.ToolResult{
				CallID: call.ID,
				Tool:   call.Name,
				Err:    contractx.ErrInvalidArguments.WithMessage("Invalid tool arguments: " + err.Error()),
				At:     time.Now(),
			}
			continue
		}
		call.Args = args
		calls = append(calls, call)
		slots = append(slots, i)
	}

	for j, res := range h.dispatcher.DispatchBatch(ctx, calls) {
		results[slots[j]] = res
	}

	out := ToolCallsResponse{Results: make([]ToolCallResult, 0, len(results))}
	for _, res := range results {
		out.Results = append(out.Results, ToolCallResult{ToolCallID: res.CallID, Result: res.Encode()})
	}
	return out
}

// parseArguments accepts either a JSON object or a string holding one.
func parseArguments(v gjson.Result) (map[string]any, error) {
	raw := ""
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return map[string]any{}, nil
	case v.Type == gjson.String:
		raw = v.String()
		if raw == "" {
			return map[string]any{}, nil
		}
	case v.IsObject():
		raw = v.Raw
	default:
		return nil, fmt.Errorf("arguments must be an object, got %s", v.Type)
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
