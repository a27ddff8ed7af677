package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stash-sh/stash/internal/domain"
	"github.com/stash-sh/stash/internal/httpserver/deps"
	"github.com/stash-sh/stash/internal/logger"
	"github.com/stash-sh/stash/internal/telegram"
)

const maxUpdateBytes = 64 << 10

type webhookResponse struct {
	Outcome string `json:"outcome"`
}

// Webhook receives bot API updates. The secret path segment is the only
// authentication; a wrong secret gets a 404 indistinguishable from an
// unknown path. Once an update is parsed the response is always 200 so
// the bot API never re-delivers.
func Webhook(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := chi.URLParam(r, "secret")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(d.WebhookSecret)) != 1 {
			http.NotFound(w, r)
			return
		}

		var update telegram.Update
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes))
		if err := decoder.Decode(&update); err != nil {
			d.Logger.Warn("malformed webhook payload", logger.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		outcome := processUpdate(r, d, &update)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(webhookResponse{Outcome: string(outcome)})
	}
}

func processUpdate(r *http.Request, d deps.Deps, update *telegram.Update) domain.Outcome {
	chatID, ok := update.ChatID()
	if !ok {
		d.Logger.Debug("update without message, ignoring",
			logger.Int64("update_id", update.UpdateID))
		return domain.OutcomeIgnored
	}

	source := domain.SourceTelegram
	if d.Channels != nil {
		registered, ok := d.Channels.Lookup(chatID)
		if !ok {
			d.Logger.Info("message from unregistered chat, ignoring",
				logger.Int64("chat_id", chatID))
			return domain.OutcomeIgnored
		}
		source = registered
	}

	outcome, err := d.Ingest.Submit(r.Context(), update.Message.Content(), source)
	if err != nil {
		// Persist and enqueue both failed: the record is lost. Tell the
		// sender instead of pretending it was queued.
		d.Logger.Error("submission lost",
			logger.Int64("chat_id", chatID),
			logger.Error(err))
		reply(r, d, chatID, "❌ Could not save your link, please resend it later")
		return domain.OutcomeIgnored
	}

	switch outcome {
	case domain.OutcomeSaved:
		reply(r, d, chatID, "✅ Saved")
	case domain.OutcomeQueued:
		reply(r, d, chatID, "⏳ Saved to the retry queue, it will land shortly")
	case domain.OutcomeIgnored:
		// No URL in the message; stay silent.
	}
	return outcome
}

// reply is best effort: a failed reply never changes the HTTP response.
func reply(r *http.Request, d deps.Deps, chatID int64, text string) {
	if d.Notifier == nil {
		return
	}
	if err := d.Notifier.SendMessage(r.Context(), chatID, text); err != nil {
		d.Logger.Warn("failed to send reply",
			logger.Int64("chat_id", chatID),
			logger.Error(err))
	}
}
