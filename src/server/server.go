package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"vip-gate/src/access"
)

const maxBodyBytes = int64(1 << 20)

// UpdateHandler consumes Telegram webhook updates.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// Server is the HTTP surface: MercadoPago webhook and landing pages plus the
// Telegram update endpoint. Webhook deliveries are acked immediately and
// queued; a single consumer goroutine (Run) processes them one at a time,
// which keeps ledger transactions serialized.
type Server struct {
	processor *access.Processor
	bot       UpdateHandler
	logger    zerolog.Logger

	notifyCh chan string
	done     chan struct{}
}

func New(processor *access.Processor, bot UpdateHandler, logger zerolog.Logger) *Server {
	return &Server{
		processor: processor,
		bot:       bot,
		logger:    logger,
		notifyCh:  make(chan string, 64),
		done:      make(chan struct{}),
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", health).Methods("GET")
	r.HandleFunc("/mp/success", landing("✅ Pagamento concluído. Volte ao Telegram e envie /vip.")).Methods("GET")
	r.HandleFunc("/mp/failure", landing("❌ Pagamento falhou.")).Methods("GET")
	r.HandleFunc("/mp/pending", landing("🟡 Pagamento pendente.")).Methods("GET")
	r.HandleFunc("/mp/webhook", s.handleWebhook).Methods("POST")
	r.HandleFunc("/telegram", s.handleTelegram).Methods("POST")
	return r
}

// Run drains queued webhook notifications until Close is called.
func (s *Server) Run() {
	for paymentID := range s.notifyCh {
		s.processor.Process(context.Background(), paymentID)
	}
	close(s.done)
}

// Close stops accepting webhook work and waits for the queue to drain.
func (s *Server) Close() {
	close(s.notifyCh)
	<-s.done
}

// ListenAndServe blocks serving the router on the given port.
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.logger.Info().Msgf("web server now listening on %s", addr)
	return http.ListenAndServe(addr, s.Router())
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK ✅ (server on)"))
}

func landing(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, text)
	}
}

// handleWebhook acks every MercadoPago delivery with a 200 before any
// processing happens; MercadoPago redelivers on anything else. Outcomes of
// the queued processing cannot be signaled back, only logged.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)

	w.WriteHeader(http.StatusOK)

	logger := s.logger.With().Str("delivery_id", uuid.NewString()).Logger()
	if err != nil {
		logger.Error().Err(err).Msg("reading mp webhook body")
		return
	}
	logger.Debug().Bytes("body", body).Msg("mp webhook received")

	paymentID, ok := access.ParseNotification(body)
	if !ok {
		logger.Warn().Msg("mp webhook without payment id, ignored")
		return
	}

	select {
	case s.notifyCh <- paymentID:
	default:
		logger.Error().Str("payment_id", paymentID).Msg("webhook queue full, delivery dropped")
	}
}

func (s *Server) handleTelegram(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	err := json.NewDecoder(r.Body).Decode(&update)

	w.WriteHeader(http.StatusOK)

	if err != nil {
		s.logger.Error().Err(err).Msg("decoding telegram update")
		return
	}
	go s.bot.HandleUpdate(context.Background(), update)
}
