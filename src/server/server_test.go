package server

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"vip-gate/src/access"
	"vip-gate/src/ledger"
	"vip-gate/src/mercadopago"
)

type fakeGateway struct {
	payment *mercadopago.Payment
}

func (f *fakeGateway) GetPayment(_ context.Context, _ string) (*mercadopago.Payment, error) {
	return f.payment, nil
}

type fakeBot struct {
	updates chan tgbotapi.Update
}

func (f *fakeBot) HandleUpdate(_ context.Context, update tgbotapi.Update) {
	f.updates <- update
}

func newTestServer(t *testing.T) (*Server, *ledger.Ledger, *fakeBot) {
	t.Helper()

	led := ledger.New(filepath.Join(t.TempDir(), "db.json"))
	if err := led.Load(); err != nil {
		t.Fatalf("loading test ledger: %v", err)
	}

	gw := &fakeGateway{payment: &mercadopago.Payment{
		Status:            "approved",
		ExternalReference: "555",
		TransactionAmount: 11.99,
		Metadata:          mercadopago.Metadata{PlanID: "mensal", ExpectedAmount: 11.99, UserID: "555"},
	}}

	processor := &access.Processor{Ledger: led, Gateway: gw, Logger: zerolog.Nop()}
	bot := &fakeBot{updates: make(chan tgbotapi.Update, 1)}
	return New(processor, bot, zerolog.Nop()), led, bot
}

func TestHealthHandler(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Errorf("health endpoint expected response 200 but got %d", rr.Code)
	}
}

func TestLandingPages(t *testing.T) {
	s, _, _ := newTestServer(t)

	pages := map[string]string{
		"/mp/success": "✅ Pagamento concluído. Volte ao Telegram e envie /vip.",
		"/mp/failure": "❌ Pagamento falhou.",
		"/mp/pending": "🟡 Pagamento pendente.",
	}

	for path, want := range pages {
		req := httptest.NewRequest("GET", path, nil)
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, req)

		if rr.Code != 200 {
			t.Errorf("%s expected response 200 but got %d", path, rr.Code)
		}
		if rr.Body.String() != want {
			t.Errorf("%s expected body %q but got %q", path, want, rr.Body.String())
		}
	}
}

func TestWebhookAcksAndQueues(t *testing.T) {
	s, _, _ := newTestServer(t)

	body := bytes.NewBufferString(`{"data":{"id":"pay-1"}}`)
	req := httptest.NewRequest("POST", "/mp/webhook", body)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Errorf("webhook expected immediate 200 but got %d", rr.Code)
	}

	select {
	case id := <-s.notifyCh:
		if id != "pay-1" {
			t.Errorf("queued payment id expected pay-1 but got %s", id)
		}
	default:
		t.Error("webhook did not queue the delivery")
	}
}

func TestWebhookMalformedBodyStillAcked(t *testing.T) {
	s, _, _ := newTestServer(t)

	for _, body := range []string{`{"action":"payment.updated"}`, `garbage`, ``} {
		req := httptest.NewRequest("POST", "/mp/webhook", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, req)

		if rr.Code != 200 {
			t.Errorf("webhook with body %q expected 200 but got %d", body, rr.Code)
		}
	}

	select {
	case id := <-s.notifyCh:
		t.Errorf("no delivery should have been queued, got %s", id)
	default:
	}
}

func TestWebhookDeliveryIsProcessed(t *testing.T) {
	s, led, _ := newTestServer(t)
	go s.Run()

	req := httptest.NewRequest("POST", "/mp/webhook", bytes.NewBufferString(`{"data":{"id":"pay-1"}}`))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("webhook expected 200 but got %d", rr.Code)
	}

	// Close waits for the queue to drain
	s.Close()

	if !led.IsProcessed("pay-1") {
		t.Error("payment should have been processed after the ack")
	}
	if led.GetStatus("555") != ledger.StatusAuthorized {
		t.Errorf("user 555 expected authorized but got %q", led.GetStatus("555"))
	}
}

func TestTelegramEndpointDispatchesUpdate(t *testing.T) {
	s, _, bot := newTestServer(t)

	body := bytes.NewBufferString(`{"update_id":1,"message":{"message_id":1,"chat":{"id":555},"text":"/vip"}}`)
	req := httptest.NewRequest("POST", "/telegram", body)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Errorf("telegram endpoint expected 200 but got %d", rr.Code)
	}

	select {
	case update := <-bot.updates:
		if update.Message == nil || update.Message.Chat.ID != 555 {
			t.Error("dispatched update lost its message")
		}
	case <-time.After(time.Second):
		t.Error("update was never dispatched to the bot")
	}
}
