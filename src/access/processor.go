package access

import (
	"context"

	"github.com/rs/zerolog"

	"vip-gate/src/ledger"
	"vip-gate/src/mercadopago"
	"vip-gate/src/plan"
)

// Gateway fetches payment state from the processor's API.
type Gateway interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

// Processor turns MercadoPago webhook deliveries into ledger state.
type Processor struct {
	Ledger  *ledger.Ledger
	Gateway Gateway
	Logger  zerolog.Logger
}

// Process handles one webhook delivery after it has been acked. Failures are
// terminal for the delivery attempt; a payment that could not be verified is
// left unmarked so a MercadoPago redelivery gets another chance.
func (p *Processor) Process(ctx context.Context, paymentID string) {
	if p.Ledger.IsProcessed(paymentID) {
		p.Logger.Debug().Str("payment_id", paymentID).Msg("payment already processed")
		return
	}

	payment, err := p.Gateway.GetPayment(ctx, paymentID)
	if err != nil {
		p.Logger.Error().Err(err).Str("payment_id", paymentID).Msg("could not fetch payment")
		return
	}

	// Marked before the grant decision so the same payment is never
	// re-verified, even when access is refused below.
	p.Ledger.MarkProcessed(paymentID)

	userID := payment.ExternalReference
	amount := payment.TransactionAmount

	resolved, ok := p.resolvePlan(payment)
	expected := payment.Metadata.ExpectedAmount
	if expected == 0 && ok {
		expected = resolved.Price
	}

	logger := p.Logger.With().
		Str("payment_id", paymentID).
		Str("status", payment.Status).
		Str("user_id", userID).
		Float64("amount", amount).
		Logger()

	if payment.Status == "approved" && userID != "" && ok && plan.CloseMoney(expected, amount) {
		p.Ledger.SetAuthorized(userID)
		logger.Info().Str("plan", resolved.ID).Msg("vip access authorized")
	} else {
		logger.Warn().
			Str("plan_id", payment.Metadata.PlanID).
			Float64("expected", expected).
			Msg("payment not actionable, no access granted")
	}

	if err := p.Ledger.Persist(); err != nil {
		logger.Error().Err(err).Msg("persisting ledger")
	}
}

// resolvePlan prefers the plan id carried in metadata; without one it falls
// back to the catalog plan closest in price to the transaction amount. An
// unknown metadata plan id resolves to nothing.
func (p *Processor) resolvePlan(payment *mercadopago.Payment) (plan.Plan, bool) {
	if payment.Metadata.PlanID != "" {
		return plan.ByID(payment.Metadata.PlanID)
	}
	return plan.ByAmount(payment.TransactionAmount)
}
